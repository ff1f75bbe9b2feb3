// Package record implements Record, the per-photo entity shared by the
// decoding pipeline and the presentation layer.
//
// A Record tracks decoding state, the best thumbnail seen so far and a
// cached oriented copy of it, the decoded image, the metadata handle with
// memoized orientation and autofocus geometry, the user's check mark and
// a weak link to the RAW or processed sibling of the same photo.
//
// Locking: each Record has one mutex held only while fields are read or
// written. Listeners are always called after the lock is released, so a
// listener may call back into the Record it was notified about. Expensive
// work (orientation lookup, AF decoding, thumbnail scaling) also runs
// unlocked and commits its result only if the inputs did not change
// meanwhile; two callers missing the cache at once may both compute.
package record
