// Package collection holds the records of the photos being browsed.
//
// A Collection owns one record.Record per supported file under the library
// directory. It pairs each RAW file with the processed file of the same
// stem in the same directory, restores and persists the user's check marks
// through a Store, and keeps itself in sync with the disk either by an
// explicit Scan or by watching the library with fsnotify.
//
// Adding and removing files is reported through the OnAdd and OnRemove
// hooks so a decoding pipeline can start and cancel work for them.
package collection
