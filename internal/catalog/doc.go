// Package catalog persists per-file state that must survive restarts.
//
// The catalog is a small SQLite database (WAL journal) holding the tri-state
// check mark of every file the user has marked, keyed by absolute path, and
// a key/value metadata table used for bookkeeping such as the last library
// scan time. Files that were never marked have no row and read as
// unchecked.
package catalog
