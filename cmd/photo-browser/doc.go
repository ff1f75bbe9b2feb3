// Package main provides the entry point for the photo browser server.
//
// The server keeps one record per photo under a library directory, decodes
// them in the background and exposes the collection over a small HTTP API
// with a server-sent event stream of changes.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  2. Configuration loading: defaults, the TOML file, then the environment
//  3. Catalog: SQLite store of check marks and the last scan time
//  4. Component initialization:
//     - Dispatch loop: the single goroutine that owns thumbnail rendering
//       and delivers coalesced preview regions
//     - Metadata loader: exiftool when it runs, built-in decoders otherwise
//     - Memory monitor: pauses full decodes under heap pressure
//     - Decode pipeline: worker pool driving every record's state
//     - Collection: records keyed by path, RAW/processed pairing
//  5. Initial scan, then fsnotify watching when enabled
//  6. HTTP server with logging, metrics and compression middleware
//  7. Graceful shutdown on SIGINT or SIGTERM
//
// # Usage
//
//	photo-browser [-config path/to/config.toml]
//
// See package config for every setting and its environment variable.
//
// # Graceful Shutdown
//
//  1. Cancel the root context: event streams end, the watcher stops
//  2. Shut down the HTTP server (30s timeout)
//  3. Stop the decode pipeline; running jobs end as Cancelled
//  4. Stop the metrics collector and destroy every record
//  5. Stop the memory monitor and the dispatch loop
//  6. Close the catalog and shut down libvips
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o photo-browser ./cmd/photo-browser
package main
