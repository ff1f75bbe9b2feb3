// Package handlers provides the HTTP handlers for the photo browser API.
//
// It includes handlers for:
//   - Listing items and reading a single item
//   - Oriented thumbnails rendered as JPEG
//   - Autofocus point overlays
//   - Setting check marks and restarting decodes
//   - A server-sent event stream of item changes
//   - Health, version and Prometheus metrics
//
// Item lookups take the item ID, a name-based UUID of the file's absolute
// path, so IDs stay stable across restarts.
package handlers
