// Package middleware provides HTTP middleware for the photo browser API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with item IDs folded into one label
//   - gzip compression of JSON responses
//
// Event streams and JPEG thumbnails pass through uncompressed.
package middleware
