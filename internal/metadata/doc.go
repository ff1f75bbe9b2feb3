// Package metadata reads camera metadata for a single file and exposes it
// through the Facade capability consumed by the record and afpoints
// packages.
//
// Tag names follow the exiv2 naming scheme ("Exif.Canon.AFValidPoints").
// Read failures never surface as errors from a Facade; a tag that cannot be
// read is reported as absent.
//
// Implementations:
//   - Tags: map-backed values, used by loaders and by tests
//   - Exiftool: runs the exiftool binary and maps its JSON output to Tags,
//     extracting the embedded preview lazily
//   - Basic: header-only loader for processed images when exiftool is not
//     installed
package metadata
