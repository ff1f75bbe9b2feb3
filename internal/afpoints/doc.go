// Package afpoints decodes Canon autofocus point geometry from camera
// metadata.
//
// Canon bodies record, per AF point, a rectangle size and a center offset
// relative to the middle of a reference image, plus three bitmask groups
// (in focus, selected, unusable) with 16 points per group. EOS and
// PowerShot bodies disagree on the sign of the vertical offset, so the
// camera model decides how Y is read; other models yield no data.
//
// Missing or partial metadata is never an error: Decode reports ok=false
// and callers draw no overlay.
package afpoints
