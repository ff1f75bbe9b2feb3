// Package media holds the image plumbing shared by the record, pipeline and
// server packages.
//
// It covers:
//   - File kinds: RAW versus processed extensions and the pairing key that
//     matches "IMG_0001.CR2" with "IMG_0001.JPG"
//   - Orientation: EXIF orientation codes, their split into a flip and a
//     clockwise rotation, applying that split to pixels (imaging) and
//     expressing it as an affine matrix (x/image f64.Aff3)
//   - Scaling to a display height and constrained decoding of large files
//   - libvips initialization and decode-time shrinking
//   - Placeholder images and file-type icons used when no thumbnail exists
package media
