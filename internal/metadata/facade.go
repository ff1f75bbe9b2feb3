package metadata

import (
	"context"
	"image"

	"photo-browser/internal/media"
)

// Tag names understood by the loaders.
const (
	TagModel       = "Exif.Image.Model"
	TagMake        = "Exif.Image.Make"
	TagOrientation = "Exif.Image.Orientation"
	TagImageWidth  = "Exif.Photo.PixelXDimension"
	TagImageHeight = "Exif.Photo.PixelYDimension"

	TagAFValidPoints      = "Exif.Canon.AFValidPoints"
	TagAFCanonImageWidth  = "Exif.Canon.AFCanonImageWidth"
	TagAFCanonImageHeight = "Exif.Canon.AFCanonImageHeight"
	TagAFAreaWidths       = "Exif.Canon.AFAreaWidths"
	TagAFAreaHeights      = "Exif.Canon.AFAreaHeights"
	TagAFXPositions       = "Exif.Canon.AFXPositions"
	TagAFYPositions       = "Exif.Canon.AFYPositions"
	TagAFPointsInFocus    = "Exif.Canon.AFPointsInFocus"
	TagAFPointsSelected   = "Exif.Canon.AFPointsSelected"
	TagAFPointsUnusable   = "Exif.Canon.AFPointsUnusable"
	TagAFFineRotation     = "Exif.Canon.AFFineRotation"
)

// Facade is read access to one file's decoded metadata. All methods are
// safe for concurrent use and report missing values through the ok result
// instead of errors.
type Facade interface {
	// IntTag returns element index of an integer tag.
	IntTag(name string, index int) (int64, bool)
	// RationalTag returns a rational tag as numerator and denominator.
	RationalTag(name string) (num, den int64, ok bool)
	StringTag(name string) (string, bool)
	// Orientation may be expensive; callers are expected to memoize it.
	Orientation() media.Orientation
	// EmbeddedPreview returns the camera-generated preview, or nil.
	EmbeddedPreview() image.Image
}

// Loader produces a Facade for a file.
type Loader interface {
	Load(ctx context.Context, path string) (Facade, error)
}
