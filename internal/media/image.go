package media

import (
	"fmt"
	"image"
	"math"

	"photo-browser/internal/filesystem"
	"photo-browser/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height decoded without
	// libvips. Larger images are downscaled after decoding.
	MaxImageDimension = 8192

	// MaxImagePixels caps the decoded pixel count (~40MP, ~160MB as RGBA).
	MaxImagePixels = 40_000_000
)

// IsEmpty reports whether img carries no pixels.
func IsEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}

// Width returns the pixel width of img, 0 when empty.
func Width(img image.Image) int {
	if img == nil {
		return 0
	}
	return img.Bounds().Dx()
}

// ScaleToHeight resizes img to the given height, keeping its aspect ratio.
// An image already at that height is returned unchanged.
func ScaleToHeight(img image.Image, height int) image.Image {
	if IsEmpty(img) || height <= 0 {
		return nil
	}
	if img.Bounds().Dy() == height {
		return img
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}

// Dimensions holds image width and height
type Dimensions struct {
	Width  int
	Height int
}

// GetDimensions returns image dimensions without fully decoding the image
func GetDimensions(path string) (Dimensions, error) {
	file, err := filesystem.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Width: config.Width, Height: config.Height}, nil
}

// LoadConstrained decodes the image at path without applying EXIF
// orientation, downscaling it when it exceeds the size limits. Orientation
// is left to the caller so the displayed transform stays a separate value.
func LoadConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	file, err := filesystem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Decode(file)
	if closeErr := file.Close(); closeErr != nil {
		logging.Warn("failed to close image file %s: %v", path, closeErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return img, nil
	}

	targetWidth, targetHeight := width, height
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}

	if targetPixels := targetWidth * targetHeight; targetPixels > maxPixels {
		// the budget is an area, so each side shrinks by its square root
		scale := math.Sqrt(float64(maxPixels) / float64(targetPixels))
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}
