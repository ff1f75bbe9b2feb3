package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"photo-browser/internal/logging"
	"photo-browser/internal/media"
)

// DefaultDecoder returns the decoder used when none is configured: libvips
// when useVips is set and libvips initialized, then the Go image decoders.
// Formats the Go decoders cannot read, RAW files included, fail with
// ErrUnsupported.
func DefaultDecoder(useVips bool) DecodeFunc {
	return func(ctx context.Context, path string, maxDimension int) (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if useVips && media.IsVipsAvailable() {
			img, err := media.LoadWithVips(path, maxDimension)
			if err == nil {
				return img, nil
			}
			logging.Debug("vips could not decode %s, trying Go decoders: %v", filepath.Base(path), err)
		}

		if media.KindOf(path) == media.KindRaw {
			return nil, fmt.Errorf("%w: no RAW decoder for %s", ErrUnsupported, media.ExtensionLabel(path))
		}

		img, err := media.LoadConstrained(path, maxDimension, media.MaxImagePixels)
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, media.ExtensionLabel(path))
		}
		return img, err
	}
}
