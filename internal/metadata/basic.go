package metadata

import (
	"context"
	"fmt"
	"image"
	"io"

	"photo-browser/internal/filesystem"
	"photo-browser/internal/logging"
	"photo-browser/internal/media"

	"github.com/gen2brain/jpegn"
)

// Basic reads only the image header. It is used for processed files when
// exiftool is unavailable; every camera tag reads as absent.
type Basic struct{}

// Load implements Loader.
func (Basic) Load(ctx context.Context, path string) (Facade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	cfg, err := decodeConfig(file, media.IsJPEG(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	return NewTags().
		SetInt(TagImageWidth, int64(cfg.Width)).
		SetInt(TagImageHeight, int64(cfg.Height)), nil
}

func decodeConfig(r io.Reader, jpeg bool) (image.Config, error) {
	if jpeg {
		return jpegn.DecodeConfig(r)
	}
	cfg, _, err := image.DecodeConfig(r)
	return cfg, err
}

// Fallback tries Primary first and uses Secondary when it fails.
type Fallback struct {
	Primary   Loader
	Secondary Loader
}

// Load implements Loader.
func (f Fallback) Load(ctx context.Context, path string) (Facade, error) {
	facade, err := f.Primary.Load(ctx, path)
	if err == nil {
		return facade, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logging.Debug("primary metadata loader failed for %s: %v", path, err)
	return f.Secondary.Load(ctx, path)
}
