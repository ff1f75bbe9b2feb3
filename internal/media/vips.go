package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"photo-browser/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogLevel returns the vips level matching the application log level.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

// vipsLogHandler forwards libvips messages into the application log.
func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	log := logging.For(domain)
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		log.Error("%s", msg)
	case vips.LogLevelWarning:
		log.Warn("%s", msg)
	default:
		log.Debug("%s", msg)
	}
}

// InitVips initializes the libvips library
// This should be called once at startup
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup to take effect.
	vips.LoggingSettings(vipsLogHandler, vipsLogLevel(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// LoadWithVips decodes path with libvips, shrinking during decode so that
// neither side exceeds maxDimension. Pixels are returned in stored
// orientation.
func LoadWithVips(path string, maxDimension int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	importParams := vips.NewImportParams()
	importParams.AutoRotate.Set(false)
	ref, err := vips.LoadImageFromFile(path, importParams)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	origWidth, origHeight := ref.Width(), ref.Height()
	if origWidth > maxDimension || origHeight > maxDimension {
		logging.Debug("Vips shrinking %s from %dx%d to fit %d",
			filepath.Base(path), origWidth, origHeight, maxDimension)
		if err := ref.Thumbnail(maxDimension, maxDimension, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips resize failed: %w", err)
		}
	}

	imgBytes, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        95,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
