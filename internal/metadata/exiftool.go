package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"photo-browser/internal/logging"
	"photo-browser/internal/media"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegn"
	"golang.org/x/time/rate"
)

// previewTimeout bounds the lazy preview extraction, which runs outside
// any caller context.
const previewTimeout = 30 * time.Second

// exiftoolFields maps exiftool's flat JSON keys (with -n) to tag names.
var exiftoolFields = map[string]string{
	"Make":             TagMake,
	"Model":            TagModel,
	"Orientation":      TagOrientation,
	"ImageWidth":       TagImageWidth,
	"ImageHeight":      TagImageHeight,
	"ValidAFPoints":    TagAFValidPoints,
	"CanonImageWidth":  TagAFCanonImageWidth,
	"CanonImageHeight": TagAFCanonImageHeight,
	"AFAreaWidths":     TagAFAreaWidths,
	"AFAreaHeights":    TagAFAreaHeights,
	"AFAreaXPositions": TagAFXPositions,
	"AFAreaYPositions": TagAFYPositions,
	"AFPointsInFocus":  TagAFPointsInFocus,
	"AFPointsSelected": TagAFPointsSelected,
	"AFPointsUnusable": TagAFPointsUnusable,
	"AFFineRotation":   TagAFFineRotation,
}

// stringFields are kept as strings even when they look numeric.
var stringFields = map[string]bool{TagMake: true, TagModel: true}

// previewFields lists binary tags holding an embedded JPEG, best first.
var previewFields = []string{"PreviewImage", "JpgFromRaw", "ThumbnailImage"}

// Exiftool loads metadata by running the exiftool binary.
type Exiftool struct {
	path    string
	limiter *rate.Limiter
	log     logging.Logger
}

// NewExiftool returns a loader running the binary at path. Process spawns
// are limited to perSecond; zero or less disables the limit.
func NewExiftool(path string, perSecond float64) *Exiftool {
	limit, burst := rate.Inf, 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(math.Max(1, perSecond))
	}
	return &Exiftool{
		path:    path,
		limiter: rate.NewLimiter(limit, burst),
		log:     logging.For("exiftool"),
	}
}

// Check verifies the binary can be run and logs its version.
func (e *Exiftool) Check(ctx context.Context) error {
	resolved, err := exec.LookPath(e.path)
	if err != nil {
		return fmt.Errorf("exiftool not found: %w", err)
	}
	e.log.Debug("exiftool path: %s", resolved)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, resolved, "-ver").Output()
	if err != nil {
		return fmt.Errorf("failed to get exiftool version: %w", err)
	}
	e.log.Debug("exiftool version: %s", strings.TrimSpace(string(out)))
	return nil
}

// Load implements Loader.
func (e *Exiftool) Load(ctx context.Context, path string) (Facade, error) {
	out, err := e.run(ctx, "-j", "-n", "-fast", path)
	if err != nil {
		return nil, err
	}

	tags, previewTag, err := parseExiftool(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse exiftool output for %s: %w", path, err)
	}

	if previewTag != "" {
		tags.SetPreviewFunc(func() image.Image {
			ctx, cancel := context.WithTimeout(context.Background(), previewTimeout)
			defer cancel()
			data, err := e.run(ctx, "-b", "-"+previewTag, path)
			if err != nil {
				e.log.Warn("preview extraction failed for %s: %v", path, err)
				return nil
			}
			img, err := DecodePreview(data)
			if err != nil {
				e.log.Warn("preview decode failed for %s: %v", path, err)
				return nil
			}
			return img
		})
	}
	return tags, nil
}

func (e *Exiftool) run(ctx context.Context, args ...string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("exiftool error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// parseExiftool converts `exiftool -j -n` output for a single file into
// Tags. It also returns the name of the best embedded preview tag, if any.
func parseExiftool(data []byte) (*Tags, string, error) {
	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", errors.New("no entries")
	}
	entry := entries[0]

	tags := NewTags()
	for key, name := range exiftoolFields {
		value, ok := entry[key]
		if !ok {
			continue
		}
		if stringFields[name] {
			tags.SetString(name, strings.TrimSpace(fmt.Sprint(value)))
			continue
		}
		if ints, ok := toInts(value); ok {
			tags.SetInt(name, ints...)
		}
	}

	if code, ok := tags.IntTag(TagOrientation, 0); ok {
		tags.SetOrientation(media.OrientationFromExif(code))
	}

	previewTag := ""
	for _, key := range previewFields {
		if _, ok := entry[key]; ok {
			previewTag = key
			break
		}
	}
	return tags, previewTag, nil
}

// toInts accepts a JSON number or a space separated list of numbers.
func toInts(value any) ([]int64, bool) {
	switch v := value.(type) {
	case float64:
		return []int64{int64(v)}, true
	case string:
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return nil, false
		}
		out := make([]int64, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, false
			}
			out = append(out, int64(n))
		}
		return out, true
	default:
		return nil, false
	}
}

// DecodePreview decodes an embedded preview. JPEG data goes through jpegn,
// anything else through imaging. EXIF orientation is not applied.
func DecodePreview(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty preview")
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return jpegn.Decode(bytes.NewReader(data), &jpegn.Options{
			ToRGBA:         true,
			UpsampleMethod: jpegn.CatmullRom,
		})
	}
	return imaging.Decode(bytes.NewReader(data))
}
