package afpoints

import (
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"photo-browser/internal/metadata"
	"photo-browser/internal/metrics"
)

// Classification describes how an AF point is highlighted.
type Classification int

const (
	Normal Classification = iota
	Selected
	HasFocus
	Disabled
)

func (c Classification) String() string {
	switch c {
	case Selected:
		return "selected"
	case HasFocus:
		return "has_focus"
	case Disabled:
		return "disabled"
	default:
		return "normal"
	}
}

// MarshalText lets classifications appear by name in JSON.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (c *Classification) UnmarshalText(text []byte) error {
	parsed, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClassification returns the classification with the given name.
func ParseClassification(name string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "normal":
		return Normal, nil
	case "selected":
		return Selected, nil
	case "has_focus":
		return HasFocus, nil
	case "disabled":
		return Disabled, nil
	default:
		return Normal, fmt.Errorf("unknown AF point classification %q", name)
	}
}

// Point is one AF area in reference image coordinates.
type Point struct {
	Class Classification
	Rect  image.Rectangle
}

// Overlay is the decoded AF geometry of one image. Points keep the order of
// the metadata arrays.
type Overlay struct {
	Size   image.Point
	Points []Point
}

// Decode outcomes, also used as metric labels.
const (
	outcomeDecoded     = "decoded"
	outcomeNoData      = "no_data"
	outcomeUnsupported = "unsupported_model"
	outcomeMalformed   = "malformed"
)

// pointsPerGroup is the number of points described by one bitmask value.
const pointsPerGroup = 16

// maxPoints bounds the point count read from metadata.
const maxPoints = math.MaxInt32

// preallocPoints caps the capacity reserved before the per-point arrays
// have been read.
const preallocPoints = 1024

// Decode reads the AF tags from f. ok is false when the image has no usable
// AF data: no points, an unknown camera family, or incomplete per-point
// values. A partial overlay is never returned.
func Decode(f metadata.Facade) (Overlay, bool) {
	start := time.Now()
	overlay, outcome := decode(f)
	metrics.AFDecodeDuration.Observe(time.Since(start).Seconds())
	metrics.AFDecodesTotal.WithLabelValues(outcome).Inc()
	return overlay, outcome == outcomeDecoded
}

func decode(f metadata.Facade) (Overlay, string) {
	if f == nil {
		return Overlay{}, outcomeNoData
	}

	count, ok := f.IntTag(metadata.TagAFValidPoints, 0)
	if !ok || count <= 0 {
		return Overlay{}, outcomeNoData
	}

	model, ok := f.StringTag(metadata.TagModel)
	if !ok {
		return Overlay{}, outcomeNoData
	}
	flipY, ok := verticalSign(model)
	if !ok {
		return Overlay{}, outcomeUnsupported
	}

	width, okW := f.IntTag(metadata.TagAFCanonImageWidth, 0)
	height, okH := f.IntTag(metadata.TagAFCanonImageHeight, 0)
	if !okW || !okH {
		return Overlay{}, outcomeMalformed
	}

	if count > maxPoints {
		return Overlay{}, outcomeMalformed
	}

	points := make([]Point, 0, min(count, preallocPoints))
	for i := 0; i < int(count); i++ {
		rw, ok1 := f.IntTag(metadata.TagAFAreaWidths, i)
		rh, ok2 := f.IntTag(metadata.TagAFAreaHeights, i)
		x, ok3 := f.IntTag(metadata.TagAFXPositions, i)
		y, ok4 := f.IntTag(metadata.TagAFYPositions, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return Overlay{}, outcomeMalformed
		}

		x0 := x + width/2 - rw/2
		y0 := flipY*y + height/2 - rh/2
		points = append(points, Point{
			Class: classify(f, i),
			Rect: image.Rectangle{
				Min: image.Pt(int(x0), int(y0)),
				Max: image.Pt(int(x0+rw), int(y0+rh)),
			},
		})
	}

	return Overlay{Size: image.Pt(int(width), int(height)), Points: points}, outcomeDecoded
}

// verticalSign returns the factor applied to the vertical offset for the
// camera family named in model.
func verticalSign(model string) (int64, bool) {
	switch {
	case strings.Contains(model, "EOS"):
		return -1, true
	case strings.Contains(model, "PowerShot"):
		return 1, true
	default:
		return 0, false
	}
}

// classify checks the unusable mask first so it overrides focus and
// selection. A missing mask group reads as zero.
func classify(f metadata.Facade, i int) Classification {
	group, bit := i/pointsPerGroup, uint(i%pointsPerGroup)
	isSet := func(tag string) bool {
		mask, _ := f.IntTag(tag, group)
		return mask&(1<<bit) != 0
	}

	switch {
	case isSet(metadata.TagAFPointsUnusable):
		return Disabled
	case isSet(metadata.TagAFPointsInFocus):
		return HasFocus
	case isSet(metadata.TagAFPointsSelected):
		return Selected
	default:
		return Normal
	}
}

// FineRotation returns the AF fine rotation in degrees, anti-clockwise.
func FineRotation(f metadata.Facade) (float64, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f.IntTag(metadata.TagAFFineRotation, 0)
	if !ok {
		return 0, false
	}
	return float64(v) / 100, true
}

// Count returns how many points carry the given classification.
func (o Overlay) Count(c Classification) int {
	n := 0
	for _, p := range o.Points {
		if p.Class == c {
			n++
		}
	}
	return n
}
