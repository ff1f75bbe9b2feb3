package media

import (
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/math/f64"
)

// Orientation is how the stored pixels must be transformed for display.
type Orientation int

const (
	Normal Orientation = iota
	HFlip
	VFlip
	Rot180
	Rot90
	Rot90HFlip
	Rot90VFlip
	Rot270
)

var orientationNames = [...]string{
	Normal:     "NORMAL",
	HFlip:      "HFLIP",
	VFlip:      "VFLIP",
	Rot180:     "ROT_180",
	Rot90:      "ROT_90",
	Rot90HFlip: "ROT_90_HFLIP",
	Rot90VFlip: "ROT_90_VFLIP",
	Rot270:     "ROT_270",
}

func (o Orientation) String() string {
	if o < 0 || int(o) >= len(orientationNames) {
		return "NORMAL"
	}
	return orientationNames[o]
}

// OrientationFromExif maps the EXIF Orientation tag (1-8) to an
// Orientation. Out-of-range values are Normal.
func OrientationFromExif(code int64) Orientation {
	switch code {
	case 2:
		return HFlip
	case 3:
		return Rot180
	case 4:
		return VFlip
	case 5:
		return Rot90VFlip
	case 6:
		return Rot90
	case 7:
		return Rot90HFlip
	case 8:
		return Rot270
	default:
		return Normal
	}
}

// Flip is the mirroring component of an orientation.
type Flip int

const (
	NoFlip Flip = iota
	FlipHorizontal
	FlipVertical
)

// Transform is an orientation split into a flip applied first and a
// clockwise rotation applied second.
type Transform struct {
	Flip     Flip
	Rotation int // degrees clockwise: 0, 90, 180 or 270
}

// Derive splits an orientation into its flip and rotation components.
func Derive(o Orientation) Transform {
	var t Transform
	switch o {
	case HFlip, Rot90HFlip:
		t.Flip = FlipHorizontal
	case VFlip, Rot90VFlip:
		t.Flip = FlipVertical
	}
	switch o {
	case Rot180:
		t.Rotation = 180
	case Rot90, Rot90HFlip, Rot90VFlip:
		t.Rotation = 90
	case Rot270:
		t.Rotation = 270
	}
	return t
}

// IsIdentity reports whether t leaves pixels untouched.
func (t Transform) IsIdentity() bool {
	return t.Flip == NoFlip && t.Rotation == 0
}

// SwapsAxes reports whether t exchanges width and height.
func (t Transform) SwapsAxes() bool {
	return t.Rotation == 90 || t.Rotation == 270
}

// Size returns the displayed size of a w x h image.
func (t Transform) Size(w, h int) (int, int) {
	if t.SwapsAxes() {
		return h, w
	}
	return w, h
}

// Apply returns img flipped then rotated. The identity transform returns
// img itself.
func (t Transform) Apply(img image.Image) image.Image {
	if img == nil || t.IsIdentity() {
		return img
	}
	out := img
	switch t.Flip {
	case FlipHorizontal:
		out = imaging.FlipH(out)
	case FlipVertical:
		out = imaging.FlipV(out)
	}
	// imaging rotates counter-clockwise
	switch t.Rotation {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	return out
}

// Identity is the identity affine transform.
var Identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// Mul returns the affine transform applying b first and then a.
func Mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Matrix returns t as an affine map from source coordinates of a w x h
// image to display coordinates.
func (t Transform) Matrix(w, h int) f64.Aff3 {
	fw, fh := float64(w), float64(h)

	flip := Identity
	switch t.Flip {
	case FlipHorizontal:
		flip = f64.Aff3{-1, 0, fw, 0, 1, 0}
	case FlipVertical:
		flip = f64.Aff3{1, 0, 0, 0, -1, fh}
	}

	rot := Identity
	switch t.Rotation {
	case 90:
		rot = f64.Aff3{0, -1, fh, 1, 0, 0}
	case 180:
		rot = f64.Aff3{-1, 0, fw, 0, -1, fh}
	case 270:
		rot = f64.Aff3{0, 1, 0, -1, 0, fw}
	}
	return Mul(rot, flip)
}
