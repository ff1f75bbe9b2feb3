package media

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"
	"sync"
)

// placeholderSize is the edge length placeholders and icons are drawn at
// before being scaled to the requested height.
const placeholderSize = 256

var (
	loadingOnce     sync.Once
	loadingImg      image.Image
	unavailableOnce sync.Once
	unavailableImg  image.Image
)

// LoadingPlaceholder is shown while a decoder is still working on an item.
func LoadingPlaceholder() image.Image {
	loadingOnce.Do(func() {
		loadingImg = drawPlaceholder(color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff},
			color.RGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff})
	})
	return loadingImg
}

// UnavailablePlaceholder is shown when no decoder is running or it failed
// for good.
func UnavailablePlaceholder() image.Image {
	unavailableOnce.Do(func() {
		unavailableImg = drawPlaceholder(color.RGBA{R: 0x50, G: 0x20, B: 0x20, A: 0xff},
			color.RGBA{R: 0xb0, G: 0x40, B: 0x40, A: 0xff})
	})
	return unavailableImg
}

// drawPlaceholder fills a square with bg and draws a centered frame in fg.
func drawPlaceholder(bg, fg color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	const inset, stroke = placeholderSize / 4, 8
	outer := image.Rect(inset, inset, placeholderSize-inset, placeholderSize-inset)
	inner := outer.Inset(stroke)
	for _, r := range []image.Rectangle{
		{Min: outer.Min, Max: image.Pt(outer.Max.X, inner.Min.Y)},
		{Min: image.Pt(outer.Min.X, inner.Max.Y), Max: outer.Max},
		{Min: image.Pt(outer.Min.X, inner.Min.Y), Max: image.Pt(inner.Min.X, inner.Max.Y)},
		{Min: image.Pt(inner.Max.X, inner.Min.Y), Max: image.Pt(outer.Max.X, inner.Max.Y)},
	} {
		draw.Draw(img, r, &image.Uniform{C: fg}, image.Point{}, draw.Src)
	}
	return img
}

// IconSource resolves a file-type icon for a path. Implementations that
// talk to a desktop icon theme must only be called from the presentation
// goroutine. A nil result means no icon is available.
type IconSource interface {
	Icon(path string) image.Image
}

// KindIcons is an IconSource that draws one flat badge per file Kind.
type KindIcons struct {
	mu    sync.Mutex
	cache map[Kind]image.Image
}

// Icon returns the badge for path's kind, or nil for unsupported files.
func (k *KindIcons) Icon(path string) image.Image {
	kind := KindOf(path)
	if kind == KindOther {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cache == nil {
		k.cache = make(map[Kind]image.Image)
	}
	if icon, ok := k.cache[kind]; ok {
		return icon
	}

	bg := color.RGBA{R: 0x2a, G: 0x5d, B: 0x8f, A: 0xff}
	if kind == KindRaw {
		bg = color.RGBA{R: 0x8f, G: 0x6a, B: 0x2a, A: 0xff}
	}
	icon := drawPlaceholder(bg, color.White)
	k.cache[kind] = icon
	return icon
}

// ExtensionLabel is the upper-cased extension without the dot, used when
// describing items ("CR2", "JPG").
func ExtensionLabel(path string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), "."))
}
