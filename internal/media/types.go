package media

import (
	"path/filepath"
	"strings"
)

// Kind classifies a file for RAW/processed pairing.
type Kind string

const (
	// KindRaw is a camera RAW file.
	KindRaw Kind = "raw"
	// KindProcessed is a developed, directly viewable image (JPEG, PNG, ...).
	KindProcessed Kind = "processed"
	// KindOther is anything the browser does not show.
	KindOther Kind = "other"
)

// RawExtensions maps file extensions to whether they are camera RAW formats.
var RawExtensions = map[string]bool{
	".cr2": true, ".cr3": true, ".crw": true, ".nef": true,
	".arw": true, ".dng": true, ".orf": true, ".rw2": true,
	".raf": true, ".pef": true, ".srw": true,
}

// ProcessedExtensions maps file extensions to whether they are supported
// processed image formats.
var ProcessedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
	".heic": true, ".heif": true,
}

// KindOf returns the Kind of path based on its extension.
func KindOf(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case RawExtensions[ext]:
		return KindRaw
	case ProcessedExtensions[ext]:
		return KindProcessed
	default:
		return KindOther
	}
}

// PairKey returns the key under which a RAW file and its processed sibling
// meet: the directory plus the lower-cased file stem. "IMG_0001.CR2" and
// "IMG_0001.jpg" in the same directory share a key.
func PairKey(path string) string {
	dir, name := filepath.Split(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, strings.ToLower(stem))
}

// IsJPEG reports whether path has a JPEG extension.
func IsJPEG(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg"
}
