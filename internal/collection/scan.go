package collection

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"photo-browser/internal/filesystem"
	"photo-browser/internal/media"
)

// ScanResult summarizes a Scan.
type ScanResult struct {
	Added    int
	Removed  int
	Duration time.Duration
}

// Scan walks the library, adds supported files that are not yet present and
// removes records whose files are gone. Hidden files and directories are
// skipped.
func (c *Collection) Scan(ctx context.Context) (ScanResult, error) {
	start := time.Now()
	var result ScanResult
	seen := make(map[string]bool)

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			c.log.Warn("skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != c.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || media.KindOf(path) == media.KindOther {
			return nil
		}

		seen[path] = true
		if _, added := c.Add(path); added {
			result.Added++
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	c.mu.RLock()
	var gone []string
	for p := range c.byPath {
		if !seen[p] {
			gone = append(gone, p)
		}
	}
	c.mu.RUnlock()

	for _, p := range gone {
		// files outside the root were added explicitly and are kept while they exist
		if _, statErr := filesystem.Stat(p); statErr == nil && !c.contains(p) {
			continue
		}
		if c.Remove(p) {
			result.Removed++
		}
	}

	result.Duration = time.Since(start)
	c.log.Info("Scan complete: %d added, %d removed, %d items (%v)",
		result.Added, result.Removed, c.Len(), result.Duration.Round(time.Millisecond))
	return result, nil
}

// contains reports whether path lies inside the library directory.
func (c *Collection) contains(path string) bool {
	rel, err := filepath.Rel(c.root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
