package collection

import (
	"context"
	"io/fs"
	"path/filepath"

	"photo-browser/internal/filesystem"
	"photo-browser/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Watch keeps the collection in sync with the library directory until ctx
// is done. New directories are watched as they appear.
func (c *Collection) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			c.log.Error("failed to close file watcher: %v", err)
		}
		metrics.WatchedDirectories.Set(0)
	}()

	watchCount := c.addDirectories(watcher, c.root)
	metrics.WatchedDirectories.Set(float64(watchCount))
	c.log.Info("Watching %d directories under %s", watchCount, c.root)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(ctx, watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// addDirectories adds dir and every non-hidden directory below it.
func (c *Collection) addDirectories(watcher *fsnotify.Watcher, dir string) int {
	watchCount := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			c.log.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
		} else {
			watchCount++
		}
		return nil
	})
	if err != nil {
		c.log.Error("failed to walk library directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

func (c *Collection) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if isHidden(filepath.Base(event.Name)) {
		return
	}
	metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Has(fsnotify.Create):
		c.handleCreate(ctx, watcher, event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// a rename is followed by a Create for the new name
		if !c.Remove(event.Name) {
			if n := c.RemoveTree(event.Name); n > 0 {
				c.log.Debug("removed %d items under %s", n, event.Name)
			}
		}
	}
}

func (c *Collection) handleCreate(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	info, err := filesystem.Stat(path)
	if err != nil {
		return
	}
	if !info.IsDir() {
		c.Add(path)
		return
	}

	n := c.addDirectories(watcher, path)
	metrics.WatchedDirectories.Add(float64(n))
	c.log.Debug("watching new directory %s", path)

	// files may land in the directory before the watch is in place
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if p != path && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isHidden(d.Name()) {
			c.Add(p)
		}
		return nil
	})
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
