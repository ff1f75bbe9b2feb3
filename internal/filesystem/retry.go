package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"photo-browser/internal/logging"
	"photo-browser/internal/metrics"
)

// Operation labels used in logs and metrics.
const (
	OpStat = "stat"
	OpOpen = "open"
)

const unknownVolume = "unknown"

// Volumes maps file paths to volume labels by longest matching prefix.
type Volumes struct {
	mounts []mount
}

type mount struct {
	prefix string // absolute, with trailing separator
	name   string
}

// NewVolumes builds a resolver from label to directory, for example
// {"library": "/photos", "database": "/var/lib/photo-browser"}.
func NewVolumes(dirs map[string]string) *Volumes {
	mounts := make([]mount, 0, len(dirs))
	for name, dir := range dirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		if !strings.HasSuffix(abs, string(filepath.Separator)) {
			abs += string(filepath.Separator)
		}
		mounts = append(mounts, mount{prefix: abs, name: name})
	}
	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].prefix) > len(mounts[j].prefix)
	})
	return &Volumes{mounts: mounts}
}

// Label returns the volume label for path, or "unknown".
func (v *Volumes) Label(path string) string {
	if v == nil {
		return unknownVolume
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return unknownVolume
	}
	abs += string(filepath.Separator)
	for _, m := range v.mounts {
		if strings.HasPrefix(abs, m.prefix) {
			return m.name
		}
	}
	return unknownVolume
}

var defaultVolumes atomic.Pointer[Volumes]

// SetVolumes installs the resolver used when a RetryConfig carries none.
func SetVolumes(v *Volumes) {
	defaultVolumes.Store(v)
}

// RetryConfig controls retries of stale NFS handles.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Volumes overrides the package resolver for metric labels.
	Volumes *Volumes
}

// DefaultRetryConfig returns 3 retries backing off from 50ms to 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c RetryConfig) volume(path string) string {
	if c.Volumes != nil {
		return c.Volumes.Label(path)
	}
	return defaultVolumes.Load().Label(path)
}

func isStale(err error) bool {
	return err != nil && errors.Is(err, syscall.ESTALE)
}

// Stat is os.Stat with the default retry policy.
func Stat(path string) (os.FileInfo, error) {
	return StatWithRetry(path, DefaultRetryConfig())
}

// Open is os.Open with the default retry policy.
func Open(path string) (*os.File, error) {
	return OpenWithRetry(path, DefaultRetryConfig())
}

// StatWithRetry runs os.Stat, retrying stale file handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return retry(OpStat, path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry runs os.Open, retrying stale file handle errors.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return retry(OpOpen, path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

func retry[T any](op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.volume(path)
	defer func() {
		metrics.FilesystemRetryDuration.WithLabelValues(op, volume).Observe(time.Since(start).Seconds())
	}()

	backoff := config.InitialBackoff
	var zero T
	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetrySuccess.WithLabelValues(op, volume).Inc()
			}
			return v, nil
		}
		if !isStale(err) {
			return zero, err
		}
		lastErr = err
		metrics.FilesystemStaleErrors.WithLabelValues(op, volume).Inc()

		if attempt < config.MaxRetries {
			metrics.FilesystemRetryAttempts.WithLabelValues(op, volume).Inc()
			logging.Debug("%s: stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff = min(backoff*2, config.MaxBackoff)
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetryFailures.WithLabelValues(op, volume).Inc()
	return zero, lastErr
}
