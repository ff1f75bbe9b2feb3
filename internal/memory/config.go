package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"photo-browser/internal/logging"

	"github.com/dustin/go-humanize"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left to libvips, exiftool and goroutine stacks.
const DefaultMemoryRatio = 0.80

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source indicates where the configuration came from
	Source string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO unless
// GOMEMLIMIT is already set. Call it early in main, before large
// allocations.
func ConfigureFromEnv() ConfigResult {
	log := logging.For("memory")
	result := ConfigResult{Source: "none"}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		log.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		log.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return result
	}

	memLimit, err := ParseLimit(memLimitStr)
	if err != nil {
		log.Warn("Failed to parse MEMORY_LIMIT %q: %v", memLimitStr, err)
		return result
	}
	result.ContainerLimit = memLimit

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsedRatio, err := strconv.ParseFloat(ratioStr, 64); err == nil {
			if parsedRatio > 0 && parsedRatio <= 1.0 {
				ratio = parsedRatio
			} else {
				log.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
			}
		} else {
			log.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", ratioStr, err, DefaultMemoryRatio)
		}
	}
	result.Ratio = ratio

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = "MEMORY_LIMIT"
	result.GoMemLimit = goMemLimit

	log.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		humanize.IBytes(uint64(goMemLimit)),
		ratio*100,
		humanize.IBytes(uint64(memLimit)),
	)
	return result
}

// ParseLimit parses a memory limit given in plain bytes or with a unit
// ("512MiB", "2 GB").
func ParseLimit(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, strconv.ErrRange
		}
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(n), nil
}
