package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvVar overrides the computed worker count.
const EnvVar = "DECODE_WORKERS"

// Count returns multiplier workers per available CPU, at least one and at
// most limit (0 for no limit). A positive DECODE_WORKERS value replaces the
// computed count but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvVar); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capped(count, limit)
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capped(workers, limit)
}

// ForMixed returns worker count for mixed I/O and CPU tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve returns requested when it is positive, capped by limit, and
// ForMixed(limit) otherwise.
func Resolve(requested, limit int) int {
	if requested > 0 {
		return capped(requested, limit)
	}
	return ForMixed(limit)
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}
