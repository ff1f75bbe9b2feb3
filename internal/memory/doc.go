// Package memory keeps full-resolution decoding inside the process's memory
// budget.
//
// Decoding a RAW file at full size allocates tens of megabytes per worker,
// and libvips allocates outside the Go heap. The package does two things:
//
//   - [ConfigureFromEnv] sets GOMEMLIMIT from a container limit so the GC
//     works harder before the process is killed.
//   - [Monitor] samples heap usage and pauses decoders through
//     [Monitor.WaitIfPaused] while usage is above a critical mark.
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable; when set it wins.
//   - MEMORY_LIMIT: container limit, either in bytes or with a unit such as
//     "2GiB" or "512MB" (Kubernetes Downward API sets plain bytes).
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, between 0
//     and 1. Defaults to 0.80, leaving room for libvips and exiftool.
//
// # Backpressure
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	// in a decode worker
//	if err := monitor.WaitIfPaused(ctx); err != nil {
//	    return err
//	}
//
// The monitor pauses at the critical water mark and resumes once usage falls
// below the high water mark, so it does not flap around a single threshold.
package memory
