/*
Package filesystem wraps os.Stat and os.Open with retries for stale NFS
file handles (ESTALE).

Photo libraries often live on network shares. A handle can go stale when
the server renames or replaces a file; the next attempt usually succeeds.
Only ESTALE is retried. Every other error is returned on the first attempt.

# Usage

	filesystem.SetVolumes(filesystem.NewVolumes(map[string]string{
	    "library":  cfg.LibraryDir,
	    "database": cfg.DatabaseDir,
	}))

	info, err := filesystem.Stat(path)
	f, err := filesystem.Open(path)

Custom policies go through StatWithRetry and OpenWithRetry:

	cfg := filesystem.RetryConfig{
	    MaxRetries:     5,
	    InitialBackoff: 100 * time.Millisecond,
	    MaxBackoff:     time.Second,
	}

# Defaults

  - MaxRetries: 3
  - InitialBackoff: 50ms, doubled per attempt
  - MaxBackoff: 500ms

# Metrics

Retries, stale errors, final failures and total duration are recorded per
operation ("stat", "open") and volume label. Paths outside every configured
volume are labelled "unknown".
*/
package filesystem
