/*
Package workers sizes the decode worker pool.

Decoding a photo mixes I/O (reading a 30 MB RAW file, running exiftool) with
CPU work (demosaicing, scaling), so the pool defaults to 1.5 workers per
available CPU. CPUs are counted with runtime.GOMAXPROCS, which follows
container CPU limits since Go 1.19, rather than runtime.NumCPU, which
reports the host.

# Overrides

An explicit worker count wins over the calculation. It comes from the
decode_workers config setting, passed to [Resolve], or from the
DECODE_WORKERS environment variable read by [Count]:

	DECODE_WORKERS=2 photo-browser

Both are capped by the limit the caller passes; a limit of 0 means no cap.
*/
package workers
