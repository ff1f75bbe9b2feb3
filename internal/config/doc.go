// Package config loads the photo browser's settings and logs the startup
// and shutdown banners.
//
// Settings are layered, later layers winning:
//
//  1. Built-in defaults.
//  2. A TOML file, ~/.config/photo-browser/config.toml unless another path
//     is given on the command line or in PHOTO_BROWSER_CONFIG. A missing
//     file is not an error.
//  3. Environment variables.
//
// # Settings
//
//	| toml key          | environment        | default                        |
//	|-------------------|--------------------|--------------------------------|
//	| library_dir       | LIBRARY_DIR        | .                              |
//	| database_dir      | DATABASE_DIR       | ~/.local/share/photo-browser   |
//	| listen            | LISTEN_ADDR        | 127.0.0.1:8088                 |
//	| metrics_enabled   | METRICS_ENABLED    | true                           |
//	| decode_workers    | DECODE_WORKERS     | 0 (1.5 per CPU)                |
//	| thumbnail_height  | THUMBNAIL_HEIGHT   | 500                            |
//	| coalesce_delay    | COALESCE_DELAY     | 100ms                          |
//	| combine_raw_jpeg  | COMBINE_RAW_JPEG   | true                           |
//	| exiftool          | EXIFTOOL_PATH      | exiftool                       |
//	| exiftool_rate     | EXIFTOOL_RATE      | 20 (runs per second, 0 = none) |
//	| use_vips          | USE_VIPS           | true                           |
//	| watch             | WATCH_LIBRARY      | true                           |
//	| log_health_checks | LOG_HEALTH_CHECKS  | false                          |
//
// Example config.toml:
//
//	library_dir = "~/Pictures/2026"
//	combine_raw_jpeg = false
//	coalesce_delay = "50ms"
//
// LOG_LEVEL, MEMORY_LIMIT, MEMORY_RATIO and GOMEMLIMIT are read by the
// logging and memory packages directly.
//
// Version, Commit and BuildTime are set at build time:
//
//	go build -ldflags "-X photo-browser/internal/config.Version=1.2.0"
package config
