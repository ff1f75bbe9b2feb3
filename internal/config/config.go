package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"photo-browser/internal/logging"

	toml "github.com/pelletier/go-toml/v2"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const (
	defaultConfigPath  = "~/.config/photo-browser/config.toml"
	defaultDatabaseDir = "~/.local/share/photo-browser"
	defaultListen      = "127.0.0.1:8088"
	defaultThumbHeight = 500
	defaultCoalesce    = 100 * time.Millisecond
	defaultExiftool    = "exiftool"
	defaultExifRate    = 20.0
)

// Config holds all application configuration
type Config struct {
	LibraryDir      string
	DatabaseDir     string
	Listen          string
	MetricsEnabled  bool
	DecodeWorkers   int
	ThumbnailHeight int
	CoalesceDelay   time.Duration
	CombineRawJPEG  bool
	Exiftool        string
	ExiftoolRate    float64
	UseVips         bool
	Watch           bool
	LogHealthChecks bool

	// ConfigFile is the file the settings were read from, empty when none
	// existed.
	ConfigFile string
}

// fileConfig mirrors Config in the TOML file. Durations are strings.
type fileConfig struct {
	LibraryDir      string  `toml:"library_dir"`
	DatabaseDir     string  `toml:"database_dir"`
	Listen          string  `toml:"listen"`
	MetricsEnabled  bool    `toml:"metrics_enabled"`
	DecodeWorkers   int     `toml:"decode_workers"`
	ThumbnailHeight int     `toml:"thumbnail_height"`
	CoalesceDelay   string  `toml:"coalesce_delay"`
	CombineRawJPEG  bool    `toml:"combine_raw_jpeg"`
	Exiftool        string  `toml:"exiftool"`
	ExiftoolRate    float64 `toml:"exiftool_rate"`
	UseVips         bool    `toml:"use_vips"`
	Watch           bool    `toml:"watch"`
	LogHealthChecks bool    `toml:"log_health_checks"`
}

func defaults() fileConfig {
	return fileConfig{
		LibraryDir:      ".",
		DatabaseDir:     defaultDatabaseDir,
		Listen:          defaultListen,
		MetricsEnabled:  true,
		ThumbnailHeight: defaultThumbHeight,
		CoalesceDelay:   defaultCoalesce.String(),
		CombineRawJPEG:  true,
		Exiftool:        defaultExiftool,
		ExiftoolRate:    defaultExifRate,
		UseVips:         true,
		Watch:           true,
	}
}

// Load reads the configuration. An empty path means PHOTO_BROWSER_CONFIG or
// the default location. The database directory is created if missing; the
// library directory must already exist.
func Load(path string) (*Config, error) {
	raw := defaults()

	if strings.TrimSpace(path) == "" {
		path = getEnv("PHOTO_BROWSER_CONFIG", defaultConfigPath)
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	configFile := ""
	data, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", resolved, err)
		}
		configFile = resolved
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("No config file at %s, using defaults", resolved)
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&raw)

	cfg, err := raw.resolve()
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile

	if err := ensureDirectory(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}

	info, err := os.Stat(cfg.LibraryDir)
	if err != nil {
		return nil, fmt.Errorf("library directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library directory %s is not a directory", cfg.LibraryDir)
	}

	return cfg, nil
}

func applyEnv(raw *fileConfig) {
	raw.LibraryDir = getEnv("LIBRARY_DIR", raw.LibraryDir)
	raw.DatabaseDir = getEnv("DATABASE_DIR", raw.DatabaseDir)
	raw.Listen = getEnv("LISTEN_ADDR", raw.Listen)
	raw.MetricsEnabled = getEnvBool("METRICS_ENABLED", raw.MetricsEnabled)
	raw.DecodeWorkers = getEnvInt("DECODE_WORKERS", raw.DecodeWorkers)
	raw.ThumbnailHeight = getEnvInt("THUMBNAIL_HEIGHT", raw.ThumbnailHeight)
	raw.CoalesceDelay = getEnv("COALESCE_DELAY", raw.CoalesceDelay)
	raw.CombineRawJPEG = getEnvBool("COMBINE_RAW_JPEG", raw.CombineRawJPEG)
	raw.Exiftool = getEnv("EXIFTOOL_PATH", raw.Exiftool)
	raw.ExiftoolRate = getEnvFloat("EXIFTOOL_RATE", raw.ExiftoolRate)
	raw.UseVips = getEnvBool("USE_VIPS", raw.UseVips)
	raw.Watch = getEnvBool("WATCH_LIBRARY", raw.Watch)
	raw.LogHealthChecks = getEnvBool("LOG_HEALTH_CHECKS", raw.LogHealthChecks)
}

// resolve validates raw and expands its paths.
func (raw fileConfig) resolve() (*Config, error) {
	libraryDir, err := expandPath(raw.LibraryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory path: %w", err)
	}
	databaseDir, err := expandPath(raw.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	delay, err := time.ParseDuration(raw.CoalesceDelay)
	if err != nil || delay <= 0 {
		logging.Warn("Invalid coalesce_delay %q, using default: %v", raw.CoalesceDelay, defaultCoalesce)
		delay = defaultCoalesce
	}

	thumbHeight := raw.ThumbnailHeight
	if thumbHeight <= 0 {
		logging.Warn("Invalid thumbnail_height %d, using default: %d", thumbHeight, defaultThumbHeight)
		thumbHeight = defaultThumbHeight
	}

	workers := raw.DecodeWorkers
	if workers < 0 {
		logging.Warn("Invalid decode_workers %d, using automatic sizing", workers)
		workers = 0
	}

	rate := raw.ExiftoolRate
	if rate < 0 {
		logging.Warn("Invalid exiftool_rate %v, disabling the limit", rate)
		rate = 0
	}

	listen := strings.TrimSpace(raw.Listen)
	if listen == "" {
		listen = defaultListen
	}
	exiftool := strings.TrimSpace(raw.Exiftool)
	if exiftool == "" {
		exiftool = defaultExiftool
	}

	return &Config{
		LibraryDir:      libraryDir,
		DatabaseDir:     databaseDir,
		Listen:          listen,
		MetricsEnabled:  raw.MetricsEnabled,
		DecodeWorkers:   workers,
		ThumbnailHeight: thumbHeight,
		CoalesceDelay:   delay,
		CombineRawJPEG:  raw.CombineRawJPEG,
		Exiftool:        exiftool,
		ExiftoolRate:    rate,
		UseVips:         raw.UseVips,
		Watch:           raw.Watch,
		LogHealthChecks: raw.LogHealthChecks,
	}, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("  Creating directory: %s", path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
