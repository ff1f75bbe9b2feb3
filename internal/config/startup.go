package config

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"photo-browser/internal/logging"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

const rule = "------------------------------------------------------------"

// RouteInfo holds information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

func section(title string, args ...interface{}) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

// LogStartup prints the banner, system information and the resolved
// configuration.
func LogStartup(cfg *Config) {
	printBanner()
	logSystemInfo()

	section("CONFIGURATION")
	if cfg.ConfigFile != "" {
		logging.Info("  Config file:         %s", cfg.ConfigFile)
	} else {
		logging.Info("  Config file:         (none, using defaults and environment)")
	}
	logging.Info("  LIBRARY_DIR:         %s", cfg.LibraryDir)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  LISTEN_ADDR:         %s", cfg.Listen)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	if cfg.DecodeWorkers > 0 {
		logging.Info("  DECODE_WORKERS:      %d", cfg.DecodeWorkers)
	} else {
		logging.Info("  DECODE_WORKERS:      auto")
	}
	logging.Info("  THUMBNAIL_HEIGHT:    %d", cfg.ThumbnailHeight)
	logging.Info("  COALESCE_DELAY:      %v", cfg.CoalesceDelay)
	logging.Info("  COMBINE_RAW_JPEG:    %v", cfg.CombineRawJPEG)
	logging.Info("  EXIFTOOL_PATH:       %s", cfg.Exiftool)
	logging.Info("  EXIFTOOL_RATE:       %v/s", cfg.ExiftoolRate)
	logging.Info("  USE_VIPS:            %v", cfg.UseVips)
	logging.Info("  WATCH_LIBRARY:       %v", cfg.Watch)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

// LogCatalogInit logs catalog initialization
func LogCatalogInit(path string, duration time.Duration) {
	section("CATALOG INITIALIZATION")
	logging.Info("  Catalog:    %s", path)
	logging.Info("  [OK] Catalog opened in %v", duration)
}

// LogMetadataInit logs which metadata backend is in use. err is the result
// of probing exiftool.
func LogMetadataInit(exiftool string, err error) {
	section("METADATA")
	if err != nil {
		logging.Warn("  exiftool check failed: %v", err)
		logging.Warn("  Falling back to built-in decoders; AF points will be unavailable")
		return
	}
	logging.Info("  [OK] %s is available", exiftool)
}

// LogDecoderInit logs the decode pipeline settings
func LogDecoderInit(workers int, vips bool) {
	section("DECODE PIPELINE")
	logging.Info("  Workers:    %d", workers)
	logging.Info("  libvips:    %s", enabledString(vips))
}

// LogScanComplete logs the initial library scan
func LogScanComplete(added, removed int, duration time.Duration, watching bool) {
	section("LIBRARY SCAN")
	logging.Info("  Added:      %d", added)
	logging.Info("  Removed:    %d", removed)
	logging.Info("  [OK] Scan completed in %v", duration)
	if watching {
		logging.Info("  Watching for changes")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Listen          string
	MetricsEnabled  bool
	Items           int
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Photos:          %s", humanize.Comma(int64(config.Items)))
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://%s/api/items", config.Listen)
	logging.Info("    Events:        http://%s/api/events", config.Listen)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://%s/metrics", config.Listen)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	section("SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __           ____
   / __ \/ /_  ____  / /_____     / __ )_________ _      __________  _____
  / /_/ / __ \/ __ \/ __/ __ \   / __  / ___/ __ \ | /| / / ___/ _ \/ ___/
 / ____/ / / / /_/ / /_/ /_/ /  / /_/ / /  / /_/ / |/ |/ (__  )  __/ /
/_/   /_/ /_/\____/\__/\____/  /_____/_/   \____/|__/|__/____/\___/_/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info(rule)
	logging.Info("SYSTEM INFORMATION")
	logging.Info(rule)
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	// a negative argument reads the limit without changing it
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < 1<<62 {
		logging.Info("  GOMEMLIMIT:      %s", humanize.IBytes(uint64(limit)))
	} else {
		logging.Info("  GOMEMLIMIT:      not set")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}
