package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-browser/internal/catalog"
	"photo-browser/internal/collection"
	"photo-browser/internal/config"
	"photo-browser/internal/dispatch"
	"photo-browser/internal/filesystem"
	"photo-browser/internal/handlers"
	"photo-browser/internal/logging"
	"photo-browser/internal/media"
	"photo-browser/internal/memory"
	"photo-browser/internal/metadata"
	"photo-browser/internal/metrics"
	"photo-browser/internal/middleware"
	"photo-browser/internal/pipeline"
	"photo-browser/internal/record"
	"photo-browser/internal/workers"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout  = 30 * time.Second
	metricsInterval  = time.Minute
	dispatchQueue    = 1024
	readHeaderLimit  = 15 * time.Second
	serverIdleLimit  = 60 * time.Second
	exiftoolProbeMax = 10 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default ~/.config/photo-browser/config.toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "photo-browser: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, configPath string) error {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	config.LogStartup(cfg)

	metrics.InitializeMetrics()
	filesystem.SetVolumes(filesystem.NewVolumes(map[string]string{
		"library":  cfg.LibraryDir,
		"database": cfg.DatabaseDir,
	}))

	if cfg.UseVips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, decoding with the pure Go path: %v", err)
		}
		defer media.ShutdownVips()
	}

	catStart := time.Now()
	cat, err := catalog.Open(ctx, cfg.DatabaseDir)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logging.Error("failed to close catalog: %v", err)
		}
	}()
	config.LogCatalogInit(cat.Path(), time.Since(catStart))

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loop := dispatch.New(dispatchQueue)
	go loop.Run(loopCtx)
	defer func() {
		stopLoop()
		loop.Wait()
	}()

	loader := newLoader(ctx, cfg)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()
	defer monitor.Stop()

	decodeWorkers := workers.Resolve(cfg.DecodeWorkers, 0)
	config.LogDecoderInit(decodeWorkers, cfg.UseVips && media.IsVipsAvailable())
	pipe := pipeline.New(pipeline.Options{
		Workers:         decodeWorkers,
		Loader:          loader,
		Decode:          pipeline.DefaultDecoder(cfg.UseVips),
		Memory:          monitor,
		ThumbnailHeight: cfg.ThumbnailHeight,
	})

	events := handlers.NewEvents()
	library, err := collection.New(ctx, collection.Options{
		Root: cfg.LibraryDir,
		Mode: record.ViewMode{CombineRawJPEG: cfg.CombineRawJPEG},
		Record: record.Options{
			Scheduler:       loop,
			CoalesceDelay:   cfg.CoalesceDelay,
			ReferenceHeight: cfg.ThumbnailHeight,
			Icons:           &media.KindIcons{},
		},
		Store: cat,
		OnAdd: func(r *record.Record) {
			events.Track(r)
			if err := pipe.Enqueue(r); err != nil && !errors.Is(err, pipeline.ErrStopped) {
				logging.Error("failed to queue %s: %v", r.Path(), err)
			}
		},
		OnRemove: func(r *record.Record) {
			pipe.Cancel(r)
			events.Untrack(r)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	defer library.Close()

	pipe.Start(ctx)
	defer pipe.Stop()

	collector := metrics.NewCollector(library, metricsInterval)
	collector.Start()
	defer collector.Stop()

	h := handlers.New(library, pipe, loop, events, cat, cfg)
	router := setupRouter(h, events, cfg.MetricsEnabled)
	config.LogHTTPRoutes(router, cfg.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.LogHealthChecks
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(
		middleware.Logger(loggingConfig)(
			middleware.Metrics(middleware.DefaultMetricsConfig())(router)))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderLimit,
		IdleTimeout:       serverIdleLimit,
		// event streams end when ctx does
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	go scanLibrary(ctx, library, cat, h, cfg.Watch)

	config.LogServerStarted(config.ServerConfig{
		Listen:          cfg.Listen,
		MetricsEnabled:  cfg.MetricsEnabled,
		Items:           library.Len(),
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	config.LogShutdownInitiated("signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	config.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error: %v", err)
	} else {
		config.LogShutdownStepComplete("HTTP server stopped")
	}

	config.LogShutdownStep("Stopping decode pipeline")
	pipe.Stop()
	config.LogShutdownStepComplete("Decode pipeline stopped")

	config.LogShutdownComplete()
	return nil
}

// newLoader returns exiftool backed by the built-in decoders, or the
// built-in decoders alone when exiftool cannot be run.
func newLoader(ctx context.Context, cfg *config.Config) metadata.Loader {
	exiftool := metadata.NewExiftool(cfg.Exiftool, cfg.ExiftoolRate)

	probeCtx, cancel := context.WithTimeout(ctx, exiftoolProbeMax)
	defer cancel()
	err := exiftool.Check(probeCtx)
	config.LogMetadataInit(cfg.Exiftool, err)
	if err != nil {
		return metadata.Basic{}
	}
	return metadata.Fallback{Primary: exiftool, Secondary: metadata.Basic{}}
}

// scanLibrary runs the initial scan, records its time and then watches the
// library until ctx is done.
func scanLibrary(ctx context.Context, library *collection.Collection, cat *catalog.Catalog, h *handlers.Handlers, watch bool) {
	result, err := library.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error("library scan failed: %v", err)
		}
		return
	}
	if err := cat.SetLastScan(ctx, time.Now()); err != nil {
		logging.Warn("failed to store last scan time: %v", err)
	}
	h.MarkReady()
	config.LogScanComplete(result.Added, result.Removed, result.Duration, watch)

	if !watch {
		return
	}
	if err := library.Watch(ctx); err != nil {
		logging.Error("library watcher stopped: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, events *handlers.Events, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items/{id}", h.GetItem).Methods("GET")
	api.HandleFunc("/items/{id}/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/items/{id}/afpoints", h.GetAFPoints).Methods("GET")
	api.HandleFunc("/items/{id}/checked", h.SetChecked).Methods("PUT")
	api.HandleFunc("/items/{id}/decode", h.RestartDecode).Methods("POST")
	api.Handle("/events", events).Methods("GET")

	return r
}
