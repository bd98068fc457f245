// Package main is the entry point for the disk status exporter.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/diskstatus/internal/api"
	"github.com/nuclearlighters/diskstatus/internal/config"
	"github.com/nuclearlighters/diskstatus/internal/cooldown"
	"github.com/nuclearlighters/diskstatus/internal/device"
	"github.com/nuclearlighters/diskstatus/internal/scanner"
	"github.com/nuclearlighters/diskstatus/internal/smartctl"
	"github.com/nuclearlighters/diskstatus/internal/zpool"
)

func main() {
	// A .env file is optional; real deployments configure via environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.LogLevel)

	log.Info().
		Str("version", cfg.Version).
		Str("listen", cfg.ListenAddr()).
		Msg("Starting disk status exporter")

	// Build the scan engine. The cooldown table is the only state shared
	// across scans; it is constructed here and passed by reference.
	cd := cooldown.NewTable(cfg.CooldownDuration)
	enumerator := device.NewEnumerator(cfg.SysBlockPath, cfg.DevPath, cfg.ByIDPath)
	pools := zpool.NewResolver(cfg.ZpoolBinary, cfg.DevPath, cfg.ZpoolTimeout)
	prober := smartctl.NewProber(cfg.SmartctlBinary, cfg.ProbeTimeout, cd)

	sc := scanner.New(enumerator, pools, prober, scanner.Options{
		Attempts:    cfg.ProbeAttempts,
		SampleDelay: cfg.SampleDelay,
		Concurrency: cfg.ScanConcurrency,
	})

	source, scheduler := snapshotSource(cfg, sc)
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Dedicated registry so the disk metrics sit next to the standard
	// process/Go collectors without the default registry's globals.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		api.NewDiskCollector(source),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", api.NewHealthHandler(cfg).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	systemHandler := api.NewSystemHandler()
	scanHandler := api.NewScanHandler(source)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/system/info", systemHandler.GetInfo)
		r.Get("/scan", scanHandler.GetSnapshot)
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // scrapes can carry a full synchronous scan
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// snapshotSource wires the collector to the scanner. With no schedule,
// every scrape runs a scan; with a schedule, scans run in the background
// and scrapes serve the latest snapshot (falling back to a synchronous
// scan before the first scheduled run completes).
func snapshotSource(cfg *config.Settings, sc *scanner.Scanner) (api.SnapshotSource, *cron.Cron) {
	if cfg.ScanSchedule == "" {
		return sc.Scan, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ScanSchedule, func() {
		sc.Scan(context.Background())
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ScanSchedule).Msg("Invalid scan schedule")
	}
	log.Info().Str("schedule", cfg.ScanSchedule).Msg("Background scan schedule enabled")

	return func(ctx context.Context) *scanner.Snapshot {
		if snap := sc.Latest(); snap != nil {
			return snap
		}
		return sc.Scan(ctx)
	}, c
}

// setupLogging configures zerolog based on log level.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// requestLogger is middleware that logs HTTP requests using zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
