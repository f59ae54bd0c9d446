package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smurphboy/Sat-Track/internal/api"
	"github.com/smurphboy/Sat-Track/internal/auth"
	"github.com/smurphboy/Sat-Track/internal/cache"
	"github.com/smurphboy/Sat-Track/internal/config"
	"github.com/smurphboy/Sat-Track/internal/httputil"
	"github.com/smurphboy/Sat-Track/internal/metrics"
	"github.com/smurphboy/Sat-Track/internal/passes"
	"github.com/smurphboy/Sat-Track/internal/stream"
	"github.com/smurphboy/Sat-Track/internal/tle"
)

func main() {
	configFile := flag.String("config", "", "config file (TOML, YAML or JSON); defaults to $SKYPASS_CONFIG")
	flag.Parse()

	cfg, err := config.Load(*configFile, nil)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)

	store := tle.NewStore()
	if cfg.TLEPath == "" {
		logger.Warn("no tle_path configured, serving without a catalog")
	} else if err := reload(store, cfg.TLEPath, logger); err != nil {
		logger.Warn("initial catalog load failed, starting without TLE data", "path", cfg.TLEPath, "error", err)
	}

	trajCache := cache.New(cache.Config{MaxEntries: cfg.CacheMaxEntries}, store, logger)
	limiter := httputil.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)

	defaults := api.Defaults{
		Window:     cfg.Window,
		Step:       cfg.Step,
		SearchStep: cfg.SearchStep,
		MaxSamples: cfg.MaxSamples,
		Workers:    cfg.Workers,
	}
	if obs, ok := cfg.Observer(); ok {
		defaults.Observer = &obs
	}
	defaults.MinElevation = cfg.MinElevation

	srv := api.NewServer(api.Options{
		Addr:       cfg.HTTPAddr,
		Logger:     logger,
		Auth:       auth.Config{Enabled: cfg.AuthEnabled, Token: cfg.AuthToken},
		Store:      store,
		Cache:      trajCache,
		Finder:     passes.NewFinder(logger),
		Limiter:    limiter,
		TrustProxy: cfg.TrustProxy,
		Stream: stream.Config{
			MaxConcurrentPerIP: cfg.StreamMaxConcurrent,
			BandwidthLimit:     cfg.StreamBandwidthLimit,
			KeepaliveInterval:  cfg.StreamKeepaliveInterval,
		},
		Defaults: defaults,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start cache background worker.
	go trajCache.Start(ctx)

	// Background goroutine to pick up catalog file changes and keep the
	// age gauge current.
	go func() {
		ticker := time.NewTicker(cfg.ReloadInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cfg.TLEPath != "" {
					if err := reload(store, cfg.TLEPath, logger); err != nil {
						logger.Warn("catalog reload failed, keeping current catalog", "path", cfg.TLEPath, "error", err)
					}
				}
				if ds := store.Get(); ds != nil {
					metrics.SetCatalog(len(ds.Catalog), store.AgeSeconds())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Forget idle rate limit buckets.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Debug("rate limiter sweep", "clients", limiter.Sweep())
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"auth_enabled", cfg.AuthEnabled,
			"tle_path", cfg.TLEPath,
			"rate_limit", cfg.RateLimit,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// reload loads the catalog at path and swaps it into store if it differs
// from the one already served.
func reload(store *tle.Store, path string, logger *slog.Logger) error {
	ds, err := tle.Load(path, logger)
	if err != nil {
		return err
	}
	if cur := store.Get(); cur != nil && cur.Source == ds.Source && cur.LoadedAt.Equal(ds.LoadedAt) {
		return nil
	}
	store.Set(ds)
	metrics.SetCatalog(len(ds.Catalog), store.AgeSeconds())
	logger.Info("catalog loaded",
		"source", ds.Source,
		"count", len(ds.Catalog),
		"loaded_at", ds.LoadedAt.Format(time.RFC3339),
		"epoch_min", ds.EpochRange.Min.Format(time.RFC3339),
		"epoch_max", ds.EpochRange.Max.Format(time.RFC3339),
	)
	return nil
}
