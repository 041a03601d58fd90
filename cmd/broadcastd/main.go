// Command broadcastd is the broadcast service's composition root: it loads
// configuration, wires the broadcast engine and its collaborators, and
// serves the HTTP API until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arung-agamani/denpa-broadcast/config"
	"github.com/arung-agamani/denpa-broadcast/internal/broadcast"
	"github.com/arung-agamani/denpa-broadcast/internal/encoder"
	"github.com/arung-agamani/denpa-broadcast/internal/fanout"
	"github.com/arung-agamani/denpa-broadcast/internal/fetcher"
	"github.com/arung-agamani/denpa-broadcast/internal/httpapi"
	"github.com/arung-agamani/denpa-broadcast/internal/identity"
	"github.com/arung-agamani/denpa-broadcast/internal/metrics"
	"github.com/arung-agamani/denpa-broadcast/internal/thumbnail"
	"github.com/arung-agamani/denpa-broadcast/internal/track"
)

// version is stamped at build time via -ldflags; left as a plain default
// outside of release builds.
var version = "dev"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	if err := fetcher.NewDepsChecker("ffmpeg", "yt-dlp").CheckAll(); err != nil {
		slog.Warn("some external tools are missing, affected tracks will fail to start", "error", err)
	}

	queue := track.NewQueue()
	bus := fanout.NewBus()
	resolver := fetcher.NewResolver(fetcher.Config{
		SoundCloudClientID:     cfg.SoundCloudClientID,
		YouTubeCookie:          cfg.YouTubeCookie,
		YouTubeCookieFile:      cfg.YouTubeCookieFile,
		YouTubeUserAgent:       cfg.YouTubeUserAgent,
		ExternalFetcherFormat:  cfg.ExternalFetcherFormat,
		DisableExternalFetcher: cfg.DisableExternalFetcher,
		ExternalFetcherFirst:   cfg.ExternalFetcherFirst,
	})
	id := identity.New(identity.Config{
		JWTSecret:  cfg.JWTSecret,
		AllowedIDs: cfg.AllowedIDs,
		AdminIDs:   cfg.AdminIDs,
	})
	thumb := thumbnail.New()
	engine := broadcast.New(queue, bus, resolver, encoder.DefaultConfig())

	router := httpapi.NewRouter(httpapi.Deps{
		Engine:       engine,
		Resolver:     resolver,
		Identity:     id,
		Thumbnail:    thumb,
		ClientOrigin: cfg.ClientOrigin,
		Version:      version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go engine.Run(ctx)
	go bus.RunIdleTicker(ctx)
	go reportGaugeMetrics(ctx, engine)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
	}()

	slog.Info("broadcast service listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", "error", err)
		os.Exit(1)
	}

	slog.Info("broadcast service stopped")
}

// reportGaugeMetrics periodically samples engine state into the listener
// count / queue length / paused gauges, since those reflect point-in-time
// state rather than a discrete event the engine already hooks.
func reportGaugeMetrics(ctx context.Context, engine *broadcast.Engine) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := engine.Snapshot()
			metrics.Listeners.Set(float64(snap.Listeners))
			metrics.QueueLength.Set(float64(len(snap.Queue)))
			if snap.Paused {
				metrics.Paused.Set(1)
			} else {
				metrics.Paused.Set(0)
			}
		}
	}
}
