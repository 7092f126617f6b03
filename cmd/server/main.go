// Beacon is a business analytics dashboard server: it loads sales and
// customer CSV datasets, filters and aggregates them on demand, and serves
// KPIs, anomaly scans and forecasts over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mgalanis/beacon/internal/config"
	"github.com/mgalanis/beacon/internal/dataset"
	"github.com/mgalanis/beacon/internal/events"
	"github.com/mgalanis/beacon/internal/modules/analytics"
	"github.com/mgalanis/beacon/internal/modules/anomaly"
	"github.com/mgalanis/beacon/internal/modules/dashboard"
	"github.com/mgalanis/beacon/internal/modules/export"
	"github.com/mgalanis/beacon/internal/modules/filtering"
	"github.com/mgalanis/beacon/internal/modules/forecast"
	forecasthandlers "github.com/mgalanis/beacon/internal/modules/forecast/handlers"
	"github.com/mgalanis/beacon/internal/modules/insights"
	"github.com/mgalanis/beacon/internal/modules/kpi"
	"github.com/mgalanis/beacon/internal/modules/views"
	"github.com/mgalanis/beacon/internal/server"
	"github.com/mgalanis/beacon/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting beacon")

	bus := events.NewBus(log)

	// Optional S3 source: when configured, each refresh downloads the CSV
	// objects into the data directory before parsing.
	var fetcher dataset.Fetcher
	if cfg.S3Bucket != "" {
		s3Fetcher, err := dataset.NewS3Fetcher(context.Background(), dataset.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			SalesKey:      cfg.S3SalesKey,
			CustomersKey:  cfg.S3CustomersKey,
			SalesPath:     cfg.SalesPath(),
			CustomersPath: cfg.CustomersPath(),
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure S3 dataset source")
		}
		fetcher = s3Fetcher
	}

	loader := dataset.NewLoader(cfg.SalesPath(), cfg.CustomersPath(), log)
	data := dataset.NewService(loader, dataset.NewCache(cfg.CacheTTL), fetcher, bus, log)

	// Warm load. A missing dataset is not fatal; the server starts and
	// reports empty views until a refresh succeeds.
	if _, err := data.Refresh(context.Background(), "startup"); err != nil {
		log.Warn().Err(err).Msg("Initial dataset load failed")
	}

	// Services
	filters := filtering.NewService(log)
	kpis := kpi.NewService(log)
	analyticsSvc := analytics.NewService(log)
	anomalies := anomaly.NewDetector(log)
	forecasts := forecast.NewService(log)
	insightsSvc := insights.NewService(log)
	dashboardSvc := dashboard.NewService(filters, kpis, analyticsSvc, anomalies, forecasts, insightsSvc, log)
	exports := export.NewService(log)
	registry := views.NewRegistry(log)

	// Scheduled dataset refresh
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := data.Refresh(ctx, "schedule"); err != nil {
			log.Warn().Err(err).Msg("Scheduled dataset refresh failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.RefreshSpec).Msg("Invalid refresh schedule")
	}
	scheduler.Start()

	srv := server.New(server.Deps{
		Cfg:       cfg,
		Log:       log,
		Data:      data,
		Bus:       bus,
		Dashboard: dashboard.NewHandlers(data, dashboardSvc, log),
		Forecast:  forecasthandlers.NewHandlers(data, filters, analyticsSvc, forecasts, log),
		Export:    export.NewHandlers(data, filters, analyticsSvc, forecasts, exports, log),
		Sessions:  views.NewHandlers(registry, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stopped")
}
