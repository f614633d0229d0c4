package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flightsync-service/internal/infrastructure/bootstrap"
	"flightsync-service/internal/infrastructure/config"
	"flightsync-service/internal/infrastructure/scheduler"
	"flightsync-service/pkg/logger"
	"flightsync-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Starting Flight Sync Service", "version", cfg.AppVersion, "providers", cfg.EnabledProviders)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, metrics.NewMetrics("flightsync"), log)
	if err != nil {
		log.Fatal("Failed to initialise sync engine", "error", err)
	}

	// Fare detail workers
	if app.Queue != nil {
		if _, err := app.Queue.Subscribe(ctx, cfg.FareTaskQueue, app.Fares.HandleTask); err != nil {
			log.Error("Failed to subscribe fare workers", "error", err)
		}
	}

	// Periodic sync loops
	sched := scheduler.NewScheduler(log)
	for _, job := range scheduler.SyncJobs(app.Orchestrator, app.Router.Providers(), scheduler.Intervals{
		Periods:      cfg.PeriodIntervals,
		RouteSync:    cfg.RouteSyncInterval,
		StatusSync:   cfg.StatusSyncInterval,
		Cleanup:      cfg.CleanupInterval,
		MissingCheck: cfg.MissingCheckInterval,
		DueCheck:     cfg.DueCheckInterval,
		FareFill:     cfg.FareFillInterval,
	}, log) {
		sched.Add(job)
	}
	sched.Start(ctx)

	// Set up HTTP server for metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // stop the sync loops and in-flight upstream calls
	sched.Wait()

	app.Close(shutdownCtx)

	log.Info("Flight Sync Service stopped")
}
