// Medication adherence review API. Reconstructs stock timelines from
// pharmacy software exports and serves them over HTTP for clinical
// medication reviews.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/giygas/adherence-api/config"
	"github.com/giygas/adherence-api/data"
	"github.com/giygas/adherence-api/dispensingparser"
	"github.com/giygas/adherence-api/handlers"
	"github.com/giygas/adherence-api/health"
	"github.com/giygas/adherence-api/logging"
	"github.com/giygas/adherence-api/samclient"
	"github.com/giygas/adherence-api/scheduler"
	"github.com/giygas/adherence-api/server"
	"github.com/giygas/adherence-api/validation"

	_ "net/http/pprof"
)

func main() {
	// .env is optional, real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLoggerWithRetentionAndSize("logs", cfg.Env, cfg.LogLevel, false, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	defer func() {
		if logging.DefaultLoggingService != nil {
			_ = logging.DefaultLoggingService.Close()
		}
	}()

	// Data container with atomic snapshot swaps
	dataStore := data.NewDataContainer()
	dataStore.SetServerStartTime(time.Now())

	// Import pipeline: export files -> parser -> canonical code resolver
	parser := dispensingparser.NewMedicationParser(cfg.ExportDir)
	resolver := samclient.NewClient(cfg.SamBaseURL, time.Duration(cfg.SamTimeoutSeconds)*time.Second)
	sched := scheduler.NewScheduler(dataStore, parser, resolver)

	// HTTP layer
	validator := validation.NewDataValidator()
	healthChecker := health.NewHealthChecker(dataStore)
	handler := handlers.NewHTTPHandler(dataStore, validator, sched, healthChecker)
	srv := server.NewServer(cfg, dataStore, handler, healthChecker)

	// Initial import plus twice-daily refreshes
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start the rebuild scheduler", "error", err)
		os.Exit(1)
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Block until a signal is received
	<-quit

	sched.Stop()

	// Create a context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
}
