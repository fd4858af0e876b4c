// Command server is the entry point for the rental lifecycle API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/bootstrap"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/config"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/middleware"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/observability"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/scheduler"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/server"
)

// @title Rental Lifecycle API
// @version 1.0
// @description Applications, leases, payments and property operations for long-term rentals

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := middleware.SetupLogger(cfg.Env, os.Stdout)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "rental-lifecycle-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{
		SQLitePath: os.Getenv("SQLITE_PATH"),
		SeedDemo:   cfg.SeedOnStart,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sweeper, err := scheduler.New(cfg.ExpirySweepCron, srv.LeaseService())
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	sweeper.Start()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		select {
		case <-sweeper.Stop().Done():
		case <-ctx.Done():
			logger.Warn("expiry sweep still running at shutdown")
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
