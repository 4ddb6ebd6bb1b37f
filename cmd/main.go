package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	grpcapi "live-transcript-service/internal/api/grpc"
	"live-transcript-service/internal/app"
	"live-transcript-service/internal/config"
	transporthttp "live-transcript-service/internal/http"
	"live-transcript-service/internal/ingest"
	"live-transcript-service/internal/observability"
	"live-transcript-service/internal/observability/logging"
	"live-transcript-service/internal/observability/metrics"
)

func main() {
	// A missing .env is fine; the environment and defaults still apply.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics and health
	obs := observability.NewServer(":"+cfg.Service.MetricsPort, func() bool {
		return application.Ingestor.State() == ingest.StateOpen
	})
	obs.Start()

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen for gRPC")
	}
	grpcServer := grpcapi.New(metrics.DefaultMetrics)
	grpcServer.Track(application.Ingestor)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	// Control surface and live view
	hub := transporthttp.NewHub(application.Session.View, cfg.Session.RefreshInterval)
	go hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           transporthttp.NewRouter(application, hub),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("Live transcript service started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	if cfg.Service.AutoConnect {
		if err := application.Ingestor.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("Auto-connect failed")
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	cancel()
	application.Shutdown()
	grpcServer.Shutdown()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown error")
	}
}
