package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontmesh/crossbus/internal/api"
	"github.com/frontmesh/crossbus/internal/archive"
	"github.com/frontmesh/crossbus/internal/bus"
	"github.com/frontmesh/crossbus/internal/config"
	"github.com/frontmesh/crossbus/internal/metrics"
	"github.com/frontmesh/crossbus/internal/models"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize archive mirror, if configured
	var arc archive.Archive
	switch {
	case cfg.DatabaseURL != "":
		pg, err := archive.NewPostgresArchive(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		arc = pg
		logger.Info().Msg("mirroring records to PostgreSQL")
	case cfg.RedisURL != "":
		rd, err := archive.NewRedisArchive(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		arc = rd
		logger.Info().Msg("mirroring records to Redis")
	case cfg.SQLitePath != "":
		sq, err := archive.NewSQLiteArchive(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		arc = sq
		logger.Info().Str("path", cfg.SQLitePath).Msg("mirroring records to SQLite")
	}
	if arc != nil {
		defer arc.Close()
	}

	// Create the registry; mirror writes are best-effort and never gate
	// a publish
	opts := []bus.Option{}
	if arc != nil {
		opts = append(opts, bus.WithMirror(func(rec *models.Record) {
			mctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			start := time.Now()
			if err := arc.Append(mctx, rec); err != nil {
				metrics.ArchiveErrors.WithLabelValues(arc.Name()).Inc()
				logger.Warn().Err(err).Str("record", rec.ID).Msg("archive mirror failed")
				return
			}
			metrics.ArchiveWrites.WithLabelValues(arc.Name()).Inc()
			metrics.ArchiveLatency.Observe(time.Since(start).Seconds())
		}))
	}
	reg := bus.New(logger, opts...)
	defer reg.Close()

	// Create router
	router := api.NewRouter(logger, reg, arc, cfg.HistoryPreview)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting crossbus server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
