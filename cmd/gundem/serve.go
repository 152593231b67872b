// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mertcagri25/gundem/internal/auth"
	authpg "github.com/mertcagri25/gundem/internal/auth/postgres"
	"github.com/mertcagri25/gundem/internal/logging"
	"github.com/mertcagri25/gundem/internal/observability"
	"github.com/mertcagri25/gundem/internal/store"
)

// Timeout for graceful shutdown of the observability server.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service: metrics endpoints and session janitor",
		Long: `Starts the observability HTTP server (metrics and health probes) and a
periodic sweeper that deletes expired sessions. Runs until interrupted.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("gundem", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	sessions := authpg.NewSessionRepository(pool)

	obsServer := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.MetricsAddr).Wrap(err)
	}

	slog.Info("service started",
		"metrics_addr", obsServer.Addr(),
		"sweep_interval", cfg.SweepInterval.String(),
	)

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		runSweeper(ctx, sessions, cfg.SweepInterval)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case serveErr := <-obsErrCh:
		if serveErr != nil {
			runErr = oops.Code("OBSERVABILITY_FAILED").Wrap(serveErr)
		}
	}

	stop()
	<-sweepDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Error("observability server shutdown failed", "error", err)
	}

	slog.Info("service stopped")
	return runErr
}

// runSweeper deletes expired sessions on a fixed interval until ctx is done.
// Sweep failures are logged and retried on the next tick.
func runSweeper(ctx context.Context, sessions auth.SessionRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				slog.Error("session sweep failed", "error", err)
				continue
			}
			auth.RecordSessionsSwept(deleted)
			if deleted > 0 {
				slog.Info("expired sessions swept", "deleted", deleted)
			}
		}
	}
}
