// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mertcagri25/gundem/internal/auth"
	authpg "github.com/mertcagri25/gundem/internal/auth/postgres"
	"github.com/mertcagri25/gundem/internal/store"
)

// Default timeout for sweep command.
const defaultSweepTimeout = 30 * time.Second

// sweepConfig holds configuration for the sweep command.
type sweepConfig struct {
	timeout time.Duration
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	cfg := &sweepConfig{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long:  `Deletes all sessions past their expiry time and reports the count.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSweepTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSweep(cmd *cobra.Command, _ []string, cfg *sweepConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	pool, err := store.NewPool(ctx, appCfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	sessions := authpg.NewSessionRepository(pool)
	deleted, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return oops.Code("SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}

	auth.RecordSessionsSwept(deleted)
	slog.Info("expired sessions swept", "deleted", deleted)
	cmd.Printf("Deleted %d expired session(s)\n", deleted)
	return nil
}
