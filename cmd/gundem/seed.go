// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/mertcagri25/gundem/internal/auth"
	authpg "github.com/mertcagri25/gundem/internal/auth/postgres"
	"github.com/mertcagri25/gundem/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// Initial portal accounts. The password hashes are the historical raw SHA-256
// digests so the first login exercises the transparent upgrade path.
var seedUsers = []struct {
	username string
	email    string
	digest   string
	role     auth.Role
}{
	{
		username: "admin",
		email:    "admin@newsportal.com",
		digest:   "jGl25bVBBBW96Qi9Te4V37Fnqchz/Eu4qB9vKrRIqRg=",
		role:     auth.RoleAdmin,
	},
	{
		username: "user",
		email:    "user@newsportal.com",
		digest:   "6bq/p3MJUvWPqpRRjXv7k+8mXkLe0Y4E8NpGNfhYJac=",
		role:     auth.RoleUser,
	},
}

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the initial portal accounts",
		Long: `Creates the initial admin and user accounts.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.NewPool(ctx, appCfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	migrator, err := store.NewMigrator(appCfg.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() { _ = migrator.Close() }()
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	users := authpg.NewUserRepository(pool)

	for _, seed := range seedUsers {
		user, err := auth.NewUser(seed.username, seed.email, seed.digest, seed.role)
		if err != nil {
			return oops.Code("SEED_FAILED").
				With("operation", "build seed user").
				With("username", seed.username).
				Wrap(err)
		}

		if err := users.Create(ctx, user); err != nil {
			// Duplicates mean a previous seed run already created the account
			if errors.Is(err, auth.ErrDuplicateUsername) || errors.Is(err, auth.ErrDuplicateEmail) {
				cmd.Printf("Account %q already exists, skipping\n", seed.username)
				slog.Info("seed account already present", "username", seed.username)
				continue
			}
			return oops.Code("SEED_FAILED").
				With("operation", "create seed user").
				With("username", seed.username).
				Wrap(err)
		}

		cmd.Printf("Created account %q (%s)\n", seed.username, seed.role)
		slog.Info("created seed account", "username", seed.username, "role", string(seed.role))
	}

	cmd.Println("Seeding complete")
	return nil
}
