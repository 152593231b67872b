// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/mertcagri25/gundem/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Gundem CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gundem",
		Short: "Gundem - news portal authentication service",
		Long: `Gundem manages user credentials and sessions for the news portal:
password hashing with transparent legacy upgrades, registration,
external identity provisioning, and session issuance.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}

// loadConfig loads configuration using the command's flags as overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}
