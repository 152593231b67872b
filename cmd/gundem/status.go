// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mertcagri25/gundem/internal/store"
)

// Default timeout for status command.
const defaultStatusTimeout = 5 * time.Second

// DatabaseStatus holds connectivity and schema state for the status output.
type DatabaseStatus struct {
	Reachable     bool   `json:"reachable"`
	SchemaVersion uint   `json:"schema_version,omitempty"`
	Dirty         bool   `json:"dirty,omitempty"`
	Pending       []uint `json:"pending_migrations,omitempty"`
	Error         string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database connectivity and schema status",
		Long:  `Checks that the database is reachable and reports the migration version and any pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := appCfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultStatusTimeout)
	defer cancel()

	status := queryDatabaseStatus(ctx, appCfg.DatabaseURL)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryDatabaseStatus pings the database and reads the migration state.
func queryDatabaseStatus(ctx context.Context, databaseURL string) DatabaseStatus {
	var status DatabaseStatus

	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer pool.Close()
	status.Reachable = true

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		status.Error = fmt.Sprintf("failed to inspect migrations: %v", err)
		return status
	}
	defer func() { _ = migrator.Close() }()

	version, dirty, err := migrator.Version()
	if err != nil {
		status.Error = fmt.Sprintf("failed to read schema version: %v", err)
		return status
	}
	status.SchemaVersion = version
	status.Dirty = dirty

	pending, err := migrator.PendingMigrations()
	if err != nil {
		status.Error = fmt.Sprintf("failed to list pending migrations: %v", err)
		return status
	}
	status.Pending = pending

	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status DatabaseStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "DATABASE\tSCHEMA\tPENDING\tNOTES")
	_, _ = fmt.Fprintln(w, "--------\t------\t-------\t-----")

	db := "unreachable"
	if status.Reachable {
		db = "ok"
	}
	schema := fmt.Sprintf("v%d", status.SchemaVersion)
	if status.Dirty {
		schema += " (dirty)"
	}
	notes := "-"
	if status.Error != "" {
		notes = status.Error
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", db, schema, len(status.Pending), notes)

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status DatabaseStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
