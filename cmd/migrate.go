/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/maxldruck/printcalc/internal/db"
	"github.com/maxldruck/printcalc/internal/ledger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations to the shared database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		changed, err := db.Migrate(cfg.Database)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintln(cmd.OutOrStdout(), "shared database migrated")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "shared database up to date")
		}
		return nil
	},
}

var migrateLedgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "Upgrade every project ledger to the current schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		registry, err := ledger.NewRegistry(cfg.Ledger.Dir, logger)
		if err != nil {
			return err
		}
		keys, err := registry.Keys()
		if err != nil {
			return err
		}

		behind := 0
		for _, key := range keys {
			l, err := registry.OpenExisting(cmd.Context(), key)
			if err != nil {
				logger.Warn("open ledger", zap.String("ledger", key.String()), zap.Error(err))
				behind++
				continue
			}
			version := l.SchemaVersion()
			_ = l.Close()
			if version < ledger.CurrentSchemaVersion {
				behind++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tv%d\n", key, version)
		}
		if behind > 0 {
			return fmt.Errorf("%d of %d ledgers are not at schema v%d", behind, len(keys), ledger.CurrentSchemaVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateLedgersCmd)
}
