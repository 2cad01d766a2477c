/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/maxldruck/printcalc/internal/server"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show revenue and counts across all ledgers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			stats, err := app.Projects.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledgers:  %d\n", stats.Ledgers)
			fmt.Fprintf(out, "projects: %d\n", stats.Projects)
			fmt.Fprintf(out, "items:    %d\n", stats.Items)
			fmt.Fprintf(out, "revenue:  %.2f EUR\n", stats.Revenue)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
