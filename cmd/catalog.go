/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/maxldruck/printcalc/internal/server"
	"github.com/spf13/cobra"
)

// catalogCmd represents the catalog command.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the shared material and printer catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List materials and printers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			materials, err := app.Catalog.ListMaterials(cmd.Context())
			if err != nil {
				return err
			}
			printers, err := app.Catalog.ListPrinters(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tPRICE")
			for _, m := range materials {
				fmt.Fprintf(w, "material\t%s\t%.2f EUR/kg\n", m.Name, m.PricePerKg)
			}
			for _, p := range printers {
				fmt.Fprintf(w, "printer\t%s\t%.2f EUR/h\n", p.Name, p.CostPerHour)
			}
			return w.Flush()
		})
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Upsert materials and printers from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withApp(cmd, func(app *server.App) error {
			result, err := app.Catalog.ImportYAML(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d materials, %d printers\n", result.Materials, result.Printers)
			return nil
		})
	},
}

var catalogSetCmd = &cobra.Command{
	Use:   "set <material|printer> <name> <price>",
	Short: "Create or update one catalog entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid price %q", args[2])
		}

		return withApp(cmd, func(app *server.App) error {
			switch args[0] {
			case "material":
				m, err := app.Catalog.UpsertMaterial(cmd.Context(), args[1], price)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "material %s: %.2f EUR/kg\n", m.Name, m.PricePerKg)
			case "printer":
				p, err := app.Catalog.UpsertPrinter(cmd.Context(), args[1], price)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "printer %s: %.2f EUR/h\n", p.Name, p.CostPerHour)
			default:
				return fmt.Errorf("unknown catalog kind %q", args[0])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogImportCmd, catalogSetCmd)
}
