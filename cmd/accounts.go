/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/maxldruck/printcalc/internal/server"
	"github.com/spf13/cobra"
)

// accountsCmd represents the accounts command.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			accounts, err := app.Accounts.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
			for _, a := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Username, a.Role)
			}
			return w.Flush()
		})
	},
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create <username> <password>",
	Short: "Register an account and provision its ledger",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			account, err := app.Accounts.Register(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %s (id %d)\n", account.Username, account.ID)
			return nil
		})
	},
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an account and irreversibly destroy its ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			if err := app.Accounts.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted account %s\n", args[0])
			return nil
		})
	},
}

var accountsRoleCmd = &cobra.Command{
	Use:   "role <username> <user|admin>",
	Short: "Change the role of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(app *server.App) error {
			account, err := app.Accounts.SetRole(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", account.Username, account.Role)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsCreateCmd, accountsDeleteCmd, accountsRoleCmd)
}
