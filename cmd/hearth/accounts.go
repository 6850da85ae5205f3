package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage local accounts",
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			accounts, err := a.store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), accounts)
			}
			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No accounts found. Use 'hearth accounts add' to create one."))
				return nil
			}
			return cli.RenderAccounts(cmd.OutOrStdout(), accounts)
		},
	}

	cmd.Flags().Bool("json", false, "print the accounts as JSON")
	return cmd
}

func addAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a manual account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()
			id, _ := flags.GetString("id")
			rawType, _ := flags.GetString("type")
			rawBalance, _ := flags.GetString("balance")
			institution, _ := flags.GetString("institution")
			owner, _ := flags.GetString("owner")
			household, _ := flags.GetString("household")

			balance, err := decimal.NewFromString(rawBalance)
			if err != nil {
				return fmt.Errorf("invalid --balance %q", rawBalance)
			}
			if id == "" {
				id = uuid.NewString()
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			account := model.Account{
				ID:          id,
				Name:        args[0],
				Type:        model.NormalizeAccountType(rawType),
				Balance:     balance,
				Institution: institution,
				OwnerID:     owner,
				HouseholdID: household,
				IsManual:    true,
			}
			if err := a.store.CreateAccount(ctx, &account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created account %s (%s)", account.Name, account.ID)))
			return nil
		},
	}

	cmd.Flags().String("id", "", "account ID (default: generated)")
	cmd.Flags().String("type", "checking", "account type (checking, savings, credit, loan, investment, cash)")
	cmd.Flags().String("balance", "0", "current balance")
	cmd.Flags().String("institution", "", "institution name")
	cmd.Flags().String("owner", "", "owner ID")
	cmd.Flags().String("household", "", "household ID")
	return cmd
}
