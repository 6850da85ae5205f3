package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List and add the categories that rules and imports assign to transactions.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), categories)
			}
			if len(categories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No categories found. Use 'hearth categories add' to create one."))
				return nil
			}
			return cli.RenderCategories(cmd.OutOrStdout(), categories)
		},
	}

	cmd.Flags().Bool("json", false, "print the categories as JSON")
	return cmd
}

func addCategoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rawType, _ := cmd.Flags().GetString("type")

			categoryType, err := parseCategoryType(rawType)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			category, err := a.store.CreateCategory(ctx, args[0], categoryType)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category #%d %s", category.ID, category.Name)))
			return nil
		},
	}

	cmd.Flags().String("type", "expense", "category type (expense, income, transfer)")
	return cmd
}

func parseCategoryType(raw string) (model.CategoryType, error) {
	switch t := model.CategoryType(strings.ToLower(strings.TrimSpace(raw))); t {
	case model.CategoryTypeExpense, model.CategoryTypeIncome, model.CategoryTypeTransfer:
		return t, nil
	default:
		return "", fmt.Errorf("invalid category type %q: must be expense, income or transfer", raw)
	}
}
