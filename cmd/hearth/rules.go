package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Rules assign a category to imported transactions. They are evaluated in
priority order (lowest first) and the first match wins.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(loadRulesCmd())
	cmd.AddCommand(testRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No rules found. Use 'hearth rules add' to create one."))
				return nil
			}

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			return cli.RenderRules(cmd.OutOrStdout(), list, model.NewCategoryIndex(categories))
		},
	}

	cmd.Flags().Bool("json", false, "print the rules as JSON")
	return cmd
}

func addRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a rule",
		Example: `  hearth rules add "Coffee" --category Dining --merchant-contains starbucks
  hearth rules add "Rent" --category Housing --amount-equals 1800 --priority 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			spec, err := ruleSpecFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			rule, err := spec.Resolve(model.NewCategoryIndex(categories))
			if err != nil {
				return err
			}
			if err := a.store.CreateRule(ctx, &rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created rule #%d %q", rule.ID, rule.Name)))
			return nil
		},
	}

	cmd.Flags().String("category", "", "category name")
	cmd.Flags().Int("priority", 100, "evaluation priority, lower runs first")
	cmd.Flags().String("operator", "AND", "how predicates combine (AND, OR)")
	cmd.Flags().String("merchant-contains", "", "merchant contains text")
	cmd.Flags().String("merchant-equals", "", "merchant equals text")
	cmd.Flags().String("description-contains", "", "description contains text")
	cmd.Flags().String("description-equals", "", "description equals text")
	cmd.Flags().String("amount-equals", "", "exact amount, unsigned")
	cmd.Flags().String("amount-min", "", "minimum amount, inclusive")
	cmd.Flags().String("amount-max", "", "maximum amount, inclusive")
	cmd.Flags().StringSlice("account", nil, "restrict to account IDs")
	cmd.Flags().StringSlice("account-type", nil, "restrict to account types")
	cmd.Flags().StringSlice("owner", nil, "restrict to owner IDs")
	cmd.Flags().Bool("disabled", false, "create the rule disabled")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func ruleSpecFromFlags(cmd *cobra.Command, name string) (rules.RuleSpec, error) {
	flags := cmd.Flags()
	category, _ := flags.GetString("category")
	priority, _ := flags.GetInt("priority")
	operator, _ := flags.GetString("operator")
	disabled, _ := flags.GetBool("disabled")

	var cond model.RuleConditions
	cond.Operator = model.Operator(strings.ToUpper(operator))
	cond.MerchantContains, _ = flags.GetString("merchant-contains")
	cond.MerchantEquals, _ = flags.GetString("merchant-equals")
	cond.DescriptionContains, _ = flags.GetString("description-contains")
	cond.DescriptionEquals, _ = flags.GetString("description-equals")
	cond.AccountIDs, _ = flags.GetStringSlice("account")
	cond.AccountTypes, _ = flags.GetStringSlice("account-type")
	cond.OwnerIDs, _ = flags.GetStringSlice("owner")

	amounts := []struct {
		dst  **decimal.Decimal
		flag string
	}{
		{&cond.AmountEquals, "amount-equals"},
		{&cond.AmountMin, "amount-min"},
		{&cond.AmountMax, "amount-max"},
	}
	for _, a := range amounts {
		raw, _ := flags.GetString(a.flag)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return rules.RuleSpec{}, fmt.Errorf("invalid --%s %q", a.flag, raw)
		}
		*a.dst = &d
	}

	enabled := !disabled
	return rules.RuleSpec{
		Name:       name,
		Category:   category,
		Priority:   priority,
		Enabled:    &enabled,
		Conditions: cond,
	}, nil
}

func loadRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.yaml>",
		Short: "Create rules from a YAML file",
		Long: `Create every rule defined in a YAML file. The file is validated as a whole
and nothing is written when any rule is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			specs, err := rules.LoadFile(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			index := model.NewCategoryIndex(categories)

			loaded := make([]model.CategorizationRule, 0, len(specs))
			for _, spec := range specs {
				rule, err := spec.Resolve(index)
				if err != nil {
					return err
				}
				loaded = append(loaded, rule)
			}

			tx, err := a.store.BeginTx(ctx)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}
			for i := range loaded {
				if err := tx.CreateRule(ctx, &loaded[i]); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("failed to create rule %q: %w", loaded[i].Name, err)
				}
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit rules: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Loaded %d rules from %s", len(loaded), args[0])))
			return nil
		},
	}
}

func testRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <description>",
		Short: "Show which rule would categorize a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			merchant, _ := cmd.Flags().GetString("merchant")
			rawAmount, _ := cmd.Flags().GetString("amount")
			accountID, _ := cmd.Flags().GetString("account")

			amount, err := decimal.NewFromString(rawAmount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q", rawAmount)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			candidate := model.Candidate{
				Date:        model.DayOf(time.Now()),
				Amount:      amount,
				Description: args[0],
				Merchant:    merchant,
				AccountID:   accountID,
			}
			var householdID string
			if accountID != "" {
				account, err := a.store.GetAccount(ctx, accountID)
				if err != nil {
					return err
				}
				candidate.AccountType = string(account.Type)
				candidate.OwnerID = account.OwnerID
				householdID = account.HouseholdID
			}

			list, err := a.store.GetRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}
			list = rules.ForHousehold(list, householdID)
			evaluator := rules.NewEvaluator(list, a.logger)
			for _, skipped := range evaluator.Skipped() {
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(skipped.Error()))
			}

			decision := evaluator.Evaluate(candidate)
			if decision == nil {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No rule matches"))
				return nil
			}

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			name := fmt.Sprintf("#%d", decision.CategoryID)
			if cat, ok := model.NewCategoryIndex(categories).ByID(decision.CategoryID); ok {
				name = cat.Name
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule #%d %q → %s", decision.RuleID, decision.RuleName, name)))
			return nil
		},
	}

	cmd.Flags().String("merchant", "", "merchant name")
	cmd.Flags().String("amount", "0", "signed amount")
	cmd.Flags().String("account", "", "local account ID")
	return cmd
}
