package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/hearth/internal/cli"
	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/config"
	"github.com/Veraticus/hearth/internal/importer"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/plaid"
	"github.com/Veraticus/hearth/internal/reconcile"
	"github.com/Veraticus/hearth/internal/simplefin"
)

// newFetcher builds the configured bank feed client. Tests replace it with a mock.
var newFetcher = func(ctx context.Context, logger *slog.Logger) (plaid.Fetcher, error) {
	provider, err := config.SyncProvider(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if provider == config.ProviderSimpleFIN {
		cfg, err := config.LoadSimpleFIN(viper.GetViper())
		if err != nil {
			return nil, err
		}
		return simplefin.NewClient(ctx, *cfg, logger)
	}

	cfg, err := config.LoadPlaid(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return plaid.NewClient(*cfg, common.SystemClock{}, logger)
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile bank feed accounts with local accounts",
		Long: `Fetch accounts and transactions from Plaid or a SimpleFIN bridge
(sync.provider) and compare them with the local ledger. Preview first, then
apply one feed account into its local account.`,
	}

	cmd.AddCommand(syncAccountsCmd())
	cmd.AddCommand(syncPreviewCmd())
	cmd.AddCommand(syncApplyCmd())

	return cmd
}

func syncAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Suggest which local account each feed account belongs to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")
			link, _ := cmd.Flags().GetBool("link")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher, err := newFetcher(ctx, a.logger)
			if err != nil {
				return err
			}
			externals, err := fetcher.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch accounts: %w", err)
			}
			locals, err := a.store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to load accounts: %w", err)
			}

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			suggestions := orch.Suggest(externals, locals)

			if link {
				if err := linkSuggestions(ctx, a, externals, suggestions); err != nil {
					return err
				}
			}

			if asJSON {
				type pair struct {
					Suggestion *reconcile.Suggestion `json:"suggestion,omitempty"`
					External   model.ExternalAccount `json:"external"`
				}
				out := make([]pair, len(externals))
				for i, ext := range externals {
					out[i] = pair{External: ext, Suggestion: suggestions[i]}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return cli.RenderSuggestions(cmd.OutOrStdout(), externals, suggestions)
		},
	}

	cmd.Flags().Bool("json", false, "print the suggestions as JSON")
	cmd.Flags().Bool("link", false, "record the suggested links on the local accounts")
	return cmd
}

// linkSuggestions stores the external id of every suggested local account that is
// not linked yet.
func linkSuggestions(ctx context.Context, a *app, externals []model.ExternalAccount, suggestions []*reconcile.Suggestion) error {
	for i, s := range suggestions {
		if s == nil {
			continue
		}
		local, err := a.store.GetAccount(ctx, s.LocalAccountID)
		if err != nil {
			return err
		}
		if local.ExternalID != "" {
			continue
		}
		if err := a.store.LinkAccount(ctx, s.LocalAccountID, externals[i].ExternalID); err != nil {
			return fmt.Errorf("failed to link %s: %w", s.LocalName, err)
		}
		a.logger.Info("Linked account", "account_id", s.LocalAccountID, "external_id", externals[i].ExternalID)
	}
	return nil
}

func syncPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview feed transactions against every local account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")
			days, _ := cmd.Flags().GetInt("days")
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher, err := newFetcher(ctx, a.logger)
			if err != nil {
				return err
			}
			feeds, err := fetchFeeds(ctx, fetcher, days)
			if err != nil {
				return err
			}

			locals, err := reconcile.LoadLocals(ctx, a.store, feeds, a.engine.Matcher.DateWindowDays)
			if err != nil {
				return err
			}
			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			previews, err := orch.Reconcile(ctx, feeds, locals)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), previews)
			}
			out := cmd.OutOrStdout()
			for _, p := range previews {
				target := "(new account)"
				if p.Suggestion != nil {
					target = p.Suggestion.LocalName
				}
				fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s → %s", p.External.DisplayName(), target)))
				if err := cli.RenderPreview(out, p.Preview); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the previews as JSON")
	cmd.Flags().Int("days", 30, "number of days of transactions to fetch")
	return cmd
}

func syncApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Import a feed account's transactions into a local account",
		Long: `Fetch the feed, preview its transactions against the local account, then
commit them through the same review as import apply. The feed account is the
one linked to --account, or --external for an account that is not linked yet.
A successful apply links the two.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accountID, _ := cmd.Flags().GetString("account")
			externalID, _ := cmd.Flags().GetString("external")
			days, _ := cmd.Flags().GetInt("days")
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}
			opts, err := readApplyOptions(cmd)
			if err != nil {
				return err
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Nothing was imported.")
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			ctx = handler.HandleInterrupts(ctx)

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			account, err := a.store.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			if externalID == "" {
				externalID = account.ExternalID
			}
			if externalID == "" {
				return fmt.Errorf("account %s is not linked to a feed account; pass --external", accountID)
			}
			if account.ExternalID != "" && account.ExternalID != externalID {
				return fmt.Errorf("account %s is linked to %s, not %s", accountID, account.ExternalID, externalID)
			}

			fetcher, err := newFetcher(ctx, a.logger)
			if err != nil {
				return err
			}
			feeds, err := fetchFeeds(ctx, fetcher, days)
			if err != nil {
				return err
			}
			feed, ok := findFeed(feeds, externalID)
			if !ok {
				return fmt.Errorf("%w: feed account %s", common.ErrNotFound, externalID)
			}

			req := importer.ExecuteRequest{AccountID: account.ID, Source: "sync:" + externalID}
			for _, c := range feed.Candidates {
				c.AccountID = account.ID
				c.AccountType = string(account.Type)
				c.OwnerID = account.OwnerID
				req.Candidates = append(req.Candidates, c)
			}

			result, err := applyImport(ctx, cmd, a, handler, req, opts)
			if err != nil || result == nil {
				return err
			}
			if account.ExternalID == "" {
				if err := a.store.LinkAccount(ctx, account.ID, externalID); err != nil {
					return fmt.Errorf("imported but failed to link %s: %w", account.Name, err)
				}
				a.logger.Info("Linked account", "account_id", account.ID, "external_id", externalID)
			}
			return nil
		},
	}

	cmd.Flags().StringP("account", "a", "", "local account ID to import into")
	cmd.Flags().String("external", "", "feed account ID, when the local account is not linked")
	cmd.Flags().Int("days", 30, "number of days of transactions to fetch")
	cmd.Flags().String("skip", "", "comma separated row numbers to skip")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	addApplyFlags(cmd)
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func findFeed(feeds []reconcile.ExternalFeed, externalID string) (reconcile.ExternalFeed, bool) {
	for _, feed := range feeds {
		if feed.Account.ExternalID == externalID {
			return feed, true
		}
	}
	return reconcile.ExternalFeed{}, false
}

// fetchFeeds groups the fetched transactions under their external accounts.
func fetchFeeds(ctx context.Context, fetcher plaid.Fetcher, days int) ([]reconcile.ExternalFeed, error) {
	end := model.DayOf(time.Now())
	start := end.AddDate(0, 0, -days)

	accounts, err := fetcher.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	candidates, err := fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	byAccount := plaid.ByAccount(candidates)
	feeds := make([]reconcile.ExternalFeed, len(accounts))
	for i, acct := range accounts {
		feeds[i] = reconcile.ExternalFeed{Account: acct, Candidates: byAccount[acct.ExternalID]}
	}
	return feeds, nil
}

func (a *app) orchestrator(ctx context.Context) (*reconcile.Orchestrator, error) {
	builder, err := a.builder()
	if err != nil {
		return nil, err
	}
	rules, err := a.store.GetRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return reconcile.NewOrchestrator(builder, a.engine.Reconcile, rules, a.logger)
}
