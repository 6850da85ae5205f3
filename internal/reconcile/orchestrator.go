package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/importer"
	"github.com/Veraticus/hearth/internal/model"
)

// ExternalFeed is an external account with the candidates fetched for it.
type ExternalFeed struct {
	Account    model.ExternalAccount
	Candidates []model.Candidate
}

// LocalAccount is a local account with its stored transaction history.
type LocalAccount struct {
	Account model.Account
	History []model.Transaction
}

// AccountPreview is the reconciliation result for one external account.
type AccountPreview struct {
	External   model.ExternalAccount `json:"external"`
	Suggestion *Suggestion           `json:"suggestion,omitempty"`
	Preview    model.ImportPreview   `json:"preview"`
}

// Orchestrator proposes account mappings and builds per-account previews. It never
// writes anything.
type Orchestrator struct {
	builder *importer.Builder
	logger  *slog.Logger
	rules   []model.CategorizationRule
	cfg     Config
}

// NewOrchestrator creates an orchestrator. Rules are used to suggest categories on
// created rows.
func NewOrchestrator(builder *importer.Builder, cfg Config, rules []model.CategorizationRule, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if builder == nil {
		builder = importer.NewBuilder(nil, logger)
	}
	return &Orchestrator{
		builder: builder,
		cfg:     cfg,
		rules:   rules,
		logger:  common.ComponentLogger(logger, "reconcile"),
	}, nil
}

// Suggest assigns each external account at most one local account. A local account
// already linked to the external id is kept with score 1. The rest are paired with
// unlinked manual accounts greedily by score, then by input order; each local account is used
// once.
func (o *Orchestrator) Suggest(externals []model.ExternalAccount, locals []model.Account) []*Suggestion {
	type pair struct {
		suggestion Suggestion
		ext, local int
	}

	out := make([]*Suggestion, len(externals))
	usedLocal := make(map[int]bool)
	for i, ext := range externals {
		for j, local := range locals {
			if ext.ExternalID == "" || local.ExternalID != ext.ExternalID || usedLocal[j] {
				continue
			}
			s := o.cfg.Score(ext, local)
			s.Score = 1
			s.Linked = true
			out[i] = &s
			usedLocal[j] = true
			break
		}
	}

	var pairs []pair
	for i, ext := range externals {
		if out[i] != nil {
			continue
		}
		for j, local := range locals {
			if !local.IsManual || local.ExternalID != "" || usedLocal[j] {
				continue
			}
			s := o.cfg.Score(ext, local)
			if s.Score+1e-9 < o.cfg.MinScore {
				continue
			}
			pairs = append(pairs, pair{suggestion: s, ext: i, local: j})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if pairs[a].suggestion.Score != pairs[b].suggestion.Score {
			return pairs[a].suggestion.Score > pairs[b].suggestion.Score
		}
		if pairs[a].ext != pairs[b].ext {
			return pairs[a].ext < pairs[b].ext
		}
		return pairs[a].local < pairs[b].local
	})

	for _, p := range pairs {
		if out[p.ext] != nil || usedLocal[p.local] {
			continue
		}
		s := p.suggestion
		out[p.ext] = &s
		usedLocal[p.local] = true
	}
	return out
}

// Reconcile suggests a local account for every external feed and previews the feed's
// candidates against the suggested account's history. Unmatched feeds are previewed
// against an empty pool. Previews run in parallel and are joined before returning.
func (o *Orchestrator) Reconcile(ctx context.Context, externals []ExternalFeed, locals []LocalAccount) ([]AccountPreview, error) {
	extAccounts := make([]model.ExternalAccount, len(externals))
	for i, feed := range externals {
		extAccounts[i] = feed.Account
	}
	localAccounts := make([]model.Account, len(locals))
	byID := make(map[string]LocalAccount, len(locals))
	for i, local := range locals {
		localAccounts[i] = local.Account
		byID[local.Account.ID] = local
	}

	suggestions := o.Suggest(extAccounts, localAccounts)
	results := make([]AccountPreview, len(externals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := range externals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			feed := externals[i]

			actx := importer.AccountContext{
				Account: model.Account{
					ID:         feed.Account.ExternalID,
					Name:       feed.Account.DisplayName(),
					Type:       feed.Account.Type,
					ExternalID: feed.Account.ExternalID,
				},
				Rules:         o.rules,
				ProtectManual: true,
			}
			if s := suggestions[i]; s != nil {
				local := byID[s.LocalAccountID]
				actx.Account = local.Account
				actx.Pool = local.History
			}

			results[i] = AccountPreview{
				External:   feed.Account,
				Suggestion: suggestions[i],
				Preview:    o.builder.PreviewCandidates(feed.Candidates, actx),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconcile canceled: %w", err)
	}

	matched := 0
	for _, s := range suggestions {
		if s != nil {
			matched++
		}
	}
	o.logger.Info("Reconciled external accounts",
		"external", len(externals),
		"local", len(locals),
		"suggested", matched)

	return results, nil
}
