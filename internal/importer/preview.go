package importer

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/matcher"
	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/rules"
	"github.com/Veraticus/hearth/internal/similarity"
)

// Warning texts attached to preview rows.
const (
	WarnManualProtected = "manual transaction protected"
	WarnSkipRequested   = "skipped by request"
)

// AccountContext is everything the builder needs to classify rows for one account.
type AccountContext struct {
	Account       model.Account
	Pool          []model.Transaction
	Rules         []model.CategorizationRule
	ProtectManual bool
}

// Builder classifies import rows as create, update, skip or unchanged.
// It is pure: the same inputs always produce the same preview.
type Builder struct {
	matcher *matcher.FuzzyMatcher
	logger  *slog.Logger
}

// NewBuilder creates a preview builder using m for matching.
func NewBuilder(m *matcher.FuzzyMatcher, logger *slog.Logger) *Builder {
	if m == nil {
		m = matcher.NewDefault()
	}
	return &Builder{
		matcher: m,
		logger:  common.ComponentLogger(logger, "importer"),
	}
}

// Matcher returns the matcher the builder uses.
func (b *Builder) Matcher() *matcher.FuzzyMatcher {
	return b.matcher
}

type entry struct {
	candidate *model.Candidate
	parseErr  error
	number    int
}

// Preview parses and classifies raw rows.
func (b *Builder) Preview(rows []RawRow, actx AccountContext) model.ImportPreview {
	entries := make([]entry, 0, len(rows))
	for _, row := range rows {
		c, err := ParseRow(row)
		if err != nil {
			entries = append(entries, entry{number: row.Number, parseErr: err})
			continue
		}
		entries = append(entries, entry{number: row.Number, candidate: &c})
	}
	return b.classify(entries, actx)
}

// PreviewCandidates classifies already-parsed candidates, numbering rows from 1.
func (b *Builder) PreviewCandidates(candidates []model.Candidate, actx AccountContext) model.ImportPreview {
	entries := make([]entry, len(candidates))
	for i := range candidates {
		c := candidates[i]
		entries[i] = entry{number: i + 1, candidate: &c}
	}
	return b.classify(entries, actx)
}

func (b *Builder) classify(entries []entry, actx AccountContext) model.ImportPreview {
	evaluator := rules.NewEvaluator(rules.ForHousehold(actx.Rules, actx.Account.HouseholdID), b.logger)
	claimed := make(map[int64]bool)
	seen := make(map[string]int)

	preview := model.ImportPreview{
		TotalRows: len(entries),
		Rows:      make([]model.ImportRow, 0, len(entries)),
	}

	for _, e := range entries {
		row := model.ImportRow{RowNumber: e.number, Warnings: []string{}}

		if e.parseErr != nil {
			row.Action = model.ActionSkip
			row.Warnings = append(row.Warnings, e.parseErr.Error())
			preview.Rows = append(preview.Rows, row)
			preview.Summary.Add(row.Action)
			continue
		}

		candidate := *e.candidate
		candidate.AccountID = actx.Account.ID
		candidate.AccountType = string(actx.Account.Type)
		candidate.OwnerID = actx.Account.OwnerID
		row.Parsed = &candidate

		key := duplicateKey(candidate)
		if first, ok := seen[key]; ok {
			row.Warnings = append(row.Warnings, fmt.Sprintf("possible duplicate of row %d", first))
		} else {
			seen[key] = e.number
		}

		result := b.matcher.Match(candidate, unclaimed(actx.Pool, claimed))
		b.classifyRow(&row, result, evaluator, actx.ProtectManual)
		if result.Matched() {
			claimed[result.Match.ID] = true
		}

		preview.Rows = append(preview.Rows, row)
		preview.Summary.Add(row.Action)
	}

	b.logger.Debug("Built import preview",
		"account_id", actx.Account.ID,
		"rows", preview.TotalRows,
		"create", preview.Summary.Create,
		"update", preview.Summary.Update,
		"skip", preview.Summary.Skip,
		"unchanged", preview.Summary.Unchanged)

	return preview
}

func (b *Builder) classifyRow(row *model.ImportRow, result model.MatchResult, evaluator *rules.Evaluator, protectManual bool) {
	switch {
	case result.Matched():
		matched := *result.Match
		confidence := result.Confidence
		row.MatchedTransaction = &matched
		row.MatchConfidence = &confidence

		switch {
		case matched.IsManual && protectManual:
			row.Action = model.ActionSkip
			row.Warnings = append(row.Warnings, WarnManualProtected)
		case len(result.Changes) == 0:
			row.Action = model.ActionUnchanged
		default:
			row.Action = model.ActionUpdate
			row.Changes = result.Changes
		}

	case result.ExternalIDConflict != nil:
		conflict := result.ExternalIDConflict
		row.Action = model.ActionSkip
		row.Warnings = append(row.Warnings, fmt.Sprintf(
			"external id %s already recorded on transaction %d with amount %s",
			conflict.ExternalIDValue(), conflict.ID, conflict.Amount.StringFixed(2)))

	default:
		row.Action = model.ActionCreate
		if result.Miss != nil {
			row.Warnings = append(row.Warnings, fmt.Sprintf(
				"closest match was transaction %d (score %.2f, threshold %.2f); review for duplicates",
				result.Miss.BestID, result.Miss.BestScore, result.Miss.Threshold))
		}
		if decision := evaluator.Evaluate(*row.Parsed); decision != nil {
			categoryID, ruleID := decision.CategoryID, decision.RuleID
			row.SuggestedCategoryID = &categoryID
			row.SuggestedRuleID = &ruleID
		}
	}
}

// ApplySkips forces the given row numbers to skip and recomputes the summary.
// The input preview is not modified.
func ApplySkips(preview model.ImportPreview, rowNumbers []int) model.ImportPreview {
	if len(rowNumbers) == 0 {
		return preview
	}
	skip := make(map[int]bool, len(rowNumbers))
	for _, n := range rowNumbers {
		skip[n] = true
	}

	out := model.ImportPreview{
		TotalRows: preview.TotalRows,
		Rows:      make([]model.ImportRow, len(preview.Rows)),
	}
	for i, row := range preview.Rows {
		if skip[row.RowNumber] && row.Action != model.ActionSkip {
			row.Action = model.ActionSkip
			row.Warnings = append(append([]string{}, row.Warnings...), WarnSkipRequested)
		}
		out.Rows[i] = row
		out.Summary.Add(row.Action)
	}
	return out
}

func unclaimed(pool []model.Transaction, claimed map[int64]bool) []model.Transaction {
	if len(claimed) == 0 {
		return pool
	}
	out := make([]model.Transaction, 0, len(pool))
	for _, txn := range pool {
		if !claimed[txn.ID] {
			out = append(out, txn)
		}
	}
	return out
}

func duplicateKey(c model.Candidate) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		c.Date.Format("2006-01-02"),
		c.Amount.String(),
		similarity.Normalize(c.Description),
		c.ExternalID)
}
