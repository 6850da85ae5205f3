package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/hearth/internal/model"
	"github.com/Veraticus/hearth/internal/reconcile"
)

const dateLayout = "2006-01-02"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

// PreviewRows lays out an import preview as table rows.
func PreviewRows(preview model.ImportPreview) [][]string {
	rows := make([][]string, 0, len(preview.Rows))
	for _, r := range preview.Rows {
		var date, description, amount string
		if c := r.Parsed; c != nil {
			date = c.Date.Format(dateLayout)
			description = c.Description
			amount = c.Amount.StringFixed(2)
		}

		match := ""
		if r.MatchedTransaction != nil {
			match = "#" + strconv.FormatInt(r.MatchedTransaction.ID, 10)
			if r.MatchConfidence != nil {
				match += fmt.Sprintf(" (%.2f)", *r.MatchConfidence)
			}
		}

		notes := make([]string, 0, len(r.Changes)+len(r.Warnings))
		for _, c := range r.Changes {
			notes = append(notes, fmt.Sprintf("%s: %s → %s", c.Field, orDash(c.Before), orDash(c.After)))
		}
		notes = append(notes, r.Warnings...)

		rows = append(rows, []string{
			strconv.Itoa(r.RowNumber),
			string(r.Action),
			date,
			truncate(description, 32),
			amount,
			match,
			strings.Join(notes, "; "),
		})
	}
	return rows
}

// FormatSummary renders the per-action counts of a preview on one line.
func FormatSummary(s model.ImportSummary) string {
	return strings.Join([]string{
		ActionStyle(model.ActionCreate).Render(fmt.Sprintf("%d create", s.Create)),
		ActionStyle(model.ActionUpdate).Render(fmt.Sprintf("%d update", s.Update)),
		ActionStyle(model.ActionUnchanged).Render(fmt.Sprintf("%d unchanged", s.Unchanged)),
		ActionStyle(model.ActionSkip).Render(fmt.Sprintf("%d skip", s.Skip)),
	}, "  ")
}

// RenderPreview writes an import preview table followed by its summary.
func RenderPreview(w io.Writer, preview model.ImportPreview) error {
	t := newTable("Row", "Action", "Date", "Description", "Amount", "Match", "Notes").
		Rows(PreviewRows(preview)...)

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\n",
		FormatTitle(fmt.Sprintf("Import preview (%d rows)", preview.TotalRows)),
		t.String(),
		FormatSummary(preview.Summary))
	return err
}

// RenderResult writes the outcome of a committed import.
func RenderResult(w io.Writer, result *model.ImportResult) error {
	_, err := fmt.Fprintln(w, RenderBox("Import committed", strings.Join([]string{
		fmt.Sprintf("Batch:     %s", result.BatchID),
		fmt.Sprintf("Created:   %d", len(result.Created)),
		fmt.Sprintf("Updated:   %d", len(result.Updated)),
		fmt.Sprintf("Unchanged: %d", result.Preview.Summary.Unchanged),
		fmt.Sprintf("Skipped:   %d", result.Preview.Summary.Skip),
	}, "\n")))
	return err
}

// PatternRows lays out recurring patterns as table rows.
func PatternRows(patterns []model.RecurringPattern) [][]string {
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			truncate(p.DisplayName, 28),
			string(p.Frequency),
			p.ExpectedAmount.StringFixed(2),
			p.NextExpectedDate.Format(dateLayout),
			strconv.Itoa(p.OccurrenceCount),
			fmt.Sprintf("%.2f", p.Confidence),
			string(p.Status),
		})
	}
	return rows
}

// RenderPatterns writes a recurring pattern table.
func RenderPatterns(w io.Writer, patterns []model.RecurringPattern) error {
	if len(patterns) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No recurring patterns"))
		return err
	}
	const statusColumn = 7
	t := newTable("ID", "Name", "Frequency", "Amount", "Next", "Count", "Confidence", "Status").
		Rows(PatternRows(patterns)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case col == statusColumn && row < len(patterns):
				return TableCellStyle.Foreground(StatusStyle(patterns[row].Status).GetForeground())
			default:
				return TableCellStyle
			}
		})
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderAccounts writes the local accounts.
func RenderAccounts(w io.Writer, accounts []model.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		kind := "linked"
		if a.IsManual {
			kind = "manual"
		}
		rows = append(rows, []string{a.ID, a.Name, string(a.Type), a.Balance.StringFixed(2), kind, orDash(a.ExternalID)})
	}
	t := newTable("ID", "Name", "Type", "Balance", "Kind", "External ID").Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderCategories writes the category list.
func RenderCategories(w io.Writer, categories []model.Category) error {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, string(c.Type)})
	}
	t := newTable("ID", "Name", "Type").Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RuleRows lays out rules in evaluation order as table rows.
func RuleRows(rules []model.CategorizationRule, categories *model.CategoryIndex) [][]string {
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		category := strconv.FormatInt(r.CategoryID, 10)
		if c, ok := categories.ByID(r.CategoryID); ok {
			category = c.Name
		}
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.Itoa(r.Priority),
			r.Name,
			category,
			string(r.Conditions.EffectiveOperator()),
			strconv.Itoa(r.Conditions.PredicateCount()),
			enabled,
		})
	}
	return rows
}

// RenderRules writes the rule list.
func RenderRules(w io.Writer, rules []model.CategorizationRule, categories *model.CategoryIndex) error {
	t := newTable("ID", "Priority", "Name", "Category", "Op", "Predicates", "Enabled").
		Rows(RuleRows(rules, categories)...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderSuggestions writes the proposed external-to-local account mapping.
func RenderSuggestions(w io.Writer, externals []model.ExternalAccount, suggestions []*reconcile.Suggestion) error {
	rows := make([][]string, 0, len(externals))
	for i, ext := range externals {
		local, score := "(new account)", ""
		if i < len(suggestions) && suggestions[i] != nil {
			s := suggestions[i]
			local = fmt.Sprintf("%s (%s)", s.LocalName, s.LocalAccountID)
			score = fmt.Sprintf("%.2f", s.Score)
			if s.Linked {
				score = "linked"
			}
		}
		rows = append(rows, []string{ext.ExternalID, ext.DisplayName(), string(ext.Type), ext.Balance.StringFixed(2), local, score})
	}
	t := newTable("External ID", "Name", "Type", "Balance", "Local account", "Score").Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
