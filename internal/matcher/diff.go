package matcher

import (
	"strings"

	"github.com/Veraticus/hearth/internal/model"
)

// Diff lists the fields the candidate would change on txn. Optional candidate fields
// that are empty are treated as not provided and never produce a change.
func Diff(candidate model.Candidate, txn model.Transaction) []model.FieldChange {
	var changes []model.FieldChange

	add := func(field, before, after string) {
		changes = append(changes, model.FieldChange{Field: field, Before: before, After: after})
	}

	if desc := strings.TrimSpace(candidate.Description); desc != "" && desc != strings.TrimSpace(txn.Description) {
		add(model.FieldDescription, txn.Description, desc)
	}
	if merchant := strings.TrimSpace(candidate.Merchant); merchant != "" && merchant != strings.TrimSpace(txn.Merchant) {
		add(model.FieldMerchant, txn.Merchant, merchant)
	}
	if category := strings.TrimSpace(candidate.CategoryHint); category != "" && !strings.EqualFold(category, strings.TrimSpace(txn.CategoryName)) {
		add(model.FieldCategory, txn.CategoryName, category)
	}
	if notes := strings.TrimSpace(candidate.Notes); notes != "" && notes != strings.TrimSpace(txn.Notes) {
		add(model.FieldNotes, txn.Notes, notes)
	}

	return changes
}
