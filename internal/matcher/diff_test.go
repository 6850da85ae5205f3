package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/hearth/internal/model"
)

func TestDiff(t *testing.T) {
	base := model.Transaction{
		Description:  "Coffee Shop",
		Merchant:     "Blue Bottle",
		CategoryName: "Dining",
		Notes:        "team",
	}

	tests := []struct {
		name      string
		candidate model.Candidate
		want      []model.FieldChange
	}{
		{
			name:      "identical",
			candidate: model.Candidate{Description: "Coffee Shop", Merchant: "Blue Bottle", CategoryHint: "Dining", Notes: "team"},
		},
		{
			name:      "empty optional fields are not provided",
			candidate: model.Candidate{Description: "Coffee Shop"},
		},
		{
			name:      "category compared without case",
			candidate: model.Candidate{Description: "Coffee Shop", CategoryHint: "dining"},
		},
		{
			name:      "every field differs",
			candidate: model.Candidate{Description: "COFFEE SHOP #2", Merchant: "Peets", CategoryHint: "Coffee", Notes: "solo"},
			want: []model.FieldChange{
				{Field: model.FieldDescription, Before: "Coffee Shop", After: "COFFEE SHOP #2"},
				{Field: model.FieldMerchant, Before: "Blue Bottle", After: "Peets"},
				{Field: model.FieldCategory, Before: "Dining", After: "Coffee"},
				{Field: model.FieldNotes, Before: "team", After: "solo"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.candidate, base))
		})
	}
}
