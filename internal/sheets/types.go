package sheets

import (
	"context"

	"github.com/Veraticus/hearth/internal/model"
)

// Tab names written by the exporter.
const (
	TabPreview   = "Import Preview"
	TabRecurring = "Recurring"
)

// Report is everything one export writes. A nil Preview or empty Patterns leaves
// the corresponding tab untouched.
type Report struct {
	Preview  *model.ImportPreview
	Patterns []model.RecurringPattern
}

// Exporter writes reports to a spreadsheet and returns its id.
type Exporter interface {
	Export(ctx context.Context, report Report) (string, error)
}
