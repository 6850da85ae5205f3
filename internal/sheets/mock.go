package sheets

import (
	"context"
	"sync"
)

// MockExporter records exports for tests.
type MockExporter struct {
	ExportFunc    func(ctx context.Context, report Report) (string, error)
	Reports       []Report
	SpreadsheetID string
	mu            sync.Mutex
}

// NewMockExporter creates a mock that reports the given spreadsheet id.
func NewMockExporter(spreadsheetID string) *MockExporter {
	return &MockExporter{SpreadsheetID: spreadsheetID}
}

// Export implements Exporter.
func (m *MockExporter) Export(ctx context.Context, report Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Reports = append(m.Reports, report)
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, report)
	}
	return m.SpreadsheetID, nil
}

// Calls returns the number of exports made.
func (m *MockExporter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reports)
}
