package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/hearth/internal/common"
	"github.com/Veraticus/hearth/internal/model"
)

const dateLayout = "2006-01-02"

var (
	previewHeader = []any{
		"Row", "Action", "Date", "Description", "Merchant", "Amount",
		"Category", "Matched ID", "Confidence", "Changes", "Warnings",
	}
	patternHeader = []any{
		"ID", "Name", "Frequency", "Expected Amount", "Variance", "Next Expected",
		"Last Seen", "Occurrences", "Confidence", "Status", "Account",
	}
)

var _ Exporter = (*Writer)(nil)

// Writer exports reports to Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets exporter.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger = common.ComponentLogger(logger, "sheets")

	ts, err := tokenSource(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	srv, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Export writes the report's tabs, replacing whatever they held before.
func (w *Writer) Export(ctx context.Context, report Report) (string, error) {
	tabs := make(map[string][][]any)
	if report.Preview != nil {
		tabs[TabPreview] = previewValues(report.Preview)
	}
	if len(report.Patterns) > 0 {
		tabs[TabRecurring] = patternValues(report.Patterns)
	}
	if len(tabs) == 0 {
		return "", fmt.Errorf("%w: nothing to export", common.ErrInvalidConfig)
	}

	var spreadsheetID string
	var sheetIDs map[string]int64
	err := common.WithRetry(ctx, func() error {
		var err error
		spreadsheetID, sheetIDs, err = w.prepareSpreadsheet(ctx, tabNames(tabs))
		return classifyError(err)
	}, w.retryOptions())
	if err != nil {
		return "", fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}

	for _, tab := range tabNames(tabs) {
		values := tabs[tab]
		err := common.WithRetry(ctx, func() error {
			return classifyError(w.writeTab(ctx, spreadsheetID, tab, values))
		}, w.retryOptions())
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", tab, err)
		}

		if w.config.EnableFormatting {
			if err := w.applyFormatting(ctx, spreadsheetID, sheetIDs[tab], len(values[0])); err != nil {
				w.logger.Warn("Failed to apply formatting", "tab", tab, "error", err)
			}
		}
		w.logger.Info("Exported tab", "tab", tab, "rows", len(values)-1)
	}

	return spreadsheetID, nil
}

func (w *Writer) retryOptions() common.RetryOptions {
	opts := common.DefaultRetryOptions()
	opts.Logger = w.logger
	opts.MaxAttempts = max(w.config.RetryAttempts, 1)
	if w.config.RetryDelay > 0 {
		opts.InitialDelay = w.config.RetryDelay
	}
	return opts
}

// prepareSpreadsheet opens the configured spreadsheet, or creates one, and makes sure
// every tab exists. It returns the spreadsheet id and the sheet id of each tab.
func (w *Writer) prepareSpreadsheet(ctx context.Context, tabs []string) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, tab := range tabs {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: tab},
			})
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.logger.Info("Created new spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)

		// Later exports reuse it.
		w.config.SpreadsheetID = created.SpreadsheetId
		return created.SpreadsheetId, sheetIDsOf(created), nil
	}

	existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIDsOf(existing)

	var requests []*sheets.Request
	for _, tab := range tabs {
		if _, ok := ids[tab]; ok {
			continue
		}
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
		})
	}
	if len(requests) == 0 {
		return w.config.SpreadsheetID, ids, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
		}
	}
	return w.config.SpreadsheetID, ids, nil
}

func sheetIDsOf(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sheet := range s.Sheets {
		if sheet.Properties != nil {
			ids[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return ids
}

// writeTab clears a tab and writes values to it in batches.
func (w *Writer) writeTab(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	quoted := quoteTab(tab)
	if _, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, quoted, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear %s: %w", tab, err)
	}

	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		rangeStr := fmt.Sprintf("%s!A%d", quoted, i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: batch}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("Wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// applyFormatting bolds and freezes the header row and sizes the columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, columns int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(columns),
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// previewValues lays out an import preview, one row per import row.
func previewValues(preview *model.ImportPreview) [][]any {
	values := make([][]any, 0, len(preview.Rows)+1)
	values = append(values, previewHeader)

	for _, row := range preview.Rows {
		line := make([]any, len(previewHeader))
		line[0] = row.RowNumber
		line[1] = string(row.Action)
		if c := row.Parsed; c != nil {
			line[2] = c.Date.Format(dateLayout)
			line[3] = c.Description
			line[4] = c.Merchant
			line[5] = c.Amount.StringFixed(2)
			line[6] = c.CategoryHint
		} else {
			for i := 2; i <= 6; i++ {
				line[i] = ""
			}
		}
		line[7] = ""
		if row.MatchedTransaction != nil {
			line[7] = row.MatchedTransaction.ID
		}
		line[8] = ""
		if row.MatchConfidence != nil {
			line[8] = fmt.Sprintf("%.2f", *row.MatchConfidence)
		}
		line[9] = formatChanges(row.Changes)
		line[10] = strings.Join(row.Warnings, "; ")
		values = append(values, line)
	}
	return values
}

func formatChanges(changes []model.FieldChange) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %q -> %q", c.Field, c.Before, c.After))
	}
	return strings.Join(parts, "; ")
}

// patternValues lays out recurring patterns in the order given.
func patternValues(patterns []model.RecurringPattern) [][]any {
	values := make([][]any, 0, len(patterns)+1)
	values = append(values, patternHeader)

	for _, p := range patterns {
		values = append(values, []any{
			p.ID,
			p.DisplayName,
			string(p.Frequency),
			p.ExpectedAmount.StringFixed(2),
			p.AmountVariance.StringFixed(2),
			p.NextExpectedDate.Format(dateLayout),
			p.LastOccurrence.Format(dateLayout),
			p.OccurrenceCount,
			fmt.Sprintf("%.2f", p.Confidence),
			string(p.Status),
			p.AccountID,
		})
	}
	return values
}

// tabNames returns the tabs present in values in a fixed order.
func tabNames(values map[string][][]any) []string {
	var names []string
	for _, tab := range []string{TabPreview, TabRecurring} {
		if _, ok := values[tab]; ok {
			names = append(names, tab)
		}
	}
	return names
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// classifyError marks client errors from the Sheets API as permanent.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
		if apiErr.Code == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", common.ErrRateLimit, err)
		}
		return &common.RetryableError{Err: err, Retryable: retryable}
	}
	return err
}
