// Package importer turns raw import rows into a classified preview and commits
// accepted rows to the store.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/hearth/internal/common"
)

// Canonical column names.
const (
	ColDate        = "date"
	ColAmount      = "amount"
	ColDebit       = "debit"
	ColCredit      = "credit"
	ColDescription = "description"
	ColMerchant    = "merchant"
	ColCategory    = "category"
	ColNotes       = "notes"
	ColExternalID  = "external_id"
)

var headerAliases = map[string]string{
	"date":               ColDate,
	"transaction date":   ColDate,
	"trans date":         ColDate,
	"posted date":        ColDate,
	"posting date":       ColDate,
	"amount":             ColAmount,
	"transaction amount": ColAmount,
	"debit":              ColDebit,
	"withdrawal":         ColDebit,
	"withdrawals":        ColDebit,
	"credit":             ColCredit,
	"deposit":            ColCredit,
	"deposits":           ColCredit,
	"description":        ColDescription,
	"memo":               ColDescription,
	"name":               ColDescription,
	"details":            ColDescription,
	"merchant":           ColMerchant,
	"payee":              ColMerchant,
	"merchant name":      ColMerchant,
	"category":           ColCategory,
	"notes":              ColNotes,
	"note":               ColNotes,
	"external id":        ColExternalID,
	"external_id":        ColExternalID,
	"transaction id":     ColExternalID,
	"id":                 ColExternalID,
	"fitid":              ColExternalID,
}

// RawRow is one data row keyed by canonical column name. Number is 1-based and
// excludes the header.
type RawRow struct {
	Fields map[string]string
	Number int
}

// Get returns the trimmed value of a column.
func (r RawRow) Get(col string) string {
	return strings.TrimSpace(r.Fields[col])
}

// ReadFile reads rows from a CSV or XLSX file, chosen by extension.
func ReadFile(r io.Reader, name string) ([]RawRow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, name)
	}
}

// ReadCSV reads a CSV export whose first record is a header.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, rec)
	}

	return fromTable(records)
}

// ReadXLSX reads the first sheet of a workbook whose first row is a header.
func ReadXLSX(r io.Reader) ([]RawRow, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = xl.Close()
	}()

	sheet := xl.GetSheetName(0)
	records, err := xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return fromTable(records)
}

func fromTable(records [][]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, common.ErrNoRows
	}

	columns := make([]string, len(records[0]))
	seen := make(map[string]bool)
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := headerAliases[key]; ok && !seen[canonical] {
			columns[i] = canonical
			seen[canonical] = true
		}
	}

	if !seen[ColDate] {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingColumn, ColDate)
	}
	if !seen[ColAmount] && !seen[ColDebit] && !seen[ColCredit] {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingColumn, ColAmount)
	}
	if !seen[ColDescription] && !seen[ColMerchant] {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingColumn, ColDescription)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		fields := make(map[string]string, len(columns))
		for j, col := range columns {
			if col == "" || j >= len(rec) {
				continue
			}
			fields[col] = rec[j]
		}
		rows = append(rows, RawRow{Number: i + 1, Fields: fields})
	}

	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
