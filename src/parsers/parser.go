package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// SchemaError reports a required column missing from an uploaded file.
// It is fatal for that file; row-level problems are not.
type SchemaError struct {
	File   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s file: missing required column %q", e.File, e.Column)
}

// table is a header-indexed view over the records of one CSV file.
type table struct {
	columns map[string]int
	rows    [][]string
}

// readTable reads the whole CSV and verifies the required columns are
// present. Column matching is case-insensitive and ignores surrounding
// whitespace. Extra columns are ignored.
func readTable(fileKind string, r io.Reader, required []string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s file: %w", fileKind, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF") // UTF-8 BOM from Excel exports
		}
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, col := range required {
		if _, ok := columns[col]; !ok {
			return nil, &SchemaError{File: fileKind, Column: col}
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records of %s file: %w", fileKind, err)
	}

	return &table{columns: columns, rows: rows}, nil
}

// get returns the cell for a column, or "" when the column is absent or
// the row is short.
func (t *table) get(row []string, col string) string {
	idx, ok := t.columns[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseAmount parses a money cell. Currency symbols and thousands
// separators as produced by common spreadsheet exports are tolerated.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
