package exporters

import (
	"fmt"
	"io"

	"github.com/username/loanlens/backend/src/models"
	"github.com/xuri/excelize/v2"
)

// WriteReconciliationXLSX serializes the reconciled table as a
// single-sheet workbook with the same columns as the CSV export.
func WriteReconciliationXLSX(w io.Writer, installments []models.ReconciledInstallment) error {
	rows := make([][]string, 0, len(installments))
	for _, inst := range installments {
		rows = append(rows, reconciliationRow(inst))
	}
	return writeSheet(w, "Reconciliation", reconciliationHeader, rows)
}

// WriteTrendsXLSX serializes the delinquency time series as a workbook.
func WriteTrendsXLSX(w io.Writer, records []models.DelinquencyRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, trendRow(rec))
	}
	return writeSheet(w, "Delinquency Trends", trendHeader, rows)
}

func writeSheet(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("creating sheet %q: %w", sheet, err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	if err := setStringRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setStringRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setStringRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("resolving cell for row %d: %w", rowNum, err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}
