package exporters

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/security/validation"
	"github.com/username/loanlens/backend/src/utils"
)

// Column orders are fixed by the data model and shared by the CSV and
// xlsx exporters.
var (
	reconciliationHeader = []string{
		"order_id", "installment_index", "due_date", "due_amount",
		"paid_amount", "paid_date", "status", "days_late",
	}
	trendHeader = []string{
		"period", "segment", "paid", "partial", "late", "missed", "pending",
		"total_due", "total_expected", "total_paid", "delinquency_rate", "avg_days_late",
	}
)

// WriteReconciliationCSV serializes the reconciled table: comma
// delimited, header row, ISO-8601 dates.
func WriteReconciliationCSV(w io.Writer, installments []models.ReconciledInstallment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reconciliationHeader); err != nil {
		return fmt.Errorf("writing reconciliation CSV header: %w", err)
	}
	for _, inst := range installments {
		if err := cw.Write(reconciliationRow(inst)); err != nil {
			return fmt.Errorf("writing reconciliation CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrendsCSV serializes the delinquency time series.
func WriteTrendsCSV(w io.Writer, records []models.DelinquencyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trendHeader); err != nil {
		return fmt.Errorf("writing trends CSV header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(trendRow(rec)); err != nil {
			return fmt.Errorf("writing trends CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func reconciliationRow(inst models.ReconciledInstallment) []string {
	paidDate := ""
	if inst.PaidDate != nil {
		paidDate = utils.FormatISODate(*inst.PaidDate)
	}
	return []string{
		validation.SanitizeForFormulaInjection(inst.OrderID),
		strconv.Itoa(inst.InstallmentIndex),
		utils.FormatISODate(inst.DueDate),
		inst.DueAmount.String(),
		inst.PaidAmount.String(),
		paidDate,
		string(inst.Status),
		strconv.Itoa(inst.DaysLate),
	}
}

func trendRow(rec models.DelinquencyRecord) []string {
	return []string{
		rec.Period,
		validation.SanitizeForFormulaInjection(rec.Segment),
		strconv.Itoa(rec.Paid),
		strconv.Itoa(rec.Partial),
		strconv.Itoa(rec.Late),
		strconv.Itoa(rec.Missed),
		strconv.Itoa(rec.Pending),
		strconv.Itoa(rec.TotalDue),
		rec.TotalExpected.String(),
		rec.TotalPaid.String(),
		strconv.FormatFloat(rec.DelinquencyRate, 'f', -1, 64),
		strconv.FormatFloat(rec.AvgDaysLate, 'f', -1, 64),
	}
}
