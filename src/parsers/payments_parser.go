package parsers

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

var paymentsRequiredColumns = []string{"order_id", "paid_date", "paid_amount"}

// ParsePayments loads the actual payments file. An installment_index
// column, when present, is carried along as a hint only. The returned
// slice is sorted by paid date (stable, so same-day payments keep their
// file order).
func ParsePayments(r io.Reader) ([]models.Payment, models.LoadReport, error) {
	report := models.LoadReport{File: models.DatasetPayments}

	tbl, err := readTable(models.DatasetPayments, r, paymentsRequiredColumns)
	if err != nil {
		return nil, report, err
	}

	payments := make([]models.Payment, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		rowNum := i + 2

		orderID := tbl.get(row, "order_id")
		if orderID == "" {
			report.Skip(rowNum, "empty order_id")
			continue
		}

		paidDate, ok := utils.ParseFlexibleDate(tbl.get(row, "paid_date"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable paid_date %q", tbl.get(row, "paid_date")))
			continue
		}

		paidAmount, ok := parseAmount(tbl.get(row, "paid_amount"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable paid_amount %q", tbl.get(row, "paid_amount")))
			continue
		}
		if paidAmount.IsNegative() {
			report.Skip(rowNum, fmt.Sprintf("negative paid_amount %s", paidAmount))
			continue
		}

		payment := models.Payment{
			OrderID:    orderID,
			PaidDate:   paidDate,
			PaidAmount: paidAmount,
		}
		if idxStr := tbl.get(row, "installment_index"); idxStr != "" {
			if idx, err := strconv.Atoi(idxStr); err == nil {
				payment.InstallmentIndex = &idx
			}
		}

		payments = append(payments, payment)
		report.RowsLoaded++
	}

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaidDate.Before(payments[j].PaidDate)
	})

	return payments, report, nil
}
