package parsers

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

var planRequiredColumns = []string{"order_id", "installment_index", "due_date", "due_amount"}

// ParsePlan loads the payment plan file. Installment indexes must be
// unique per order; duplicates are excluded and counted. The returned
// slice is sorted by order, then installment index.
func ParsePlan(r io.Reader) ([]models.PlanInstallment, models.LoadReport, error) {
	report := models.LoadReport{File: models.DatasetPlan}

	tbl, err := readTable(models.DatasetPlan, r, planRequiredColumns)
	if err != nil {
		return nil, report, err
	}

	type orderIndex struct {
		orderID string
		index   int
	}
	seen := make(map[orderIndex]bool)

	plan := make([]models.PlanInstallment, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		rowNum := i + 2

		orderID := tbl.get(row, "order_id")
		if orderID == "" {
			report.Skip(rowNum, "empty order_id")
			continue
		}

		index, err := strconv.Atoi(tbl.get(row, "installment_index"))
		if err != nil {
			report.Skip(rowNum, fmt.Sprintf("unparseable installment_index %q", tbl.get(row, "installment_index")))
			continue
		}
		key := orderIndex{orderID, index}
		if seen[key] {
			report.Skip(rowNum, fmt.Sprintf("duplicate installment_index %d for order %q", index, orderID))
			continue
		}

		dueDate, ok := utils.ParseFlexibleDate(tbl.get(row, "due_date"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable due_date %q", tbl.get(row, "due_date")))
			continue
		}

		dueAmount, ok := parseAmount(tbl.get(row, "due_amount"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable due_amount %q", tbl.get(row, "due_amount")))
			continue
		}

		seen[key] = true
		plan = append(plan, models.PlanInstallment{
			OrderID:          orderID,
			InstallmentIndex: index,
			DueDate:          dueDate,
			DueAmount:        dueAmount,
		})
		report.RowsLoaded++
	}

	sort.Slice(plan, func(i, j int) bool {
		if plan[i].OrderID != plan[j].OrderID {
			return plan[i].OrderID < plan[j].OrderID
		}
		return plan[i].InstallmentIndex < plan[j].InstallmentIndex
	})

	// Due dates must not decrease along an order's schedule. A violation
	// is surfaced as a warning; the rows still load.
	for i := 1; i < len(plan); i++ {
		prev, cur := plan[i-1], plan[i]
		if cur.OrderID == prev.OrderID && cur.DueDate.Before(prev.DueDate) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"order %q: due_date of installment %d precedes installment %d",
				cur.OrderID, cur.InstallmentIndex, prev.InstallmentIndex))
		}
	}

	return plan, report, nil
}
