package parsers

import (
	"fmt"
	"io"
	"sort"

	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

var ordersRequiredColumns = []string{"order_id", "principal", "origination_date", "borrower_id"}

// ParseOrders loads the orders file. Rows with a missing order ID or an
// unparseable principal or origination date are excluded and counted,
// not fatal.
func ParseOrders(r io.Reader) ([]models.Order, models.LoadReport, error) {
	report := models.LoadReport{File: models.DatasetOrders}

	tbl, err := readTable(models.DatasetOrders, r, ordersRequiredColumns)
	if err != nil {
		return nil, report, err
	}

	seen := make(map[string]bool)
	orders := make([]models.Order, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		rowNum := i + 2 // header is row 1

		orderID := tbl.get(row, "order_id")
		if orderID == "" {
			report.Skip(rowNum, "empty order_id")
			continue
		}
		if seen[orderID] {
			report.Skip(rowNum, fmt.Sprintf("duplicate order_id %q", orderID))
			continue
		}

		principal, ok := parseAmount(tbl.get(row, "principal"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable principal %q", tbl.get(row, "principal")))
			continue
		}

		originated, ok := utils.ParseFlexibleDate(tbl.get(row, "origination_date"))
		if !ok {
			report.Skip(rowNum, fmt.Sprintf("unparseable origination_date %q", tbl.get(row, "origination_date")))
			continue
		}

		order := models.Order{
			OrderID:         orderID,
			BorrowerID:      tbl.get(row, "borrower_id"),
			Principal:       principal,
			OriginationDate: originated,
		}
		if closedStr := tbl.get(row, "closed_at"); closedStr != "" {
			if closed, ok := utils.ParseFlexibleDate(closedStr); ok {
				order.ClosedDate = &closed
			}
		}

		seen[orderID] = true
		orders = append(orders, order)
		report.RowsLoaded++
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderID < orders[j].OrderID })
	return orders, report, nil
}
