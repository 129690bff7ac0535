package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

// daysLateBucketLabels are the dashboard's payment-timing bands, in
// display order.
var daysLateBucketLabels = []string{
	"Early",
	"On time",
	"1-7 days",
	"8-14 days",
	"15-30 days",
	"31-60 days",
	"60+ days",
}

// Summarize computes the headline figures for a reconciliation result:
// totals, payment deficit, the days-late distribution, and the
// cross-file inconsistency counts.
func Summarize(result *ReconciliationResult, orders []models.Order, payments []models.Payment) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		TotalPrincipal:       decimal.Zero,
		TotalExpected:        decimal.Zero,
		TotalPaid:            decimal.Zero,
		PaymentDeficit:       decimal.Zero,
		PaymentsWithoutOrder: result.PaymentsWithoutOrder,
		PlansWithoutOrder:    result.PlansWithoutOrder,
	}

	principalByOrder := make(map[string]decimal.Decimal, len(orders))
	for _, o := range orders {
		principalByOrder[o.OrderID] = o.Principal
	}

	paidOrders := make(map[string]bool, len(payments))
	for _, p := range payments {
		paidOrders[p.OrderID] = true
	}
	for _, o := range orders {
		if !paidOrders[o.OrderID] {
			summary.OrdersWithoutPayments++
		}
	}

	bucketCounts := make(map[string]int, len(daysLateBucketLabels))
	seenOrders := make(map[string]bool)
	daysLateSum := 0
	totalDue := 0

	for _, inst := range result.Installments {
		if !seenOrders[inst.OrderID] {
			seenOrders[inst.OrderID] = true
			summary.TotalLoans++
			summary.TotalPrincipal = summary.TotalPrincipal.Add(principalByOrder[inst.OrderID])
		}

		summary.TotalInstallments++
		summary.TotalExpected = summary.TotalExpected.Add(inst.DueAmount)
		summary.TotalPaid = summary.TotalPaid.Add(inst.PaidAmount)
		daysLateSum += inst.DaysLate

		if inst.DaysLate > 0 {
			summary.LateCount++
		} else {
			summary.OnTimeCount++
		}

		switch inst.Status {
		case models.StatusPaid, models.StatusPartial, models.StatusLate, models.StatusMissed:
			totalDue++
		}

		bucketCounts[daysLateBucket(inst, result.AsOfDate)]++
	}

	summary.PaymentDeficit = summary.TotalExpected.Sub(summary.TotalPaid)
	if summary.TotalInstallments > 0 {
		summary.AvgDaysLate = utils.RoundFloat(float64(daysLateSum)/float64(summary.TotalInstallments), 2)
	}
	missedOrLate := 0
	for _, inst := range result.Installments {
		if inst.Status == models.StatusLate || inst.Status == models.StatusMissed {
			missedOrLate++
		}
	}
	if totalDue > 0 {
		summary.DelinquencyRate = utils.RoundFloat(float64(missedOrLate)/float64(totalDue), 4)
	}

	for _, label := range daysLateBucketLabels {
		summary.DaysLateDistribution = append(summary.DaysLateDistribution, models.DaysLateBucket{
			Label: label,
			Count: bucketCounts[label],
		})
	}

	return summary
}

// daysLateBucket bands an installment by signed days between its due
// date and its final payment date (or the as-of date while unpaid), so
// early payments land in "Early" even though DaysLate is clamped at 0.
func daysLateBucket(inst models.ReconciledInstallment, asOf time.Time) string {
	reference := asOf
	if inst.PaidDate != nil {
		reference = *inst.PaidDate
	}
	days := utils.WholeDaysBetween(inst.DueDate, reference)
	switch {
	case days <= -1:
		return "Early"
	case days <= 0:
		return "On time"
	case days <= 7:
		return "1-7 days"
	case days <= 14:
		return "8-14 days"
	case days <= 30:
		return "15-30 days"
	case days <= 60:
		return "31-60 days"
	default:
		return "60+ days"
	}
}
