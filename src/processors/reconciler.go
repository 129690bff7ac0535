package processors

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

// ReconcilerConfig carries the evaluation settings supplied by the UI.
type ReconcilerConfig struct {
	// AsOfDate is the reference date for late/pending classification.
	// Zero means "latest date seen in the dataset".
	AsOfDate time.Time

	// GracePeriodDays is the number of days after a due date before
	// lateness is counted.
	GracePeriodDays int
}

// ReconciliationResult is the reconciled table plus the reference-error
// counts and the per-order payment surplus that no installment could
// absorb. Total allocated money never exceeds total recorded payments.
type ReconciliationResult struct {
	Installments    []models.ReconciledInstallment `json:"installments"`
	AsOfDate        time.Time                      `json:"as_of_date"`
	GracePeriodDays int                            `json:"grace_period_days"`

	PaymentsWithoutOrder int `json:"payments_without_order"`
	PlansWithoutOrder    int `json:"plans_without_order"`

	Unallocated map[string]decimal.Decimal `json:"unallocated,omitempty"`
}

type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// workingInstallment tracks allocation state for one scheduled installment.
type workingInstallment struct {
	plan     models.PlanInstallment
	paid     decimal.Decimal
	lastPaid time.Time // date of the last payment that contributed
}

// Reconcile joins the payment plan against the actual payments per
// order. Payments are applied FIFO: sorted by paid date, each payment
// fills the earliest not-yet-covered installment first and spills any
// remainder to the next one. Payment or plan rows referencing an order
// absent from the orders table are excluded and counted.
func (r *Reconciler) Reconcile(orders []models.Order, plan []models.PlanInstallment, payments []models.Payment, cfg ReconcilerConfig) *ReconciliationResult {
	result := &ReconciliationResult{
		GracePeriodDays: cfg.GracePeriodDays,
		Unallocated:     make(map[string]decimal.Decimal),
	}

	asOf := cfg.AsOfDate
	if asOf.IsZero() {
		asOf = latestDataDate(plan, payments)
	}
	asOf = utils.TruncateToDay(asOf)
	result.AsOfDate = asOf

	knownOrders := make(map[string]bool, len(orders))
	for _, o := range orders {
		knownOrders[o.OrderID] = true
	}

	installmentsByOrder := make(map[string][]*workingInstallment)
	var orderIDs []string
	for _, p := range plan {
		if !knownOrders[p.OrderID] {
			result.PlansWithoutOrder++
			continue
		}
		if installmentsByOrder[p.OrderID] == nil {
			orderIDs = append(orderIDs, p.OrderID)
		}
		installmentsByOrder[p.OrderID] = append(installmentsByOrder[p.OrderID], &workingInstallment{plan: p})
	}
	sort.Strings(orderIDs)
	for _, id := range orderIDs {
		insts := installmentsByOrder[id]
		sort.SliceStable(insts, func(i, j int) bool {
			if !insts[i].plan.DueDate.Equal(insts[j].plan.DueDate) {
				return insts[i].plan.DueDate.Before(insts[j].plan.DueDate)
			}
			return insts[i].plan.InstallmentIndex < insts[j].plan.InstallmentIndex
		})
	}

	paymentsByOrder := make(map[string][]models.Payment)
	for _, p := range payments {
		if !knownOrders[p.OrderID] {
			result.PaymentsWithoutOrder++
			continue
		}
		paymentsByOrder[p.OrderID] = append(paymentsByOrder[p.OrderID], p)
	}

	for _, orderID := range orderIDs {
		insts := installmentsByOrder[orderID]

		orderPayments := paymentsByOrder[orderID]
		sort.SliceStable(orderPayments, func(i, j int) bool {
			return orderPayments[i].PaidDate.Before(orderPayments[j].PaidDate)
		})

		for _, payment := range orderPayments {
			remaining := payment.PaidAmount
			for _, inst := range insts {
				if !remaining.IsPositive() {
					break
				}
				shortfall := inst.plan.DueAmount.Sub(inst.paid)
				if !shortfall.IsPositive() {
					continue
				}
				alloc := decimal.Min(remaining, shortfall)
				inst.paid = inst.paid.Add(alloc)
				inst.lastPaid = payment.PaidDate
				remaining = remaining.Sub(alloc)
			}
			if remaining.IsPositive() {
				result.Unallocated[orderID] = result.Unallocated[orderID].Add(remaining)
			}
		}

		for _, inst := range insts {
			result.Installments = append(result.Installments, evaluateInstallment(inst, asOf, cfg.GracePeriodDays))
		}
	}

	// Stable output contract: order, then installment index.
	sort.SliceStable(result.Installments, func(i, j int) bool {
		if result.Installments[i].OrderID != result.Installments[j].OrderID {
			return result.Installments[i].OrderID < result.Installments[j].OrderID
		}
		return result.Installments[i].InstallmentIndex < result.Installments[j].InstallmentIndex
	})

	return result
}

// evaluateInstallment classifies one installment at the as-of date.
// Lateness is counted only past the grace window: days_late is the
// number of whole days the final payment (or, while unpaid, the as-of
// date) falls beyond due_date + grace.
func evaluateInstallment(inst *workingInstallment, asOf time.Time, graceDays int) models.ReconciledInstallment {
	out := models.ReconciledInstallment{
		OrderID:          inst.plan.OrderID,
		InstallmentIndex: inst.plan.InstallmentIndex,
		DueDate:          inst.plan.DueDate,
		DueAmount:        inst.plan.DueAmount,
		PaidAmount:       inst.paid,
	}
	if !inst.lastPaid.IsZero() {
		paidDate := inst.lastPaid
		out.PaidDate = &paidDate
	}

	graceEnd := utils.TruncateToDay(inst.plan.DueDate).AddDate(0, 0, graceDays)
	due := utils.TruncateToDay(inst.plan.DueDate)

	fullyCovered := inst.paid.GreaterThanOrEqual(inst.plan.DueAmount)
	switch {
	case fullyCovered:
		// A zero-amount installment counts as paid on time.
		if inst.lastPaid.IsZero() || !utils.TruncateToDay(inst.lastPaid).After(graceEnd) {
			out.Status = models.StatusPaid
		} else {
			out.Status = models.StatusLate
			out.DaysLate = utils.WholeDaysBetween(graceEnd, inst.lastPaid)
		}
	case due.After(asOf):
		out.Status = models.StatusPending
	case inst.paid.IsPositive():
		out.Status = models.StatusPartial
		if asOf.After(graceEnd) {
			out.DaysLate = utils.WholeDaysBetween(graceEnd, asOf)
		}
	case graceEnd.Before(asOf):
		out.Status = models.StatusMissed
		out.DaysLate = utils.WholeDaysBetween(graceEnd, asOf)
	default:
		// Due date has passed but the grace window has not expired.
		out.Status = models.StatusPending
	}

	return out
}

// latestDataDate is the as-of default: the latest due date or paid date
// present in the dataset.
func latestDataDate(plan []models.PlanInstallment, payments []models.Payment) time.Time {
	var latest time.Time
	for _, p := range plan {
		if p.DueDate.After(latest) {
			latest = p.DueDate
		}
	}
	for _, p := range payments {
		if p.PaidDate.After(latest) {
			latest = p.PaidDate
		}
	}
	return latest
}
