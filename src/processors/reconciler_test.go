package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/loanlens/backend/src/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func singleOrder() []models.Order {
	return []models.Order{{
		OrderID:         "O1",
		BorrowerID:      "B1",
		Principal:       amount("1000"),
		OriginationDate: day(2023, 12, 1),
	}}
}

func TestReconcilePaidWithinGrace(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 3), PaidAmount: amount("100")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{GracePeriodDays: 5})

	require.Len(t, result.Installments, 1)
	inst := result.Installments[0]
	assert.Equal(t, models.StatusPaid, inst.Status)
	assert.Equal(t, 0, inst.DaysLate)
	assert.True(t, inst.PaidAmount.Equal(amount("100")))
	require.NotNil(t, inst.PaidDate)
	assert.Equal(t, day(2024, 1, 3), *inst.PaidDate)
}

func TestReconcileLateBeyondGrace(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 3), PaidAmount: amount("100")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{
		AsOfDate:        day(2024, 1, 10),
		GracePeriodDays: 0,
	})

	require.Len(t, result.Installments, 1)
	inst := result.Installments[0]
	assert.Equal(t, models.StatusLate, inst.Status)
	assert.Equal(t, 2, inst.DaysLate)
}

func TestReconcileOverpaymentSpillsForward(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "O1", InstallmentIndex: 2, DueDate: day(2024, 2, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 1), PaidAmount: amount("150")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{})

	require.Len(t, result.Installments, 2)
	first, second := result.Installments[0], result.Installments[1]

	assert.Equal(t, models.StatusPaid, first.Status)
	assert.True(t, first.PaidAmount.Equal(amount("100")))

	assert.Equal(t, models.StatusPartial, second.Status)
	assert.True(t, second.PaidAmount.Equal(amount("50")))
	assert.Empty(t, result.Unallocated)
}

func TestReconcileFIFOAcrossMultiplePayments(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "O1", InstallmentIndex: 2, DueDate: day(2024, 2, 1), DueAmount: amount("100")},
	}
	// Out of order on purpose; allocation follows paid date, not file order.
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 2, 3), PaidAmount: amount("100")},
		{OrderID: "O1", PaidDate: day(2024, 1, 1), PaidAmount: amount("60")},
		{OrderID: "O1", PaidDate: day(2024, 1, 15), PaidAmount: amount("40")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{
		AsOfDate: day(2024, 3, 1),
	})

	require.Len(t, result.Installments, 2)
	first, second := result.Installments[0], result.Installments[1]

	assert.Equal(t, models.StatusLate, first.Status)
	assert.Equal(t, 14, first.DaysLate)
	require.NotNil(t, first.PaidDate)
	assert.Equal(t, day(2024, 1, 15), *first.PaidDate)

	assert.Equal(t, models.StatusLate, second.Status)
	assert.Equal(t, 2, second.DaysLate)
}

func TestReconcileNoPaymentsAllMissed(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "O1", InstallmentIndex: 2, DueDate: day(2024, 2, 1), DueAmount: amount("100")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, nil, ReconcilerConfig{
		AsOfDate: day(2024, 3, 1),
	})

	require.Len(t, result.Installments, 2)
	for _, inst := range result.Installments {
		assert.Equal(t, models.StatusMissed, inst.Status)
		assert.True(t, inst.PaidAmount.IsZero())
		assert.Nil(t, inst.PaidDate)
	}
	assert.Equal(t, 60, result.Installments[0].DaysLate)
	assert.Equal(t, 29, result.Installments[1].DaysLate)
}

func TestReconcileFutureDuePending(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 6, 1), DueAmount: amount("100")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, nil, ReconcilerConfig{
		AsOfDate: day(2024, 1, 15),
	})

	require.Len(t, result.Installments, 1)
	assert.Equal(t, models.StatusPending, result.Installments[0].Status)
	assert.Equal(t, 0, result.Installments[0].DaysLate)
}

func TestReconcileUnpaidWithinGraceStillPending(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, nil, ReconcilerConfig{
		AsOfDate:        day(2024, 1, 4),
		GracePeriodDays: 5,
	})

	require.Len(t, result.Installments, 1)
	assert.Equal(t, models.StatusPending, result.Installments[0].Status)
	assert.Equal(t, 0, result.Installments[0].DaysLate)
}

func TestReconcileUnknownOrderReferencesExcludedAndCounted(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "GHOST", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("999")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 1), PaidAmount: amount("100")},
		{OrderID: "GHOST", PaidDate: day(2024, 1, 1), PaidAmount: amount("999")},
		{OrderID: "PHANTOM", PaidDate: day(2024, 1, 2), PaidAmount: amount("1")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{})

	require.Len(t, result.Installments, 1)
	assert.Equal(t, "O1", result.Installments[0].OrderID)
	assert.Equal(t, 1, result.PlansWithoutOrder)
	assert.Equal(t, 2, result.PaymentsWithoutOrder)
}

func TestReconcileConservationOfMoney(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "O1", InstallmentIndex: 2, DueDate: day(2024, 2, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 1), PaidAmount: amount("130")},
		{OrderID: "O1", PaidDate: day(2024, 2, 1), PaidAmount: amount("120")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{})

	allocated := decimal.Zero
	for _, inst := range result.Installments {
		assert.True(t, inst.PaidAmount.LessThanOrEqual(inst.DueAmount))
		allocated = allocated.Add(inst.PaidAmount)
	}
	surplus := result.Unallocated["O1"]
	assert.True(t, surplus.Equal(amount("50")))
	assert.True(t, allocated.Add(surplus).Equal(amount("250")))
}

func TestReconcileIdempotent(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
		{OrderID: "O1", InstallmentIndex: 2, DueDate: day(2024, 2, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 5), PaidAmount: amount("150")},
	}
	cfg := ReconcilerConfig{AsOfDate: day(2024, 3, 1), GracePeriodDays: 3}

	r := NewReconciler()
	first := r.Reconcile(singleOrder(), plan, payments, cfg)
	second := r.Reconcile(singleOrder(), plan, payments, cfg)

	assert.Equal(t, first, second)
}

func TestReconcileGracePeriodMonotonicity(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 1, 4), PaidAmount: amount("100")},
	}

	strict := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{
		AsOfDate: day(2024, 2, 1), GracePeriodDays: 0,
	})
	lenient := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{
		AsOfDate: day(2024, 2, 1), GracePeriodDays: 7,
	})

	assert.Equal(t, models.StatusLate, strict.Installments[0].Status)
	assert.Equal(t, 3, strict.Installments[0].DaysLate)
	assert.Equal(t, models.StatusPaid, lenient.Installments[0].Status)
	assert.Equal(t, 0, lenient.Installments[0].DaysLate)
}

func TestReconcileDefaultAsOfIsLatestDataDate(t *testing.T) {
	plan := []models.PlanInstallment{
		{OrderID: "O1", InstallmentIndex: 1, DueDate: day(2024, 1, 1), DueAmount: amount("100")},
	}
	payments := []models.Payment{
		{OrderID: "O1", PaidDate: day(2024, 3, 15), PaidAmount: amount("20")},
	}

	result := NewReconciler().Reconcile(singleOrder(), plan, payments, ReconcilerConfig{})

	assert.Equal(t, day(2024, 3, 15), result.AsOfDate)
	assert.Equal(t, models.StatusPartial, result.Installments[0].Status)
}
