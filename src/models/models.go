package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus classifies one scheduled installment after
// reconciliation against the actual payments, evaluated at an as-of date.
type InstallmentStatus string

const (
	StatusPaid    InstallmentStatus = "paid"
	StatusPartial InstallmentStatus = "partial"
	StatusLate    InstallmentStatus = "late"
	StatusMissed  InstallmentStatus = "missed"
	StatusPending InstallmentStatus = "pending"
)

// Order is one loan as issued. Immutable once loaded.
type Order struct {
	OrderID         string          `json:"order_id"`
	BorrowerID      string          `json:"borrower_id"`
	Principal       decimal.Decimal `json:"principal"`
	OriginationDate time.Time       `json:"origination_date"`
	ClosedDate      *time.Time      `json:"closed_date,omitempty"`
}

// PlanInstallment is one scheduled payment obligation within an order's
// payment plan. InstallmentIndex is unique per order.
type PlanInstallment struct {
	OrderID          string          `json:"order_id"`
	InstallmentIndex int             `json:"installment_index"`
	DueDate          time.Time       `json:"due_date"`
	DueAmount        decimal.Decimal `json:"due_amount"`
}

// Payment is one recorded payment event. InstallmentIndex is an optional
// hint from the source file; allocation is FIFO regardless.
type Payment struct {
	OrderID          string          `json:"order_id"`
	PaidDate         time.Time       `json:"paid_date"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	InstallmentIndex *int            `json:"installment_index,omitempty"`
}

// ReconciledInstallment is a scheduled installment joined with the
// payments allocated to it. PaidDate is the date of the last payment
// that contributed, nil when nothing was allocated.
type ReconciledInstallment struct {
	OrderID          string            `json:"order_id"`
	InstallmentIndex int               `json:"installment_index"`
	DueDate          time.Time         `json:"due_date"`
	DueAmount        decimal.Decimal   `json:"due_amount"`
	PaidAmount       decimal.Decimal   `json:"paid_amount"`
	PaidDate         *time.Time        `json:"paid_date,omitempty"`
	Status           InstallmentStatus `json:"status"`
	DaysLate         int               `json:"days_late"`
}

// DelinquencyRecord aggregates reconciled installments for one
// (segment, period) bucket. Segment is a borrower ID, or "portfolio"
// when aggregating the whole book.
type DelinquencyRecord struct {
	Period          string          `json:"period"`
	Segment         string          `json:"segment"`
	Paid            int             `json:"paid"`
	Partial         int             `json:"partial"`
	Late            int             `json:"late"`
	Missed          int             `json:"missed"`
	Pending         int             `json:"pending"`
	TotalDue        int             `json:"total_due"`
	TotalExpected   decimal.Decimal `json:"total_expected"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	DelinquencyRate float64         `json:"delinquency_rate"`
	AvgDaysLate     float64         `json:"avg_days_late"`
}

// DaysLateBucket is one band of the days-late distribution shown on the
// dashboard ("Early", "On time", "1-7 days", ...).
type DaysLateBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AnalysisSummary is the headline figures for the currently loaded,
// currently filtered dataset.
type AnalysisSummary struct {
	TotalLoans     int             `json:"total_loans"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`

	TotalInstallments int `json:"total_installments"`
	OnTimeCount       int `json:"on_time_count"`
	LateCount         int `json:"late_count"`

	TotalExpected  decimal.Decimal `json:"total_expected"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	PaymentDeficit decimal.Decimal `json:"payment_deficit"`

	AvgDaysLate     float64 `json:"avg_days_late"`
	DelinquencyRate float64 `json:"delinquency_rate"`

	DaysLateDistribution []DaysLateBucket `json:"days_late_distribution"`

	// Cross-file inconsistencies, surfaced rather than silently dropped.
	OrdersWithoutPayments int `json:"orders_without_payments"`
	PaymentsWithoutOrder  int `json:"payments_without_order"`
	PlansWithoutOrder     int `json:"plans_without_order"`
}

// LoadReport summarizes one file load: how many rows made it into the
// table and how many were excluded, with a human-readable reason each.
type LoadReport struct {
	File        string   `json:"file"`
	RowsLoaded  int      `json:"rows_loaded"`
	RowsSkipped int      `json:"rows_skipped"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Dataset kinds accepted by the upload endpoint.
const (
	DatasetOrders   = "orders"
	DatasetPlan     = "plan"
	DatasetPayments = "payments"
)

// Dataset holds one session's three uploaded tables. A table is nil
// until its file has been uploaded.
type Dataset struct {
	Orders   []Order           `json:"orders,omitempty"`
	Plan     []PlanInstallment `json:"plan,omitempty"`
	Payments []Payment         `json:"payments,omitempty"`

	Reports map[string]LoadReport `json:"reports,omitempty"`

	// Generation increments on every upload; derived-result cache keys
	// embed it so stale results are never served.
	Generation int `json:"-"`
}

// Complete reports whether all three tables have been uploaded.
func (d *Dataset) Complete() bool {
	return d != nil && d.Orders != nil && d.Plan != nil && d.Payments != nil
}

// Skip records one excluded row with the reason.
func (r *LoadReport) Skip(rowNum int, reason string) {
	r.RowsSkipped++
	r.Warnings = append(r.Warnings, fmt.Sprintf("row %d: %s", rowNum, reason))
}
