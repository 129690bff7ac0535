package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/utils"
)

// Aggregation periods. Buckets are derived from the installment due date.
const (
	PeriodMonth   = "month"
	PeriodWeek    = "week"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// PortfolioSegment is the segment label used when not grouping by borrower.
const PortfolioSegment = "portfolio"

// TrendOptions selects the bucketing of the delinquency time series.
type TrendOptions struct {
	Period     string // month when empty
	ByBorrower bool
}

type TrendAggregator struct{}

func NewTrendAggregator() *TrendAggregator {
	return &TrendAggregator{}
}

// Aggregate buckets reconciled installments by (segment, period) and
// computes the per-status counts and delinquency metrics for each
// bucket. Records come back in chronological order (then by segment);
// periods with nothing due are omitted, not zero-filled.
func (a *TrendAggregator) Aggregate(installments []models.ReconciledInstallment, orders []models.Order, opts TrendOptions) ([]models.DelinquencyRecord, error) {
	period := opts.Period
	if period == "" {
		period = PeriodMonth
	}
	switch period {
	case PeriodMonth, PeriodWeek, PeriodQuarter, PeriodYear:
	default:
		return nil, fmt.Errorf("unknown aggregation period %q", period)
	}

	borrowerByOrder := make(map[string]string, len(orders))
	for _, o := range orders {
		borrowerByOrder[o.OrderID] = o.BorrowerID
	}

	type bucketKey struct {
		period  string
		segment string
	}
	type bucketAcc struct {
		record       models.DelinquencyRecord
		daysLateSum  int
		installments int
	}

	buckets := make(map[bucketKey]*bucketAcc)
	for _, inst := range installments {
		segment := PortfolioSegment
		if opts.ByBorrower {
			segment = borrowerByOrder[inst.OrderID]
		}
		key := bucketKey{period: periodKey(inst.DueDate, period), segment: segment}

		acc := buckets[key]
		if acc == nil {
			acc = &bucketAcc{record: models.DelinquencyRecord{
				Period:        key.period,
				Segment:       segment,
				TotalExpected: decimal.Zero,
				TotalPaid:     decimal.Zero,
			}}
			buckets[key] = acc
		}

		switch inst.Status {
		case models.StatusPaid:
			acc.record.Paid++
		case models.StatusPartial:
			acc.record.Partial++
		case models.StatusLate:
			acc.record.Late++
		case models.StatusMissed:
			acc.record.Missed++
		case models.StatusPending:
			acc.record.Pending++
		}
		acc.record.TotalExpected = acc.record.TotalExpected.Add(inst.DueAmount)
		acc.record.TotalPaid = acc.record.TotalPaid.Add(inst.PaidAmount)
		acc.daysLateSum += inst.DaysLate
		acc.installments++
	}

	records := make([]models.DelinquencyRecord, 0, len(buckets))
	for _, acc := range buckets {
		rec := acc.record
		rec.TotalDue = rec.Paid + rec.Partial + rec.Late + rec.Missed
		if rec.TotalDue > 0 {
			rec.DelinquencyRate = utils.RoundFloat(float64(rec.Late+rec.Missed)/float64(rec.TotalDue), 4)
		}
		if acc.installments > 0 {
			rec.AvgDaysLate = utils.RoundFloat(float64(acc.daysLateSum)/float64(acc.installments), 2)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Period != records[j].Period {
			return records[i].Period < records[j].Period
		}
		return records[i].Segment < records[j].Segment
	})

	return records, nil
}

// periodKey renders the bucket label for a due date. Labels sort
// lexicographically in chronological order.
func periodKey(t time.Time, period string) string {
	switch period {
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodQuarter:
		quarter := (int(t.Month())-1)/3 + 1
		return fmt.Sprintf("%04d-Q%d", t.Year(), quarter)
	case PeriodYear:
		return fmt.Sprintf("%04d", t.Year())
	default:
		return t.Format("2006-01")
	}
}
