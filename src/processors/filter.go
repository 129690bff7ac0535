package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/loanlens/backend/src/models"
)

// FilterOptions narrows a reconciled table before aggregation, summary
// or export: by due-date range and by order principal range. Nil/zero
// fields mean "no bound".
type FilterOptions struct {
	From time.Time
	To   time.Time

	MinPrincipal *decimal.Decimal
	MaxPrincipal *decimal.Decimal
}

func (f FilterOptions) empty() bool {
	return f.From.IsZero() && f.To.IsZero() && f.MinPrincipal == nil && f.MaxPrincipal == nil
}

// FilterInstallments returns the installments matching the options.
// The input slice is never mutated.
func FilterInstallments(installments []models.ReconciledInstallment, orders []models.Order, opts FilterOptions) []models.ReconciledInstallment {
	if opts.empty() {
		return installments
	}

	principalByOrder := make(map[string]decimal.Decimal, len(orders))
	for _, o := range orders {
		principalByOrder[o.OrderID] = o.Principal
	}

	out := make([]models.ReconciledInstallment, 0, len(installments))
	for _, inst := range installments {
		if !opts.From.IsZero() && inst.DueDate.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && inst.DueDate.After(opts.To) {
			continue
		}
		if opts.MinPrincipal != nil || opts.MaxPrincipal != nil {
			principal, ok := principalByOrder[inst.OrderID]
			if !ok {
				continue
			}
			if opts.MinPrincipal != nil && principal.LessThan(*opts.MinPrincipal) {
				continue
			}
			if opts.MaxPrincipal != nil && principal.GreaterThan(*opts.MaxPrincipal) {
				continue
			}
		}
		out = append(out, inst)
	}
	return out
}
