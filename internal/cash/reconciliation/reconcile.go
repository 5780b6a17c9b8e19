// Package reconciliation computes what a cash drawer should hold when a session closes.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"comanda/internal/domain"
)

type Result struct {
	CalculatedSales    decimal.Decimal
	AddedAdjustments   decimal.Decimal
	RemovedAdjustments decimal.Decimal
	ExpectedInCash     decimal.Decimal
	Difference         decimal.Decimal
}

// Reconcile compares the informed closing balance with the opening balance plus cash sales
// and manual adjustments of sessionID. Orders and adjustments of other sessions are ignored.
//
// Sales are DELIVERED orders paid in CASH or INSTANT_TRANSFER. Instant transfers are
// counted as cash on purpose: the drawer report treats them as money received at the counter.
func Reconcile(
	sessionID string,
	opening decimal.Decimal,
	orders []domain.Order,
	adjustments []domain.CashAdjustment,
	informed decimal.Decimal,
) Result {
	sales := decimal.Zero
	for _, o := range orders {
		if o.CashRegisterSessionID == nil || *o.CashRegisterSessionID != sessionID {
			continue
		}
		if o.CountsAsCashSale() {
			sales = sales.Add(o.TotalAmount)
		}
	}

	added, removed := decimal.Zero, decimal.Zero
	for _, a := range adjustments {
		if a.SessionID != sessionID {
			continue
		}
		switch a.Type {
		case domain.AdjustmentAdd:
			added = added.Add(a.Amount)
		case domain.AdjustmentRemove:
			removed = removed.Add(a.Amount)
		}
	}

	expected := opening.Add(sales).Add(added).Sub(removed)

	return Result{
		CalculatedSales:    sales,
		AddedAdjustments:   added,
		RemovedAdjustments: removed,
		ExpectedInCash:     expected,
		Difference:         informed.Sub(expected),
	}
}
