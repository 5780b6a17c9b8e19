package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	MenuItemID      string          `json:"menuItemId"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	SelectedSizeID  *string         `json:"selectedSizeId,omitempty"`
	SelectedCrustID *string         `json:"selectedCrustId,omitempty"`
	IsHalfAndHalf   bool            `json:"isHalfAndHalf"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (i OrderItem) Clone() OrderItem {
	c := i
	c.SelectedSizeID = cloneString(i.SelectedSizeID)
	c.SelectedCrustID = cloneString(i.SelectedCrustID)
	c.Notes = cloneString(i.Notes)
	return c
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line totals of items.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
