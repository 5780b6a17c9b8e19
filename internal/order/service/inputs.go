package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

// ItemInput is one cart line to be stored as an order item.
type ItemInput struct {
	MenuItemID      string          `json:"menuItemId"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	SelectedSizeID  *string         `json:"selectedSizeId,omitempty"`
	SelectedCrustID *string         `json:"selectedCrustId,omitempty"`
	IsHalfAndHalf   bool            `json:"isHalfAndHalf"`
	Notes           *string         `json:"notes,omitempty"`
}

// ManualOrderInput is an order taken by staff at the counter, on the phone or at a table.
type ManualOrderInput struct {
	OrderType        domain.OrderType      `json:"orderType"`
	CustomerName     string                `json:"customerName"`
	CustomerPhone    *string               `json:"customerPhone,omitempty"`
	CustomerAddress  *string               `json:"customerAddress,omitempty"`
	AddressReference *string               `json:"addressReference,omitempty"`
	Notes            *string               `json:"notes,omitempty"`
	TableID          *string               `json:"tableId,omitempty"`
	PaymentMethod    *domain.PaymentMethod `json:"paymentMethod,omitempty"`
	AmountPaid       decimal.NullDecimal   `json:"amountPaid"`
	Items            []ItemInput           `json:"items"`
}

// CheckoutInput is an order placed by a customer through the online menu. It is always
// a delivery and is paid on arrival.
type CheckoutInput struct {
	CustomerName     string      `json:"customerName"`
	CustomerPhone    string      `json:"customerPhone"`
	CustomerAddress  string      `json:"customerAddress"`
	AddressReference *string     `json:"addressReference,omitempty"`
	Notes            *string     `json:"notes,omitempty"`
	Items            []ItemInput `json:"items"`
}

type PaymentInput struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	AmountPaid    decimal.NullDecimal  `json:"amountPaid"`
}

func validateItems(items []ItemInput) []apperrors.ValidationDetail {
	if len(items) == 0 {
		return []apperrors.ValidationDetail{{Field: "items", Message: "at least one item is required"}}
	}

	var details []apperrors.ValidationDetail
	for i, item := range items {
		field := "items[" + strconv.Itoa(i) + "]"
		if strings.TrimSpace(item.Name) == "" {
			details = append(details, apperrors.ValidationDetail{Field: field + ".name", Message: "name is required"})
		}
		if item.Quantity <= 0 {
			details = append(details, apperrors.ValidationDetail{Field: field + ".quantity", Message: "quantity must be greater than zero"})
		}
		if item.Price.IsNegative() {
			details = append(details, apperrors.ValidationDetail{Field: field + ".price", Message: "price cannot be negative"})
		}
	}
	return details
}

func buildItems(orderID string, inputs []ItemInput, now time.Time) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, domain.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         orderID,
			MenuItemID:      in.MenuItemID,
			Name:            strings.TrimSpace(in.Name),
			Quantity:        in.Quantity,
			Price:           in.Price,
			SelectedSizeID:  in.SelectedSizeID,
			SelectedCrustID: in.SelectedCrustID,
			IsHalfAndHalf:   in.IsHalfAndHalf,
			Notes:           in.Notes,
			CreatedAt:       now,
		})
	}
	return items
}

// mergeNotes appends the address reference to free-text notes as "(Ref: ...)".
func mergeNotes(notes, reference *string) *string {
	n := optional(notes)
	ref := optional(reference)
	if ref == nil {
		return n
	}
	merged := "(Ref: " + *ref + ")"
	if n != nil {
		merged = *n + " " + merged
	}
	return &merged
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
