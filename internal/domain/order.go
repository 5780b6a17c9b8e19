package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeCounter  OrderType = "COUNTER"
	OrderTypeDelivery OrderType = "DELIVERY"
	OrderTypeDineIn   OrderType = "DINE_IN"
)

func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeCounter, OrderTypeDelivery, OrderTypeDineIn:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in progression order, terminal ones last.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCash            PaymentMethod = "CASH"
	PaymentMethodInstantTransfer PaymentMethod = "INSTANT_TRANSFER"
	PaymentMethodCard            PaymentMethod = "CARD"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodInstantTransfer, PaymentMethodCard:
		return true
	}
	return false
}

// CountsAsCash reports whether payments with m are reconciled against the cash drawer session.
func (m PaymentMethod) CountsAsCash() bool {
	return m == PaymentMethodCash || m == PaymentMethodInstantTransfer
}

type Order struct {
	ID                     string              `json:"id"`
	OrderType              OrderType           `json:"orderType"`
	Status                 OrderStatus         `json:"status"`
	CustomerName           string              `json:"customerName"`
	CustomerPhone          *string             `json:"customerPhone,omitempty"`
	CustomerAddress        *string             `json:"customerAddress,omitempty"`
	Notes                  *string             `json:"notes,omitempty"`
	TableID                *string             `json:"tableId,omitempty"`
	TotalAmount            decimal.Decimal     `json:"totalAmount"`
	PaymentMethod          *PaymentMethod      `json:"paymentMethod,omitempty"`
	AmountPaid             decimal.NullDecimal `json:"amountPaid"`
	ChangeDue              decimal.NullDecimal `json:"changeDue"`
	AutoProgress           bool                `json:"autoProgress"`
	CurrentProgressPercent int                 `json:"currentProgressPercent"`
	NextAutoTransitionTime *time.Time          `json:"nextAutoTransitionTime,omitempty"`
	LastStatusChangeTime   time.Time           `json:"lastStatusChangeTime"`
	OrderTime              time.Time           `json:"orderTime"`
	CashRegisterSessionID  *string             `json:"cashRegisterSessionId,omitempty"`
	Items                  []OrderItem         `json:"items"`
}

// Clone returns a copy that shares no mutable state with o.
func (o Order) Clone() Order {
	c := o
	c.CustomerPhone = cloneString(o.CustomerPhone)
	c.CustomerAddress = cloneString(o.CustomerAddress)
	c.Notes = cloneString(o.Notes)
	c.TableID = cloneString(o.TableID)
	c.CashRegisterSessionID = cloneString(o.CashRegisterSessionID)
	if o.PaymentMethod != nil {
		m := *o.PaymentMethod
		c.PaymentMethod = &m
	}
	if o.NextAutoTransitionTime != nil {
		t := *o.NextAutoTransitionTime
		c.NextAutoTransitionTime = &t
	}
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			c.Items[i] = item.Clone()
		}
	}
	return c
}

func (o Order) IsDineIn() bool {
	return o.OrderType == OrderTypeDineIn
}

// PaidWith reports whether the order carries payment method m.
func (o Order) PaidWith(m PaymentMethod) bool {
	return o.PaymentMethod != nil && *o.PaymentMethod == m
}

// CountsAsCashSale reports whether the order contributes to a session's reconciled sales.
func (o Order) CountsAsCashSale() bool {
	return o.Status == OrderStatusDelivered && o.PaymentMethod != nil && o.PaymentMethod.CountsAsCash()
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
