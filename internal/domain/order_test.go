package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusPreparing.IsTerminal())
	assert.False(t, OrderStatusReadyForPickup.IsTerminal())
	assert.False(t, OrderStatusOutForDelivery.IsTerminal())
}

func TestOrderStatus_IsValid(t *testing.T) {
	assert.True(t, OrderStatusOutForDelivery.IsValid())
	assert.False(t, OrderStatus("SHIPPED").IsValid())
	assert.False(t, OrderStatus("").IsValid())
}

func TestPaymentMethod_CountsAsCash(t *testing.T) {
	assert.True(t, PaymentMethodCash.CountsAsCash())
	assert.True(t, PaymentMethodInstantTransfer.CountsAsCash())
	assert.False(t, PaymentMethodCard.CountsAsCash())
}

func TestOrder_Clone_DoesNotShareState(t *testing.T) {
	phone := "555-0101"
	next := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	method := PaymentMethodCash

	order := Order{
		ID:                     "order-1",
		CustomerPhone:          &phone,
		NextAutoTransitionTime: &next,
		PaymentMethod:          &method,
		Items: []OrderItem{
			{ID: "item-1", Name: "Margherita", Quantity: 1, Price: decimal.NewFromInt(40)},
		},
	}

	clone := order.Clone()
	*clone.CustomerPhone = "changed"
	*clone.NextAutoTransitionTime = next.Add(time.Hour)
	*clone.PaymentMethod = PaymentMethodCard
	clone.Items[0].Name = "changed"

	assert.Equal(t, "555-0101", *order.CustomerPhone)
	assert.Equal(t, next, *order.NextAutoTransitionTime)
	assert.Equal(t, PaymentMethodCash, *order.PaymentMethod)
	assert.Equal(t, "Margherita", order.Items[0].Name)
}

func TestOrder_CountsAsCashSale(t *testing.T) {
	cash := PaymentMethodCash
	card := PaymentMethodCard

	assert.True(t, Order{Status: OrderStatusDelivered, PaymentMethod: &cash}.CountsAsCashSale())
	assert.False(t, Order{Status: OrderStatusDelivered, PaymentMethod: &card}.CountsAsCashSale())
	assert.False(t, Order{Status: OrderStatusPreparing, PaymentMethod: &cash}.CountsAsCashSale())
	assert.False(t, Order{Status: OrderStatusDelivered}.CountsAsCashSale())
}

func TestOrder_NullableFields(t *testing.T) {
	order := Order{ID: "order-2", OrderType: OrderTypeCounter, Status: OrderStatusPending}

	assert.Nil(t, order.CustomerPhone)
	assert.Nil(t, order.TableID)
	assert.Nil(t, order.NextAutoTransitionTime)
	assert.False(t, order.AmountPaid.Valid)
	assert.False(t, order.PaidWith(PaymentMethodCash))
}
