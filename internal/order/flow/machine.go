package flow

import (
	"time"

	"github.com/shopspring/decimal"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

var progression = map[domain.OrderStatus]domain.OrderStatus{
	domain.OrderStatusPending:        domain.OrderStatusPreparing,
	domain.OrderStatusPreparing:      domain.OrderStatusReadyForPickup,
	domain.OrderStatusReadyForPickup: domain.OrderStatusOutForDelivery,
	domain.OrderStatusOutForDelivery: domain.OrderStatusDelivered,
}

// Successor returns the next status in the fixed progression, ignoring order type.
func Successor(status domain.OrderStatus) (domain.OrderStatus, bool) {
	next, ok := progression[status]
	return next, ok
}

// ScheduledSuccessor is the status the scheduler moves an order of orderType to once its
// timer expires. Dine-in orders hold at READY_FOR_PICKUP and only delivery orders go out
// for delivery.
func ScheduledSuccessor(orderType domain.OrderType, status domain.OrderStatus) (domain.OrderStatus, bool) {
	if orderType == domain.OrderTypeDineIn && status == domain.OrderStatusReadyForPickup {
		return "", false
	}
	next, ok := Successor(status)
	if !ok {
		return "", false
	}
	if next == domain.OrderStatusOutForDelivery && orderType != domain.OrderTypeDelivery {
		return domain.OrderStatusDelivered, true
	}
	return next, true
}

// CheckTransition validates moving order to status. Manual requests come from a person,
// the scheduler passes manual=false.
func CheckTransition(order domain.Order, to domain.OrderStatus, manual bool) error {
	if !to.IsValid() {
		return apperrors.NewValidationError("invalid order status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "unknown status " + string(to),
		})
	}
	if order.Status.IsTerminal() {
		return apperrors.NewConflictError("order " + order.ID + " is already " + string(order.Status))
	}
	if manual && order.IsDineIn() && to == domain.OrderStatusDelivered {
		return apperrors.NewConflictError("table orders must be finalized by closing the table account")
	}
	return nil
}

// TransitionResult is an order after a status change.
type TransitionResult struct {
	Order domain.Order
	// Held is set when a dine-in order reached READY_FOR_PICKUP and now waits for its
	// table account to be closed.
	Held bool
}

// ApplyTransition moves order to status at now. duration is the configured time for the
// target status and is ignored for holding states.
func ApplyTransition(order domain.Order, to domain.OrderStatus, duration time.Duration, now time.Time) TransitionResult {
	out := order.Clone()
	out.Status = to
	out.LastStatusChangeTime = now

	held := order.IsDineIn() && to == domain.OrderStatusReadyForPickup
	if to.IsTerminal() || held {
		stopAutoProgress(&out)
		return TransitionResult{Order: out, Held: held}
	}

	startTimer(&out, duration, now)
	return TransitionResult{Order: out}
}

// ToggleResult is an order after its auto-progress flag was flipped.
type ToggleResult struct {
	Order domain.Order
	// ZeroDuration is set when enabling was requested but the current status has nothing
	// to progress, so the flag stayed off.
	ZeroDuration bool
}

// ApplyToggle flips auto-progress for order. duration is the configured time for the
// order's current status.
func ApplyToggle(order domain.Order, duration time.Duration, now time.Time) (ToggleResult, error) {
	out := order.Clone()

	if order.AutoProgress {
		out.AutoProgress = false
		out.NextAutoTransitionTime = nil
		return ToggleResult{Order: out}, nil
	}

	if order.Status.IsTerminal() {
		return ToggleResult{}, apperrors.NewConflictError("order " + order.ID + " is already " + string(order.Status))
	}
	if order.IsDineIn() && order.Status == domain.OrderStatusReadyForPickup {
		return ToggleResult{}, apperrors.NewConflictError("table order is ready and waits for the account to be closed")
	}

	out.LastStatusChangeTime = now
	if duration <= 0 {
		stopAutoProgress(&out)
		return ToggleResult{Order: out, ZeroDuration: true}, nil
	}

	startTimer(&out, duration, now)
	return ToggleResult{Order: out}, nil
}

// ItemsAddedResult is an order after extra items were appended.
type ItemsAddedResult struct {
	Order domain.Order
	// Reopened is set when a READY_FOR_PICKUP order went back to PREPARING.
	Reopened bool
}

// ApplyItemsAdded raises the order total by added and restarts the kitchen timer when the
// order is still being made. durationFor resolves the configured time for a status of
// this order's type.
func ApplyItemsAdded(
	order domain.Order,
	added decimal.Decimal,
	durationFor func(domain.OrderStatus) time.Duration,
	now time.Time,
) (ItemsAddedResult, error) {
	if order.Status.IsTerminal() {
		return ItemsAddedResult{}, apperrors.NewConflictError("cannot add items to an order that is " + string(order.Status))
	}

	out := order.Clone()
	out.TotalAmount = order.TotalAmount.Add(added)
	out.LastStatusChangeTime = now

	switch order.Status {
	case domain.OrderStatusPending, domain.OrderStatusPreparing:
		startTimer(&out, durationFor(order.Status), now)
	case domain.OrderStatusReadyForPickup:
		out.Status = domain.OrderStatusPreparing
		startTimer(&out, durationFor(domain.OrderStatusPreparing), now)
		return ItemsAddedResult{Order: out, Reopened: true}, nil
	}

	return ItemsAddedResult{Order: out}, nil
}

// Payment is how a table account was settled. AmountPaid is the cash handed over and
// only matters for CASH.
type Payment struct {
	Method     domain.PaymentMethod
	AmountPaid decimal.NullDecimal
}

// ApplyTableClose finalizes order as DELIVERED with payment recorded. sessionID is the
// cash session the payment lands in, nil when none applies.
func ApplyTableClose(order domain.Order, payment Payment, sessionID *string, now time.Time) domain.Order {
	out := order.Clone()
	out.Status = domain.OrderStatusDelivered
	out.LastStatusChangeTime = now

	method := payment.Method
	out.PaymentMethod = &method

	paid := order.TotalAmount
	if method == domain.PaymentMethodCash && payment.AmountPaid.Valid {
		paid = payment.AmountPaid.Decimal
	}
	change := decimal.Zero
	if paid.GreaterThanOrEqual(order.TotalAmount) {
		change = paid.Sub(order.TotalAmount)
	}
	out.AmountPaid = decimal.NewNullDecimal(paid)
	out.ChangeDue = decimal.NewNullDecimal(change)

	out.CashRegisterSessionID = nil
	if sessionID != nil && method.CountsAsCash() {
		id := *sessionID
		out.CashRegisterSessionID = &id
	}

	stopAutoProgress(&out)
	return out
}

// ApplyComplete stops the timer of an order whose status has no scheduled successor.
// The status is left as it is.
func ApplyComplete(order domain.Order) domain.Order {
	out := order.Clone()
	stopAutoProgress(&out)
	return out
}

// InitialTimer sets the lifecycle fields of a freshly created PENDING order.
func InitialTimer(order *domain.Order, duration time.Duration, now time.Time) {
	order.Status = domain.OrderStatusPending
	order.LastStatusChangeTime = now
	startTimer(order, duration, now)
}

func startTimer(order *domain.Order, duration time.Duration, now time.Time) {
	if duration <= 0 {
		stopAutoProgress(order)
		return
	}
	next := now.Add(duration)
	order.AutoProgress = true
	order.NextAutoTransitionTime = &next
	order.CurrentProgressPercent = 0
}

func stopAutoProgress(order *domain.Order) {
	order.AutoProgress = false
	order.NextAutoTransitionTime = nil
	order.CurrentProgressPercent = 100
}
