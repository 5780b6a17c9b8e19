package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/notice"
	"comanda/internal/order/flow"
	"comanda/internal/state"
)

type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindRecent(ctx context.Context, limit int) ([]domain.Order, error)
}

type OrderItemRepository interface {
	InsertBatch(ctx context.Context, items []domain.OrderItem) error
	DeleteByIDs(ctx context.Context, ids []string) error
	FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error)
}

type TableUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) (*domain.Table, error)
}

type DurationResolver interface {
	Duration(orderType domain.OrderType, status domain.OrderStatus) time.Duration
}

type StateStore interface {
	Dispatch(a state.Action)
	Order(id string) (domain.Order, bool)
	Table(id string) (domain.Table, bool)
	ActiveSession() *domain.CashRegisterSession
}

// StoreHours tells whether online orders are accepted at an instant.
type StoreHours interface {
	IsOpen(t time.Time) bool
}

// Printer sends slips of a finalized order to the kitchen and the counter. It reports its
// own failures and never blocks the calling operation on them.
type Printer interface {
	Print(ctx context.Context, order domain.Order)
}

type Metrics interface {
	OrderCreated(orderType string)
	OrderTransition(from, to string, manual bool)
}

type OrderService struct {
	orderRepo OrderRepository
	itemRepo  OrderItemRepository
	tables    TableUpdater
	resolver  DurationResolver
	store     StateStore
	hours     StoreHours
	notifier  notice.Notifier
	printer   Printer
	metrics   Metrics
	clock     commons.Clock
	logger    *zap.Logger
	locks     *orderLocks
}

func NewOrderService(
	orderRepo OrderRepository,
	itemRepo OrderItemRepository,
	tables TableUpdater,
	resolver DurationResolver,
	store StateStore,
	hours StoreHours,
	notifier notice.Notifier,
	printer Printer,
	metrics Metrics,
	clock commons.Clock,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		itemRepo:  itemRepo,
		tables:    tables,
		resolver:  resolver,
		store:     store,
		hours:     hours,
		notifier:  notifier,
		printer:   printer,
		metrics:   metrics,
		clock:     clock,
		logger:    logger,
		locks:     newOrderLocks(),
	}
}

// Preload loads the most recent orders with their items into the store.
func (s *OrderService) Preload(ctx context.Context, limit int) error {
	orders, err := s.orderRepo.FindRecent(ctx, limit)
	if err != nil {
		return apperrors.NewInternalError("loading recent orders", err)
	}

	for i := range orders {
		items, err := s.itemRepo.FindByOrderID(ctx, orders[i].ID)
		if err != nil {
			return apperrors.NewInternalError("loading items of order "+shortID(orders[i].ID), err)
		}
		orders[i].Items = items
	}

	s.store.Dispatch(state.OrdersLoaded{Orders: orders})
	s.logger.Info("orders loaded", zap.Int("count", len(orders)))
	return nil
}

// FetchOrderWithItems reads an order and its items straight from the database.
func (s *OrderService) FetchOrderWithItems(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		s.logger.Warn("failed to fetch order", zap.String("orderId", id), zap.Error(err))
		s.notifier.Notify(notice.ForError("Failed to load order "+shortID(id), err))
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus moves an order to status. manual is true when a person asked for it.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, manual bool) (*domain.Order, error) {
	const operation = "Failed to update order status"

	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.current(ctx, id)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	updated, err := s.transition(ctx, order, status, manual)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	return updated, nil
}

// ToggleAutoProgress flips the auto-progress flag of an order.
func (s *OrderService) ToggleAutoProgress(ctx context.Context, id string) (*domain.Order, error) {
	const operation = "Failed to toggle auto progress"

	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.current(ctx, id)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	duration := s.resolver.Duration(order.OrderType, order.Status)
	result, err := flow.ApplyToggle(order, duration, s.clock.Now())
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	saved, err := s.save(ctx, result.Order)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	if result.ZeroDuration {
		s.notifier.Notify(notice.Info("Auto progress cannot be enabled for status " + string(order.Status)))
	}
	s.logger.Info("auto progress toggled", zap.String("orderId", id), zap.Bool("autoProgress", saved.AutoProgress))

	return &saved, nil
}

// CreateManualOrder stores an order taken by staff. The order row and its items are written
// in two steps; if the items fail the order row is deleted again.
func (s *OrderService) CreateManualOrder(ctx context.Context, in ManualOrderInput) (*domain.Order, error) {
	const operation = "Failed to create order"

	details := validateItems(in.Items)
	if !in.OrderType.IsValid() {
		details = append(details, apperrors.ValidationDetail{Field: "orderType", Message: "must be COUNTER, DELIVERY or DINE_IN"})
	}

	var table domain.Table
	switch in.OrderType {
	case domain.OrderTypeDineIn:
		tableID := optional(in.TableID)
		if tableID == nil {
			details = append(details, apperrors.ValidationDetail{Field: "tableId", Message: "table is required for dine-in orders"})
			break
		}
		t, ok := s.store.Table(*tableID)
		if !ok {
			details = append(details, apperrors.ValidationDetail{Field: "tableId", Message: "unknown table " + *tableID})
			break
		}
		table = t
	case domain.OrderTypeDelivery:
		if optional(in.CustomerAddress) == nil {
			details = append(details, apperrors.ValidationDetail{Field: "customerAddress", Message: "address is required for delivery orders"})
		}
		fallthrough
	default:
		if strings.TrimSpace(in.CustomerName) == "" {
			details = append(details, apperrors.ValidationDetail{Field: "customerName", Message: "customer name is required"})
		}
	}
	if in.PaymentMethod != nil && !in.PaymentMethod.IsValid() {
		details = append(details, apperrors.ValidationDetail{Field: "paymentMethod", Message: "must be CASH, INSTANT_TRANSFER or CARD"})
	}
	if in.AmountPaid.Valid && in.AmountPaid.Decimal.IsNegative() {
		details = append(details, apperrors.ValidationDetail{Field: "amountPaid", Message: "amount paid cannot be negative"})
	}
	if len(details) > 0 {
		return nil, s.fail(operation, "", apperrors.NewValidationError("invalid order", details...))
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:            uuid.NewString(),
		OrderType:     in.OrderType,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: optional(in.CustomerPhone),
		Notes:         mergeNotes(in.Notes, in.AddressReference),
		OrderTime:     now,
	}
	items := buildItems(order.ID, in.Items, now)
	order.TotalAmount = domain.ItemsTotal(items)

	noSession := false
	if order.IsDineIn() {
		order.TableID = &table.ID
		if order.CustomerName == "" {
			order.CustomerName = "Table " + table.Name
		}
	} else {
		if order.OrderType == domain.OrderTypeDelivery {
			order.CustomerAddress = optional(in.CustomerAddress)
		}
		if in.PaymentMethod != nil {
			method := *in.PaymentMethod
			order.PaymentMethod = &method
			if method == domain.PaymentMethodCash && in.AmountPaid.Valid {
				order.AmountPaid = in.AmountPaid
				if in.AmountPaid.Decimal.GreaterThanOrEqual(order.TotalAmount) {
					order.ChangeDue.Valid = true
					order.ChangeDue.Decimal = in.AmountPaid.Decimal.Sub(order.TotalAmount)
				}
			}
			if method.CountsAsCash() {
				if active := s.store.ActiveSession(); active != nil {
					sessionID := active.ID
					order.CashRegisterSessionID = &sessionID
				} else {
					noSession = true
				}
			}
		}
	}

	flow.InitialTimer(&order, s.resolver.Duration(order.OrderType, domain.OrderStatusPending), now)

	created, err := s.create(ctx, order, items)
	if err != nil {
		return nil, s.fail(operation, order.ID, err)
	}

	if noSession {
		s.notifier.Notify(notice.Info("No cash register is open. The order was created without a cash session"))
	}
	if created.IsDineIn() && table.Status == domain.TableStatusAvailable {
		if _, err := s.tables.UpdateStatus(ctx, table.ID, domain.TableStatusOccupied, &created.ID); err != nil {
			s.logger.Error("failed to occupy table", zap.String("tableId", table.ID), zap.String("orderId", created.ID), zap.Error(err))
			s.notifier.Notify(notice.ForError("Failed to mark table "+table.Name+" as occupied", err))
		}
	}

	s.notifier.Notify(notice.Success("Order for " + created.CustomerName + " created"))
	s.printer.Print(ctx, created)

	return &created, nil
}

// PlaceOnlineOrder stores a delivery order placed by a customer. It is refused while the
// store is closed.
func (s *OrderService) PlaceOnlineOrder(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	const operation = "Failed to place order"

	now := s.clock.Now()
	if !s.hours.IsOpen(now) {
		return nil, s.fail(operation, "", apperrors.NewConflictError("the store is closed and cannot take orders right now"))
	}

	details := validateItems(in.Items)
	if strings.TrimSpace(in.CustomerName) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "customerName", Message: "name is required"})
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "customerPhone", Message: "phone is required"})
	}
	if strings.TrimSpace(in.CustomerAddress) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "customerAddress", Message: "address is required"})
	}
	if len(details) > 0 {
		return nil, s.fail(operation, "", apperrors.NewValidationError("customer details are required", details...))
	}

	phone := strings.TrimSpace(in.CustomerPhone)
	address := strings.TrimSpace(in.CustomerAddress)
	order := domain.Order{
		ID:              uuid.NewString(),
		OrderType:       domain.OrderTypeDelivery,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   &phone,
		CustomerAddress: &address,
		Notes:           mergeNotes(in.Notes, in.AddressReference),
		OrderTime:       now,
	}
	items := buildItems(order.ID, in.Items, now)
	order.TotalAmount = domain.ItemsTotal(items)
	flow.InitialTimer(&order, s.resolver.Duration(domain.OrderTypeDelivery, domain.OrderStatusPending), now)

	created, err := s.create(ctx, order, items)
	if err != nil {
		return nil, s.fail(operation, order.ID, err)
	}

	s.notifier.Notify(notice.Success("Order #" + shortID(created.ID) + " placed"))
	s.printer.Print(ctx, created)

	return &created, nil
}

// AddItemsToOrder appends items to an open order and raises its total. A ready order goes
// back to the kitchen.
func (s *OrderService) AddItemsToOrder(ctx context.Context, id string, inputs []ItemInput) (*domain.Order, error) {
	const operation = "Failed to add items to order"

	if len(inputs) == 0 {
		return nil, s.fail(operation, id, apperrors.NewValidationError("no items to add"))
	}
	if details := validateItems(inputs); len(details) > 0 {
		return nil, s.fail(operation, id, apperrors.NewValidationError("invalid items", details...))
	}

	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.current(ctx, id)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	now := s.clock.Now()
	items := buildItems(id, inputs, now)
	durationFor := func(status domain.OrderStatus) time.Duration {
		return s.resolver.Duration(order.OrderType, status)
	}

	result, err := flow.ApplyItemsAdded(order, domain.ItemsTotal(items), durationFor, now)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	if err := s.itemRepo.InsertBatch(ctx, items); err != nil {
		return nil, s.fail(operation, id, apperrors.NewInternalError("saving new items", err))
	}

	saved, err := s.save(ctx, result.Order)
	if err != nil {
		ids := make([]string, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		if delErr := s.itemRepo.DeleteByIDs(ctx, ids); delErr != nil {
			s.logger.Error("failed to revert new items after order update failure", zap.String("orderId", id), zap.Error(delErr))
		}
		return nil, s.fail(operation, id, err)
	}

	if result.Reopened {
		s.recordTransition(order.Status, saved.Status, true)
		s.notifier.Notify(notice.Info("New items added. Order #" + shortID(id) + " went back to " + string(domain.OrderStatusPreparing)))
	}
	s.notifier.Notify(notice.Success(fmt.Sprintf("%d item(s) added to order #%s", len(items), shortID(id))))
	s.printer.Print(ctx, saved)

	s.logger.Info("items added to order",
		zap.String("orderId", id),
		zap.Int("items", len(items)),
		zap.String("total", saved.TotalAmount.StringFixed(2)),
	)

	return &saved, nil
}

// CloseTableAccount settles an order and finalizes it as DELIVERED. It is the only way a
// dine-in order is finished. Its table is sent to cleaning.
func (s *OrderService) CloseTableAccount(ctx context.Context, id string, payment PaymentInput) (*domain.Order, error) {
	const operation = "Failed to close account"

	if !payment.PaymentMethod.IsValid() {
		return nil, s.fail(operation, id, apperrors.NewValidationError("invalid payment", apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "must be CASH, INSTANT_TRANSFER or CARD",
		}))
	}
	if payment.AmountPaid.Valid && payment.AmountPaid.Decimal.IsNegative() {
		return nil, s.fail(operation, id, apperrors.NewValidationError("invalid payment", apperrors.ValidationDetail{
			Field:   "amountPaid",
			Message: "amount paid cannot be negative",
		}))
	}

	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.current(ctx, id)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}

	if order.Status.IsTerminal() {
		s.notifier.Notify(notice.Info("Order #" + shortID(id) + " is already " + string(order.Status)))
		return &order, nil
	}

	var sessionID *string
	if active := s.store.ActiveSession(); active != nil {
		sessionID = &active.ID
	}

	closed := flow.ApplyTableClose(order, flow.Payment{
		Method:     payment.PaymentMethod,
		AmountPaid: payment.AmountPaid,
	}, sessionID, s.clock.Now())

	saved, err := s.save(ctx, closed)
	if err != nil {
		return nil, s.fail(operation, id, err)
	}
	s.recordTransition(order.Status, saved.Status, true)

	if order.TableID != nil {
		s.releaseTable(ctx, *order.TableID, id)
	}

	s.printer.Print(ctx, saved)
	s.notifier.Notify(notice.Success("Account for order #" + shortID(id) + " closed"))
	s.logger.Info("table account closed",
		zap.String("orderId", id),
		zap.String("paymentMethod", string(payment.PaymentMethod)),
		zap.String("total", saved.TotalAmount.StringFixed(2)),
	)

	return &saved, nil
}

// AdvanceOrder is the scheduler's transition of an order from one status to the next. It
// does nothing when the order changed since the decision was made.
func (s *OrderService) AdvanceOrder(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	order, ok := s.store.Order(id)
	if !ok || order.Status != from || !s.due(order) {
		s.logger.Debug("stale advance skipped", zap.String("orderId", id), zap.String("from", string(from)))
		return false, nil
	}

	if _, err := s.transition(ctx, order, to, false); err != nil {
		return false, s.fail("Failed to advance order #"+shortID(id), id, err)
	}
	return true, nil
}

// CompleteAutoProgress stops the timer of a due order whose status has no scheduled successor.
func (s *OrderService) CompleteAutoProgress(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	order, ok := s.store.Order(id)
	if !ok || !s.due(order) {
		return false, nil
	}
	if _, hasNext := flow.ScheduledSuccessor(order.OrderType, order.Status); hasNext {
		return false, nil
	}

	if _, err := s.save(ctx, flow.ApplyComplete(order)); err != nil {
		return false, s.fail("Failed to finish auto progress of order #"+shortID(id), id, err)
	}

	s.logger.Info("auto progress completed", zap.String("orderId", id), zap.String("status", string(order.Status)))
	return true, nil
}

// RecordProgress stores the progress percent of a running timer. With persist false only the
// in-memory copy changes.
func (s *OrderService) RecordProgress(ctx context.Context, id string, percent int, persist bool) (bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	order, ok := s.store.Order(id)
	if !ok || !flow.Eligible(order) || order.CurrentProgressPercent == percent {
		return false, nil
	}

	out := order.Clone()
	out.CurrentProgressPercent = max(0, min(100, percent))

	if persist {
		if err := s.orderRepo.Update(ctx, out); err != nil {
			s.logger.Warn("failed to persist progress", zap.String("orderId", id), zap.Int("progress", percent), zap.Error(err))
			return false, apperrors.NewInternalError("saving progress of order "+shortID(id), err)
		}
	}

	s.store.Dispatch(state.OrderUpserted{Order: out})
	return true, nil
}

func (s *OrderService) due(order domain.Order) bool {
	return flow.Eligible(order) && !s.clock.Now().Before(*order.NextAutoTransitionTime)
}

func (s *OrderService) transition(ctx context.Context, order domain.Order, to domain.OrderStatus, manual bool) (*domain.Order, error) {
	if err := flow.CheckTransition(order, to, manual); err != nil {
		return nil, err
	}

	result := flow.ApplyTransition(order, to, s.resolver.Duration(order.OrderType, to), s.clock.Now())

	saved, err := s.save(ctx, result.Order)
	if err != nil {
		return nil, err
	}
	s.recordTransition(order.Status, to, manual)

	if result.Held {
		s.notifier.Notify(notice.Info("Order for " + s.placeLabel(saved) + " is ready and waits for the account to be closed"))
	}

	s.logger.Info("order status changed",
		zap.String("orderId", order.ID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(to)),
		zap.Bool("manual", manual),
		zap.Bool("autoProgress", saved.AutoProgress),
	)

	return &saved, nil
}

// current returns the order from the store, falling back to the database for orders that
// were not preloaded.
func (s *OrderService) current(ctx context.Context, id string) (domain.Order, error) {
	if order, ok := s.store.Order(id); ok {
		return order, nil
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, err
		}
		return nil, apperrors.NewInternalError("loading order "+shortID(id), err)
	}

	items, err := s.itemRepo.FindByOrderID(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError("loading items of order "+shortID(id), err)
	}
	order.Items = items

	return order, nil
}

// save writes order, re-reads it with its items and publishes the stored version.
func (s *OrderService) save(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := s.orderRepo.Update(ctx, order); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return domain.Order{}, err
		}
		return domain.Order{}, apperrors.NewInternalError("saving order "+shortID(order.ID), err)
	}

	stored, err := s.load(ctx, order.ID)
	if err != nil {
		s.logger.Warn("failed to re-read saved order", zap.String("orderId", order.ID), zap.Error(err))
		stored = &order
	}

	s.store.Dispatch(state.OrderUpserted{Order: *stored})
	return *stored, nil
}

func (s *OrderService) create(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	if err := s.orderRepo.Insert(ctx, order); err != nil {
		return domain.Order{}, apperrors.NewInternalError("creating order", err)
	}

	if err := s.itemRepo.InsertBatch(ctx, items); err != nil {
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil {
			s.logger.Error("failed to revert order after item failure", zap.String("orderId", order.ID), zap.Error(delErr))
		}
		return domain.Order{}, apperrors.NewInternalError("saving order items, order reverted", err)
	}

	stored, err := s.load(ctx, order.ID)
	if err != nil {
		s.logger.Warn("failed to re-read created order", zap.String("orderId", order.ID), zap.Error(err))
		order.Items = items
		stored = &order
	}

	s.store.Dispatch(state.OrderUpserted{Order: *stored})
	if s.metrics != nil {
		s.metrics.OrderCreated(string(stored.OrderType))
	}
	s.logger.Info("order created",
		zap.String("orderId", stored.ID),
		zap.String("orderType", string(stored.OrderType)),
		zap.Int("items", len(items)),
		zap.String("total", stored.TotalAmount.StringFixed(2)),
	)

	return *stored, nil
}

func (s *OrderService) releaseTable(ctx context.Context, tableID, orderID string) {
	table, ok := s.store.Table(tableID)
	var currentOrderID *string
	if ok && table.CurrentOrderID != nil && *table.CurrentOrderID != orderID {
		ref := *table.CurrentOrderID
		currentOrderID = &ref
	}

	if _, err := s.tables.UpdateStatus(ctx, tableID, domain.TableStatusNeedsCleaning, currentOrderID); err != nil {
		s.logger.Error("failed to send table to cleaning", zap.String("tableId", tableID), zap.String("orderId", orderID), zap.Error(err))
		s.notifier.Notify(notice.ForError("Failed to update table after closing the account", err))
	}
}

func (s *OrderService) recordTransition(from, to domain.OrderStatus, manual bool) {
	if s.metrics != nil && from != to {
		s.metrics.OrderTransition(string(from), string(to), manual)
	}
}

// placeLabel names where an order is served, for notices.
func (s *OrderService) placeLabel(order domain.Order) string {
	if order.TableID != nil {
		if table, ok := s.store.Table(*order.TableID); ok {
			return "table " + table.Name
		}
		return "table " + *order.TableID
	}
	return order.CustomerName
}

// fail logs err, emits its notice and returns it.
func (s *OrderService) fail(operation, orderID string, err error) error {
	if _, ok := apperrors.IsInternalError(err); ok {
		s.logger.Error(strings.ToLower(operation), zap.String("orderId", orderID), zap.Error(err))
	} else {
		s.logger.Warn(strings.ToLower(operation), zap.String("orderId", orderID), zap.Error(err))
	}
	s.notifier.Notify(notice.ForError(operation, err))
	return err
}
