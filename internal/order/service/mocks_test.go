package service

import (
	"context"
	"sync"
	"time"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/notice"
)

// mockOrderRepository keeps orders in memory unless a Func override is set.
type mockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order

	InsertFunc func(ctx context.Context, order domain.Order) error
	UpdateFunc func(ctx context.Context, order domain.Order) error
	DeleteFunc func(ctx context.Context, id string) error

	updates int
	deleted []string
}

func newMockOrderRepository(orders ...domain.Order) *mockOrderRepository {
	m := &mockOrderRepository{orders: map[string]domain.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order.Items = nil
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) Update(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	m.updates++
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return apperrors.NewNotFoundError("order with id " + order.ID + " not found")
	}
	order.Items = nil
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("order with id " + id + " not found")
	}
	c := order.Clone()
	return &c, nil
}

func (m *mockOrderRepository) FindRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, o.Clone())
		if len(orders) == limit {
			break
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) get(id string) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

type mockOrderItemRepository struct {
	mu    sync.Mutex
	items map[string][]domain.OrderItem

	InsertBatchFunc func(ctx context.Context, items []domain.OrderItem) error
	DeleteByIDsFunc func(ctx context.Context, ids []string) error
}

func newMockOrderItemRepository() *mockOrderItemRepository {
	return &mockOrderItemRepository{items: map[string][]domain.OrderItem{}}
}

func (m *mockOrderItemRepository) InsertBatch(ctx context.Context, items []domain.OrderItem) error {
	if m.InsertBatchFunc != nil {
		if err := m.InsertBatchFunc(ctx, items); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.items[item.OrderID] = append(m.items[item.OrderID], item)
	}
	return nil
}

func (m *mockOrderItemRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if m.DeleteByIDsFunc != nil {
		if err := m.DeleteByIDsFunc(ctx, ids); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for orderID, items := range m.items {
		kept := items[:0]
		for _, item := range items {
			if !drop[item.ID] {
				kept = append(kept, item)
			}
		}
		m.items[orderID] = kept
	}
	return nil
}

func (m *mockOrderItemRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderItem{}, m.items[orderID]...), nil
}

type tableUpdate struct {
	id             string
	status         domain.TableStatus
	currentOrderID *string
}

type mockTableUpdater struct {
	UpdateStatusFunc func(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) (*domain.Table, error)
	calls            []tableUpdate
}

func (m *mockTableUpdater) UpdateStatus(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) (*domain.Table, error) {
	m.calls = append(m.calls, tableUpdate{id: id, status: status, currentOrderID: currentOrderID})
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, currentOrderID)
	}
	return &domain.Table{ID: id, Status: status, CurrentOrderID: currentOrderID}, nil
}

type durations map[domain.OrderStatus]time.Duration

func (d durations) Duration(orderType domain.OrderType, status domain.OrderStatus) time.Duration {
	return d[status]
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (r *recordingNotifier) Notify(n notice.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) levels() []notice.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	levels := make([]notice.Level, 0, len(r.notices))
	for _, n := range r.notices {
		levels = append(levels, n.Level)
	}
	return levels
}

func (r *recordingNotifier) last() notice.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notice.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type mockPrinter struct {
	printed []domain.Order
}

func (m *mockPrinter) Print(ctx context.Context, order domain.Order) {
	m.printed = append(m.printed, order)
}

type mockMetrics struct {
	created     []string
	transitions []string
}

func (m *mockMetrics) OrderCreated(orderType string) {
	m.created = append(m.created, orderType)
}

func (m *mockMetrics) OrderTransition(from, to string, manual bool) {
	m.transitions = append(m.transitions, from+">"+to)
}
