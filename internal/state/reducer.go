package state

import (
	"sort"

	"comanda/internal/domain"
)

// Snapshot is the in-memory view of orders, tables, cash sessions and adjustments.
type Snapshot struct {
	Orders        []domain.Order
	Tables        []domain.Table
	Sessions      []domain.CashRegisterSession
	Adjustments   []domain.CashAdjustment
	ActiveSession *domain.CashRegisterSession
}

// Action is a change applied to a Snapshot.
type Action interface {
	actionName() string
}

type OrdersLoaded struct{ Orders []domain.Order }
type OrderUpserted struct{ Order domain.Order }
type OrderRemoved struct{ OrderID string }
type TablesLoaded struct{ Tables []domain.Table }
type TableUpserted struct{ Table domain.Table }
type SessionsLoaded struct{ Sessions []domain.CashRegisterSession }
type SessionUpserted struct{ Session domain.CashRegisterSession }
type AdjustmentsLoaded struct{ Adjustments []domain.CashAdjustment }
type AdjustmentAdded struct{ Adjustment domain.CashAdjustment }

func (OrdersLoaded) actionName() string      { return "orders_loaded" }
func (OrderUpserted) actionName() string     { return "order_upserted" }
func (OrderRemoved) actionName() string      { return "order_removed" }
func (TablesLoaded) actionName() string      { return "tables_loaded" }
func (TableUpserted) actionName() string     { return "table_upserted" }
func (SessionsLoaded) actionName() string    { return "sessions_loaded" }
func (SessionUpserted) actionName() string   { return "session_upserted" }
func (AdjustmentsLoaded) actionName() string { return "adjustments_loaded" }
func (AdjustmentAdded) actionName() string   { return "adjustment_added" }

// Name identifies an action in logs and metrics.
func Name(a Action) string {
	return a.actionName()
}

// Reduce returns the snapshot that results from applying a to s. s is not modified.
func Reduce(s Snapshot, a Action) Snapshot {
	out := s
	switch act := a.(type) {
	case OrdersLoaded:
		out.Orders = cloneOrders(act.Orders)
		sortOrders(out.Orders)
	case OrderUpserted:
		out.Orders = upsertOrder(s.Orders, act.Order)
	case OrderRemoved:
		out.Orders = removeOrder(s.Orders, act.OrderID)
	case TablesLoaded:
		out.Tables = cloneTables(act.Tables)
		sortTables(out.Tables)
	case TableUpserted:
		out.Tables = upsertTable(s.Tables, act.Table)
	case SessionsLoaded:
		out.Sessions = cloneSessions(act.Sessions)
		sortSessions(out.Sessions)
		out.ActiveSession = findActive(out.Sessions)
	case SessionUpserted:
		out.Sessions = upsertSession(s.Sessions, act.Session)
		out.ActiveSession = findActive(out.Sessions)
	case AdjustmentsLoaded:
		out.Adjustments = append([]domain.CashAdjustment(nil), act.Adjustments...)
		sortAdjustments(out.Adjustments)
	case AdjustmentAdded:
		out.Adjustments = addAdjustment(s.Adjustments, act.Adjustment)
	}
	return out
}

func upsertOrder(orders []domain.Order, order domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(orders)+1)
	replaced := false
	for _, o := range orders {
		if o.ID == order.ID {
			out = append(out, order.Clone())
			replaced = true
			continue
		}
		out = append(out, o)
	}
	if !replaced {
		out = append(out, order.Clone())
	}
	sortOrders(out)
	return out
}

func removeOrder(orders []domain.Order, id string) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func upsertTable(tables []domain.Table, table domain.Table) []domain.Table {
	out := make([]domain.Table, 0, len(tables)+1)
	replaced := false
	for _, t := range tables {
		if t.ID == table.ID {
			out = append(out, table.Clone())
			replaced = true
			continue
		}
		out = append(out, t)
	}
	if !replaced {
		out = append(out, table.Clone())
	}
	sortTables(out)
	return out
}

func upsertSession(sessions []domain.CashRegisterSession, session domain.CashRegisterSession) []domain.CashRegisterSession {
	out := make([]domain.CashRegisterSession, 0, len(sessions)+1)
	replaced := false
	for _, s := range sessions {
		if s.ID == session.ID {
			out = append(out, session.Clone())
			replaced = true
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, session.Clone())
	}
	sortSessions(out)
	return out
}

func addAdjustment(adjustments []domain.CashAdjustment, adjustment domain.CashAdjustment) []domain.CashAdjustment {
	out := make([]domain.CashAdjustment, 0, len(adjustments)+1)
	for _, a := range adjustments {
		if a.ID == adjustment.ID {
			continue
		}
		out = append(out, a)
	}
	out = append(out, adjustment)
	sortAdjustments(out)
	return out
}

func findActive(sessions []domain.CashRegisterSession) *domain.CashRegisterSession {
	for _, s := range sessions {
		if s.IsOpen() {
			active := s.Clone()
			return &active
		}
	}
	return nil
}

func sortOrders(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].OrderTime.After(orders[j].OrderTime) })
}

func sortTables(tables []domain.Table) {
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
}

func sortSessions(sessions []domain.CashRegisterSession) {
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].OpenedAt.After(sessions[j].OpenedAt) })
}

func sortAdjustments(adjustments []domain.CashAdjustment) {
	sort.SliceStable(adjustments, func(i, j int) bool { return adjustments[i].AdjustedAt.After(adjustments[j].AdjustedAt) })
}

func cloneOrders(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}

func cloneTables(tables []domain.Table) []domain.Table {
	out := make([]domain.Table, len(tables))
	for i, t := range tables {
		out[i] = t.Clone()
	}
	return out
}

func cloneSessions(sessions []domain.CashRegisterSession) []domain.CashRegisterSession {
	out := make([]domain.CashRegisterSession, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{
		Orders:      cloneOrders(s.Orders),
		Tables:      cloneTables(s.Tables),
		Sessions:    cloneSessions(s.Sessions),
		Adjustments: append([]domain.CashAdjustment(nil), s.Adjustments...),
	}
	if s.ActiveSession != nil {
		active := s.ActiveSession.Clone()
		out.ActiveSession = &active
	}
	return out
}
