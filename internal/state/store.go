package state

import (
	"sync"

	"comanda/internal/domain"
)

// Store owns the shared collections. Every mutation goes through Dispatch and readers
// only ever receive copies.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot

	// dispatchMu keeps subscriber callbacks in the same order as the state changes.
	dispatchMu sync.Mutex

	subsMu sync.RWMutex
	subs   map[int]func(Action)
	nextID int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(Action))}
}

// Dispatch applies a and notifies subscribers after the new state is visible. Subscribers
// see actions in the order they were applied and must not call Dispatch themselves.
func (s *Store) Dispatch(a Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.snapshot = Reduce(s.snapshot, a)
	s.mu.Unlock()

	s.subsMu.RLock()
	subs := make([]func(Action), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range subs {
		fn(a)
	}
}

// Subscribe registers fn for every dispatched action and returns a function removing it.
func (s *Store) Subscribe(fn func(Action)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrders(s.snapshot.Orders)
}

func (s *Store) Order(id string) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.snapshot.Orders {
		if o.ID == id {
			return o.Clone(), true
		}
	}
	return domain.Order{}, false
}

func (s *Store) Table(id string) (domain.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.snapshot.Tables {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return domain.Table{}, false
}

func (s *Store) ActiveSession() *domain.CashRegisterSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot.ActiveSession == nil {
		return nil
	}
	active := s.snapshot.ActiveSession.Clone()
	return &active
}

func (s *Store) Tables() []domain.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTables(s.snapshot.Tables)
}

func (s *Store) Sessions() []domain.CashRegisterSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSessions(s.snapshot.Sessions)
}

// Adjustments returns the adjustments of sessionID, newest first. An empty id returns all.
func (s *Store) Adjustments(sessionID string) []domain.CashAdjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.CashAdjustment{}
	for _, a := range s.snapshot.Adjustments {
		if sessionID == "" || a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out
}
