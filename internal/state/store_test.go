package state

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain"
)

func TestStore_DispatchNotifiesAfterStateIsVisible(t *testing.T) {
	store := NewStore()
	var seen []string
	unsubscribe := store.Subscribe(func(a Action) {
		_, ok := store.Order("o1")
		assert.True(t, ok)
		seen = append(seen, Name(a))
	})

	store.Dispatch(OrderUpserted{Order: domain.Order{ID: "o1", OrderTime: time.Now()}})
	unsubscribe()
	store.Dispatch(OrderRemoved{OrderID: "o1"})

	assert.Equal(t, []string{"order_upserted"}, seen)
	_, ok := store.Order("o1")
	assert.False(t, ok)
}

func TestStore_ReadersGetCopies(t *testing.T) {
	store := NewStore()
	orderID := "o1"
	store.Dispatch(TableUpserted{Table: domain.Table{ID: "t1", Name: "Mesa 1", CurrentOrderID: &orderID}})

	table, ok := store.Table("t1")
	require.True(t, ok)
	*table.CurrentOrderID = "changed"
	table.Name = "changed"

	again, _ := store.Table("t1")
	assert.Equal(t, "Mesa 1", again.Name)
	assert.Equal(t, "o1", *again.CurrentOrderID)
}

func TestStore_ActiveSession(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.ActiveSession())

	store.Dispatch(SessionUpserted{Session: domain.CashRegisterSession{
		ID:             "s1",
		Status:         domain.CashSessionOpen,
		OpeningBalance: decimal.NewFromInt(100),
		OpenedAt:       time.Now(),
	}})
	active := store.ActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, "s1", active.ID)

	store.Dispatch(SessionUpserted{Session: domain.CashRegisterSession{
		ID:       "s1",
		Status:   domain.CashSessionClosed,
		OpenedAt: active.OpenedAt,
	}})
	assert.Nil(t, store.ActiveSession())
	assert.Len(t, store.Sessions(), 1)
}

func TestStore_AdjustmentsFilteredBySession(t *testing.T) {
	store := NewStore()
	now := time.Now()
	store.Dispatch(AdjustmentAdded{Adjustment: domain.CashAdjustment{ID: "a1", SessionID: "s1", AdjustedAt: now}})
	store.Dispatch(AdjustmentAdded{Adjustment: domain.CashAdjustment{ID: "a2", SessionID: "s2", AdjustedAt: now.Add(time.Second)}})

	assert.Len(t, store.Adjustments("s1"), 1)
	assert.Len(t, store.Adjustments(""), 2)
}

func TestStore_SubscribersSeeActionsInApplyOrder(t *testing.T) {
	store := NewStore()
	var mu sync.Mutex
	var last int
	store.Subscribe(func(a Action) {
		upsert, ok := a.(OrderUpserted)
		if !ok {
			return
		}
		current, _ := store.Order("o1")
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, upsert.Order.CurrentProgressPercent, current.CurrentProgressPercent, "subscriber saw a stale action")
		last = upsert.Order.CurrentProgressPercent
	})

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(progress int) {
			defer wg.Done()
			store.Dispatch(OrderUpserted{Order: domain.Order{ID: "o1", CurrentProgressPercent: progress}})
		}(i)
	}
	wg.Wait()

	final, ok := store.Order("o1")
	require.True(t, ok)
	assert.Equal(t, final.CurrentProgressPercent, last)
}
