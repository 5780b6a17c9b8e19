package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/notice"
	"comanda/internal/state"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func connect(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServeWS_SendsSnapshotFirst(t *testing.T) {
	store := state.NewStore()
	store.Dispatch(state.OrdersLoaded{Orders: []domain.Order{{ID: "o1", Status: domain.OrderStatusPending}}})
	hub := NewHub(store, zap.NewNop())

	conn := connect(t, hub)

	msg := read(t, conn)
	assert.Equal(t, EventSnapshot, msg.Event)
	var payload snapshotPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	require.Len(t, payload.Orders, 1)
	assert.Equal(t, "o1", payload.Orders[0].ID)
}

func TestAttach_BroadcastsStoreChanges(t *testing.T) {
	store := state.NewStore()
	hub := NewHub(store, zap.NewNop())
	detach := hub.Attach()
	defer detach()

	conn := connect(t, hub)
	read(t, conn)

	store.Dispatch(state.OrderUpserted{Order: domain.Order{ID: "o2", TotalAmount: decimal.NewFromInt(30)}})
	store.Dispatch(state.OrderRemoved{OrderID: "o2"})
	store.Dispatch(state.TablesLoaded{Tables: []domain.Table{{ID: "t1"}}})
	store.Dispatch(state.AdjustmentAdded{Adjustment: domain.CashAdjustment{ID: "a1", SessionID: "s1"}})

	update := read(t, conn)
	assert.Equal(t, EventOrderUpdate, update.Event)
	assert.Contains(t, string(update.Data), `"o2"`)

	deleted := read(t, conn)
	assert.Equal(t, EventOrderDelete, deleted.Event)
	assert.JSONEq(t, `{"id":"o2"}`, string(deleted.Data))

	adjustment := read(t, conn)
	assert.Equal(t, EventCashAdjustmentAdd, adjustment.Event, "bulk loads are not broadcast")
}

func TestNotify_BroadcastsAlert(t *testing.T) {
	hub := NewHub(state.NewStore(), zap.NewNop())
	conn := connect(t, hub)
	read(t, conn)

	hub.Notify(notice.Info("No cash register is open"))

	msg := read(t, conn)
	assert.Equal(t, EventAlert, msg.Event)
	assert.JSONEq(t, `{"level":"info","message":"No cash register is open"}`, string(msg.Data))
}

func TestClose_DisconnectsClients(t *testing.T) {
	hub := NewHub(state.NewStore(), zap.NewNop())
	conn := connect(t, hub)
	read(t, conn)

	hub.Close()

	assert.Equal(t, 0, hub.ClientCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// racingSource fires an alert from another goroutine while the snapshot is being taken.
type racingSource struct {
	*state.Store
	hub *Hub
}

func (s *racingSource) Snapshot() state.Snapshot {
	done := make(chan struct{})
	go func() {
		close(done)
		s.hub.Notify(notice.Info("order placed during connect"))
	}()
	<-done
	time.Sleep(20 * time.Millisecond)
	return s.Store.Snapshot()
}

func TestServeWS_EventDuringConnectIsDeliveredAfterSnapshot(t *testing.T) {
	source := &racingSource{Store: state.NewStore()}
	hub := NewHub(source, zap.NewNop())
	source.hub = hub

	conn := connect(t, hub)

	assert.Equal(t, EventSnapshot, read(t, conn).Event)
	alert := read(t, conn)
	assert.Equal(t, EventAlert, alert.Event)
	assert.Contains(t, string(alert.Data), "during connect")
}
