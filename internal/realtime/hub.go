// Package realtime pushes store changes and notices to connected dashboards over websockets.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/notice"
	"comanda/internal/state"
)

const (
	EventSnapshot          = "snapshot"
	EventOrderUpdate       = "order_update"
	EventOrderDelete       = "order_delete"
	EventTableUpdate       = "table_update"
	EventCashSessionUpdate = "cash_session_update"
	EventCashAdjustmentAdd = "cash_adjustment_add"
	EventAlert             = "alert"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type snapshotPayload struct {
	Orders        []domain.Order               `json:"orders"`
	Tables        []domain.Table               `json:"tables"`
	Sessions      []domain.CashRegisterSession `json:"cashSessions"`
	Adjustments   []domain.CashAdjustment      `json:"cashAdjustments"`
	ActiveSession *domain.CashRegisterSession  `json:"activeCashSession"`
}

type orderDeletePayload struct {
	ID string `json:"id"`
}

// Source is the store the hub mirrors.
type Source interface {
	Subscribe(fn func(state.Action)) func()
	Snapshot() state.Snapshot
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client. A client that cannot keep up is
// disconnected instead of slowing down the others.
type Hub struct {
	upgrader websocket.Upgrader
	source   Source
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(source Source, logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		source:  source,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Attach starts mirroring store actions and returns a function that stops it.
func (h *Hub) Attach() func() {
	return h.source.Subscribe(h.onAction)
}

func (h *Hub) onAction(a state.Action) {
	switch act := a.(type) {
	case state.OrderUpserted:
		h.Broadcast(Message{Event: EventOrderUpdate, Data: act.Order})
	case state.OrderRemoved:
		h.Broadcast(Message{Event: EventOrderDelete, Data: orderDeletePayload{ID: act.OrderID}})
	case state.TableUpserted:
		h.Broadcast(Message{Event: EventTableUpdate, Data: act.Table})
	case state.SessionUpserted:
		h.Broadcast(Message{Event: EventCashSessionUpdate, Data: act.Session})
	case state.AdjustmentAdded:
		h.Broadcast(Message{Event: EventCashAdjustmentAdd, Data: act.Adjustment})
	}
}

// Notify implements notice.Notifier.
func (h *Hub) Notify(n notice.Notice) {
	h.Broadcast(Message{Event: EventAlert, Data: n})
}

func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode realtime message", zap.String("event", msg.Event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("realtime client too slow, disconnecting", zap.String("remote", c.conn.RemoteAddr().String()))
			h.removeLocked(c)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client goes away. The first
// message is a snapshot of the whole store.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// Registering and snapshotting under the broadcast lock means every event is either
	// reflected in the snapshot or delivered after it.
	h.mu.Lock()
	snap := h.source.Snapshot()
	first, err := json.Marshal(Message{Event: EventSnapshot, Data: snapshotPayload{
		Orders:        snap.Orders,
		Tables:        snap.Tables,
		Sessions:      snap.Sessions,
		Adjustments:   snap.Adjustments,
		ActiveSession: snap.ActiveSession,
	}})
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to encode snapshot", zap.Error(err))
		conn.Close()
		return
	}
	c.send <- first
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("realtime client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump discards client messages and keeps the connection alive with pongs.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime client closed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("realtime write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
