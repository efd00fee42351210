// Package realtime pushes FX rate refreshes to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/domain/vault"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// RateMessage is the JSON frame sent to clients
type RateMessage struct {
	Type      string               `json:"type"`
	Base      string               `json:"base"`
	Rates     []vault.RateSnapshot `json:"rates"`
	Changed   int                  `json:"changed"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// MessageTypeRates identifies rate refresh frames
const MessageTypeRates = "rates"

type client struct {
	tenantID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
}

// RateHub fans rate refresh events out to the websocket clients of the same organization.
// Clients that cannot keep up are disconnected.
type RateHub struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
	closed   bool
}

// NewRateHub creates a hub. checkOrigin may be nil to accept any origin.
func NewRateHub(logger *zap.Logger, checkOrigin func(r *http.Request) bool) *RateHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &RateHub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.Named("rate_hub"),
	}
}

// EventTypes implements shared.EventHandler
func (h *RateHub) EventTypes() []string {
	return []string{vault.EventTypeRatesRefreshed}
}

// Handle implements shared.EventHandler
func (h *RateHub) Handle(_ context.Context, ev shared.DomainEvent) error {
	e, ok := ev.(*vault.RatesRefreshedEvent)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(RateMessage{
		Type:      MessageTypeRates,
		Base:      e.Base,
		Rates:     e.Rates,
		Changed:   e.Changed,
		FetchedAt: e.FetchedAt,
	})
	if err != nil {
		return err
	}
	h.broadcast(e.TenantID(), payload)
	return nil
}

func (h *RateHub) broadcast(tenantID uuid.UUID, payload []byte) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients[tenantID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.String("tenant_id", tenantID.String()))
		h.unregister(c)
	}
}

// ServeWS upgrades the request and streams rate frames for tenantID until the client leaves.
func (h *RateHub) ServeWS(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{tenantID: tenantID, conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Clients returns the number of connected clients of tenantID
func (h *RateHub) Clients(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

// Close disconnects every client and rejects new ones
func (h *RateHub) Close() {
	h.mu.Lock()
	h.closed = true
	all := make([]*client, 0)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		h.unregister(c)
	}
}

func (h *RateHub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.tenantID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.tenantID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("websocket client connected", zap.String("tenant_id", c.tenantID.String()))
	return true
}

func (h *RateHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.tenantID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.tenantID)
	}
	close(c.send)
}

// readPump discards client frames and keeps the pong deadline fresh
func (h *RateHub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *RateHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

var _ shared.EventHandler = (*RateHub)(nil)
