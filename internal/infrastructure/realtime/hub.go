// Package realtime pushes vendor dashboard notifications over websockets.
// Each vendor has a room; every socket authenticated as that vendor joins it.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event names pushed to vendor rooms
const (
	EventProductsUpdated = "products-updated"
	EventOrderCreated    = "order-created"
	EventLowStock        = "low-stock"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is the JSON frame written to clients
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	send     chan Message
	vendorID uuid.UUID
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected clients by vendor room
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. An empty allowedOrigins list or a "*" entry accepts any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[uuid.UUID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.Named("realtime"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the request and joins the socket to the vendor's room.
// It returns once the connection is registered; pumps run in the background.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:     conn,
		send:     make(chan Message, sendBuffer),
		vendorID: vendorID,
	}
	h.join(c)

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// Emit sends an event to every socket in the vendor's room. Clients whose
// buffer is full are dropped.
func (h *Hub) Emit(vendorID uuid.UUID, event string, data any) {
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[vendorID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.String("vendor_id", vendorID.String()))
		h.leave(c)
	}
}

// RoomSize returns the number of sockets connected for a vendor
func (h *Hub) RoomSize(vendorID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[vendorID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uuid.UUID]map[*client]struct{})
	h.mu.Unlock()

	for _, room := range rooms {
		for c := range room {
			c.close()
		}
	}
}

func (h *Hub) join(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.vendorID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.vendorID] = room
	}
	room[c] = struct{}{}
	h.logger.Debug("websocket joined room", zap.String("vendor_id", c.vendorID.String()), zap.Int("room_size", len(room)))
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.vendorID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.vendorID)
		}
	}
	h.mu.Unlock()
	c.close()
}

func (h *Hub) writePump(c *client) {
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
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

// readPump discards client frames; it exists to process pongs and detect disconnects.
func (h *Hub) readPump(c *client) {
	defer h.leave(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}
