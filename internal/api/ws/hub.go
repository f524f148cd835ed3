package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/perfguard/backend/internal/infrastructure/logging"
	"github.com/perfguard/backend/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The API binds to loopback only.
		return true
	},
}

const (
	// sendBuffer is the per-client event queue; a client whose queue is
	// full is evicted instead of blocking the broadcaster.
	sendBuffer = 64
	// writeTimeout bounds a single frame write to a connected client.
	writeTimeout = 10 * time.Second
)

// Event is one message pushed to connected clients.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}

// client pairs a connection with its outbound queue. Writes happen only
// on the client's writer goroutine, never on the broadcaster.
type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans live events out to every connected WebSocket client.
// Broadcast never blocks on a peer: events go into per-client buffered
// queues drained by one writer goroutine per client, and a client that
// stops reading is evicted once its queue fills.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		log:     logging.NewNop(),
	}
}

// WithLogger sets the logger.
func (h *Hub) WithLogger(log *logging.Logger) *Hub {
	h.log = log.Component("ws")
	return h
}

// WithMetrics sets the metrics collector.
func (h *Hub) WithMetrics(m *monitoring.Metrics) *Hub {
	h.metrics = m
	return h
}

// Broadcast queues an event for every connected client. Clients with a
// full queue are dropped.
func (h *Hub) Broadcast(event string, payload any) {
	msg := Event{
		ID:        uuid.NewString(),
		Type:      event,
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	}

	h.mu.Lock()
	for conn, cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.log.Debug("evicting slow websocket client")
			h.removeLocked(conn)
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSEvents.Inc()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleConnection upgrades an HTTP request and keeps the connection
// registered until the client goes away.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.register(conn)
	defer h.remove(conn)

	// Drain the connection; the hub only pushes, but reading is what
	// detects the peer closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) *client {
	cl := &client{
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	// Queue the welcome before the client is visible to Broadcast so an
	// eviction can never close the queue first.
	cl.send <- Event{
		ID:        uuid.NewString(),
		Type:      "connected",
		Timestamp: time.Now().Unix(),
	}

	h.mu.Lock()
	h.clients[conn] = cl
	count := len(h.clients)
	h.mu.Unlock()

	go h.writeLoop(cl)

	h.log.Debug("websocket client connected", zap.Int("clients", count))
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(count))
	}
	return cl
}

// writeLoop is the only writer for its connection. It exits when the
// send queue is closed or a write fails.
func (h *Hub) writeLoop(cl *client) {
	defer cl.conn.Close()

	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteJSON(msg); err != nil {
			h.log.Debug("dropping websocket client", zap.Error(err))
			h.remove(cl.conn)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	h.removeLocked(conn)
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("websocket client disconnected", zap.Int("clients", count))
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(count))
	}
}

// removeLocked must be called with the hub lock held. Closing the send
// queue stops the writer goroutine, which closes the connection.
func (h *Hub) removeLocked(conn *websocket.Conn) {
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(cl.send)
	if h.metrics != nil {
		h.metrics.WSConnections.Set(float64(len(h.clients)))
	}
}
