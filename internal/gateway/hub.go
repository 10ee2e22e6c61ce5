package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The engine serves a local UI; cross-origin access is not expected.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Event is one push notification to a subscribed UI client
type Event struct {
	Type     string `json:"type"` // "document" or "status"
	Snapshot string `json:"snapshot,omitempty"`
	Message  string `json:"message,omitempty"`
	Time     string `json:"time"`
}

// Hub fans document snapshots and status messages out to subscribed
// websocket clients. It implements the interpreter's Notifier; callbacks
// never block on a slow client — clients that fall behind are dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
	logger  zerolog.Logger
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]chan Event),
		logger:  observability.GetLogger().With().Str("component", "gateway").Logger(),
	}
}

// DocumentChanged pushes a full document snapshot to all subscribers
func (h *Hub) DocumentChanged(snapshot string) {
	h.broadcast(Event{Type: "document", Snapshot: snapshot, Time: time.Now().UTC().Format(time.RFC3339)})
}

// Status pushes a status message to all subscribers
func (h *Hub) Status(message string) {
	h.broadcast(Event{Type: "status", Message: message, Time: time.Now().UTC().Format(time.RFC3339)})
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler upgrades an HTTP request into a subscription
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		events := make(chan Event, 64)
		h.mu.Lock()
		h.clients[conn] = events
		h.mu.Unlock()

		h.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("ui client subscribed")

		go h.writeLoop(conn, events)
		go h.readLoop(conn)
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, events chan Event) {
	defer h.drop(conn)

	for event := range events {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames and notices disconnects
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, events := range h.clients {
		select {
		case events <- event:
		default:
			// Client is not keeping up; cut it loose rather than stall
			// the interpreter.
			h.logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("dropping slow ui client")
			delete(h.clients, conn)
			close(events)
			conn.Close()
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	events, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(events)
	}
	h.mu.Unlock()
	conn.Close()
}
