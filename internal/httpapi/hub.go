package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/txlifecycle"
	"github.com/R3E-Network/zkfactor/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientQueueLen = 16
)

// Event is one message on the transaction stream.
type Event struct {
	Type     string              `json:"type"`
	Previous txlifecycle.Status  `json:"previous,omitempty"`
	Outcome  txlifecycle.Outcome `json:"outcome"`
	Message  string              `json:"message,omitempty"`
}

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventTransition = "transition"
)

// Hub fans coordinator transitions out to WebSocket subscribers. Publishing
// never blocks: a subscriber whose queue is full is disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty hub. Browsers may subscribe from the server's own
// origin or one of origins; requests without an Origin header are not from a
// browser and are always accepted.
func NewHub(log *logger.Logger, origins []string) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	allowed := newOriginSet(origins)
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return checkOrigin(r, allowed) },
		},
		log:     log.WithField("component", "ws_hub"),
		clients: make(map[*client]struct{}),
	}
}

func checkOrigin(r *http.Request, allowed originSet) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return allowed.allows(origin)
}

// Publish is a txlifecycle.Hook.
func (h *Hub) Publish(prev, next txlifecycle.Outcome) {
	h.broadcast(Event{
		Type:     EventTransition,
		Previous: prev.Status,
		Outcome:  next,
		Message:  factoring.ProgressMessage(next),
	})
}

func (h *Hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Warn("encode stream event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("dropping slow stream subscriber")
			delete(h.clients, c)
			c.close()
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// ServeWS upgrades the request and streams events. The subscriber is
// registered before current is read, so the snapshot it receives first is
// never older than the transitions that follow it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, current func() txlifecycle.Outcome) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueueLen)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	snap := current()
	payload, _ := json.Marshal(Event{
		Type:    EventSnapshot,
		Outcome: snap,
		Message: factoring.ProgressMessage(snap),
	})
	c.send <- payload
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
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
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
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
