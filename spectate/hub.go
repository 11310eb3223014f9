package spectate

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HubConfig tunes a Hub.
type HubConfig struct {
	// QueueSize is how many messages may wait for a client before it is
	// considered too slow and dropped.
	QueueSize    int           `yaml:"queue_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func DefaultHubConfig() HubConfig {
	return HubConfig{QueueSize: 64, WriteTimeout: 5 * time.Second}
}

// Hub fans frames out to every connected watcher. It is an http.Handler.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(cfg HubConfig) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultHubConfig().QueueSize
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("spectate upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.cfg.QueueSize)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Info().Str("remote", r.RemoteAddr).Msg("spectator connected")

	go h.writeLoop(c)

	// Watchers never send anything useful; reading just notices the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	log.Info().Str("remote", r.RemoteAddr).Msg("spectator disconnected")
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if h.cfg.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// remove unregisters a client and stops its writer. Safe to call twice.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Broadcast queues a frame for every watcher. Watchers whose queue is full
// are disconnected.
func (h *Hub) Broadcast(f Frame) error {
	return h.publish(EventFrame, f)
}

// EndMatch tells watchers a match is over.
func (h *Hub) EndMatch(f Frame) error {
	return h.publish(EventMatchEnd, f)
}

func (h *Hub) publish(eventType string, f Frame) error {
	msg, err := encode(eventType, f)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("dropping slow spectator")
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Clients is the number of connected watchers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every watcher and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
