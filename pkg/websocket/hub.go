// Package websocket streams scan results to dashboard clients. Market data
// enters the agent over REST polling, so this package is purely outbound: a
// broadcast hub that fans each payload out to every connected client and
// drops clients that cannot keep up.
package websocket

import (
	"errors"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultSendBuffer   = 16

	// Clients only ever send control frames back.
	maxInboundBytes = 512
)

// Config holds hub configuration.
type Config struct {
	// PingInterval is how often the hub pings each client. The read deadline
	// is twice this, so two missed pongs disconnect the client.
	PingInterval time.Duration

	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration

	// SendBuffer is the per-client outbound queue length. A client whose
	// queue is full when a broadcast arrives is dropped.
	SendBuffer int

	Logger *zap.Logger
}

// Hub fans broadcast payloads out to connected WebSocket clients.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	logger       *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
}

// NewHub creates a broadcast hub.
func NewHub(cfg *Config) (h *Hub, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		sendBuffer:   sendBuffer,
		logger:       cfg.Logger,
		clients:      make(map[*client]struct{}),
	}, nil
}

// Handler returns the http.HandlerFunc that upgrades requests and serves the
// stream until the client disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			UpgradeFailuresTotal.Inc()
			h.logger.Warn("stream-upgrade-failed",
				zap.String("remote", r.RemoteAddr),
				zap.Error(err))
			return
		}

		c := &client{
			conn:        conn,
			send:        make(chan []byte, h.sendBuffer),
			connectedAt: time.Now(),
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			_ = conn.Close()
			return
		}
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		ClientsActive.Inc()
		h.logger.Debug("stream-client-connected",
			zap.String("remote", conn.RemoteAddr().String()))

		go h.writePump(c)
		h.readPump(c)
	}
}

// Broadcast marshals payload once and queues it to every connected client.
// Clients with a full queue are dropped rather than allowed to stall the
// caller.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("stream-marshal-failed", zap.Error(err))
		return
	}

	BroadcastsTotal.Inc()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.removeLocked(c)
			MessagesDroppedTotal.WithLabelValues("slow_client").Inc()
			h.logger.Warn("stream-client-dropped",
				zap.String("remote", c.conn.RemoteAddr().String()),
				zap.Int("queue", h.sendBuffer))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close disconnects every client and rejects future connections.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true

	count := len(h.clients)
	for c := range h.clients {
		h.removeLocked(c)
		_ = c.conn.Close()
	}
	h.mu.Unlock()

	h.logger.Info("stream-hub-closed", zap.Int("clients", count))

	return nil
}

// removeLocked deregisters a client. The caller must hold h.mu. Each client
// leaves the map exactly once, and whoever removes it closes its send
// channel, which in turn stops its writePump.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
	ClientsActive.Dec()
	ConnectionDuration.Observe(time.Since(c.connectedAt).Seconds())
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

// writePump drains the client's queue onto the wire and keeps the connection
// alive with periodic pings. It exits when the send channel closes or a write
// fails.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.pingInterval)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(h.writeTimeout))
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}

			MessagesSentTotal.Inc()

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump consumes inbound frames so control messages are processed. The
// stream is one-way, so payloads are discarded. It exits on read error, which
// covers client close, missed pongs, and hub shutdown.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				h.logger.Debug("stream-client-read-error", zap.Error(err))
			}

			return
		}
	}
}
