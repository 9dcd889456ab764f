package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thermavg/thermavg/server/internal/conversion"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// readLimit caps a single inbound frame.
	readLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients, keeps a rolling window of readings per
// client, and broadcasts a heartbeat to all of them every interval.
type Hub struct {
	defaultWindow int
	maxWindow     int
	interval      time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client and its readings.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	window int

	// Owned by readPump.
	readings []float64
	count    int
}

// New creates a Hub. Clients that do not ask for a window get defaultWindow;
// requests above maxWindow are rejected.
func New(defaultWindow, maxWindow int, interval time.Duration) *Hub {
	return &Hub{
		defaultWindow: defaultWindow,
		maxWindow:     maxWindow,
		interval:      interval,
		clients:       make(map[*client]struct{}),
	}
}

// Run starts the heartbeat ticker loop. Run blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case now := <-t.C:
			h.broadcast(now)
		}
	}
}

// ServeHTTP validates the requested window, upgrades the HTTP connection to
// WebSocket and serves the client. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFor(r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"error": err.Error(),
			"kind":  conversion.Kind(err),
		})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn:     conn,
		send:     make(chan []byte, sendBufSize),
		window:   window,
		readings: make([]float64, 0, window),
	}
	h.register(c)
	defer h.unregister(c)

	slog.Debug("stream: client connected", "remote", r.RemoteAddr, "window", window)

	h.deliver(c, Ready{Event: EventReady, Window: window})

	go c.writePump()
	h.readPump(c) // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// windowFor reads ?window=, falling back to the hub default.
func (h *Hub) windowFor(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return h.defaultWindow, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &windowError{msg: "window must be an integer, got " + strconv.Quote(raw)}
	}
	if n < conversion.MinWindow || n > h.maxWindow {
		return 0, &windowError{msg: "window " + raw + " not in [" +
			strconv.Itoa(conversion.MinWindow) + ", " + strconv.Itoa(h.maxWindow) + "]"}
	}
	return n, nil
}

// windowError is a rejected ?window= value; it unwraps to ErrOutOfRange.
type windowError struct{ msg string }

func (e *windowError) Error() string { return "stream: " + e.msg }
func (e *windowError) Unwrap() error { return conversion.ErrOutOfRange }

// accept adds one reading to c's window and builds the reply.
func (c *client) accept(raw []byte) any {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Error{Event: EventError, Error: "malformed frame: " + err.Error()}
	}
	v, err := conversion.Number(in.Value)
	if err != nil {
		return Error{Event: EventError, Error: err.Error()}
	}

	if len(c.readings) == c.window {
		copy(c.readings, c.readings[1:])
		c.readings = c.readings[:c.window-1]
	}
	c.readings = append(c.readings, v)
	c.count++

	out := Reading{Event: EventReading, Count: c.count}
	if len(c.readings) == c.window {
		avgs, err := conversion.MovingAverages(c.readings, c.window)
		if err != nil {
			return Error{Event: EventError, Error: err.Error()}
		}
		out.Average = &avgs[0]
	}
	return out
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// deliver queues msg for c without blocking. It reports false when c is gone
// or its buffer is full; in the latter case c is disconnected.
func (h *Hub) deliver(c *client, msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		// The client still gets an answer for the frame it sent.
		slog.Error("stream: marshal message", "err", err)
		data, _ = json.Marshal(Error{Event: EventError, Error: "reply could not be encoded"})
	}

	h.mu.RLock()
	_, live := h.clients[c]
	sent := false
	if live {
		select {
		case c.send <- data:
			sent = true
		default:
		}
	}
	h.mu.RUnlock()

	if live && !sent {
		// Outgoing buffer is full, disconnect.
		h.unregister(c)
	}
	return sent
}

func (h *Hub) broadcast(now time.Time) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := Heartbeat{
		Event:       EventHeartbeat,
		Clients:     len(targets),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads readings from the connection and queues a reply for each.
// It also processes control messages (pong, close). Blocks until the
// connection closes or c is dropped. The connection itself is closed by
// writePump once the send channel is closed and drained.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		kind, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !h.deliver(c, c.accept(raw)) {
			break
		}
	}
}
