package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RelayHub fans change notifications out between processes. It is an
// http.Handler: each connecting process holds one websocket, and every
// Change received from one connection is forwarded to all the others.
// Combined with a shared durable backend this gives separate processes the
// same propagation behavior LocalNotifier gives views inside one process.
type RelayHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewRelayHub creates an empty hub.
func NewRelayHub() *RelayHub {
	return &RelayHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: slog.Default().With("component", "storage-relay"),
		conns:  make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the request and relays messages until the peer
// disconnects.
func (h *RelayHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return
		}
		h.broadcast(conn, msg)
	}
}

// broadcast forwards msg to every connection except the sender.
func (h *RelayHub) broadcast(sender *websocket.Conn, msg []byte) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		if c != sender {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Warn("relay write failed", "error", err)
		}
	}
}

// RelayNotifier is a Notifier backed by a websocket connection to a
// RelayHub in another process (or a sidecar). Outgoing changes are written
// to the hub; incoming ones are dispatched to local subscribers.
type RelayNotifier struct {
	conn   *websocket.Conn
	logger *slog.Logger

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	subsMu sync.RWMutex
	nextID int
	subs   map[int]func(Change)

	closeOnce sync.Once
	done      chan struct{}
}

// DialRelay connects to a RelayHub at url (ws:// or wss://).
func DialRelay(ctx context.Context, url string) (*RelayNotifier, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	n := &RelayNotifier{
		conn:   conn,
		logger: slog.Default().With("component", "storage-relay"),
		subs:   make(map[int]func(Change)),
		done:   make(chan struct{}),
	}
	go n.readLoop()
	return n, nil
}

// Publish sends the change to the hub for delivery to other processes.
func (n *RelayNotifier) Publish(ch Change) {
	data, err := json.Marshal(ch)
	if err != nil {
		n.logger.Error("encode change failed", "error", err)
		return
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	n.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := n.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		n.logger.Warn("publish failed", "error", err)
	}
}

// Subscribe registers a handler for changes relayed from other processes.
func (n *RelayNotifier) Subscribe(fn func(Change)) (unsubscribe func()) {
	n.subsMu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.subsMu.Unlock()

	return func() {
		n.subsMu.Lock()
		delete(n.subs, id)
		n.subsMu.Unlock()
	}
}

// Close tears down the connection and stops the read loop.
func (n *RelayNotifier) Close() error {
	n.closeOnce.Do(func() {
		close(n.done)
		n.conn.Close()
	})
	return nil
}

func (n *RelayNotifier) readLoop() {
	defer n.Close()

	for {
		_, msg, err := n.conn.ReadMessage()
		if err != nil {
			select {
			case <-n.done:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNormalClosure) {
					n.logger.Error("read error", "error", err)
				}
			}
			return
		}

		var ch Change
		if err := json.Unmarshal(msg, &ch); err != nil {
			n.logger.Warn("malformed change dropped", "error", err)
			continue
		}

		n.subsMu.RLock()
		handlers := make([]func(Change), 0, len(n.subs))
		for _, fn := range n.subs {
			handlers = append(handlers, fn)
		}
		n.subsMu.RUnlock()

		for _, fn := range handlers {
			fn(ch)
		}
	}
}
