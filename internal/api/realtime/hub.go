// Package realtime pushes storage changes and notifications to connected
// storefront clients over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/service"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
)

// Message is one frame sent to clients.
type Message struct {
	Type         string                `json:"type"`
	Key          string                `json:"key,omitempty"`
	Deleted      bool                  `json:"deleted,omitempty"`
	Notification *service.Notification `json:"notification,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to every connected client. A client that cannot keep
// up is disconnected rather than slowing the others.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

var _ service.NotificationSink = (*Hub)(nil)

// NewHub creates a hub accepting connections from allowedOrigins. A "*"
// entry accepts any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// Run forwards changes from the durable store until ctx is done.
func (h *Hub) Run(ctx context.Context, watcher repository.Watcher) {
	for change := range watcher.Watch(ctx) {
		// Credentials never leave the server.
		if change.Key == repository.KeyAuthAccounts || change.Key == repository.KeyVerificationCode {
			continue
		}
		h.broadcast(Message{Type: "change", Key: change.Key, Deleted: change.Deleted})
	}
	h.closeAll()
}

// Notify pushes a toast to clients. Emails are delivered elsewhere.
func (h *Hub) Notify(ctx context.Context, n service.Notification) {
	if n.Kind != service.NotificationToast {
		return
	}
	h.broadcast(Message{Type: "notification", Notification: &n})
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleSync upgrades GET /v1/sync to a websocket.
func (h *Hub) HandleSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Debug("Websocket upgrade failed", zap.Error(err))
			return
		}

		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()
		h.logger.Debug("Sync client connected", zap.String("remote", c.Request.RemoteAddr))

		go h.writePump(cl)
		h.readPump(cl)
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode sync message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			h.logger.Warn("Dropping slow sync client")
			h.removeLocked(cl)
		}
	}
}

// readPump discards client frames and notices disconnects.
func (h *Hub) readPump(cl *client) {
	defer h.remove(cl)
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case data, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(cl)
}

func (h *Hub) removeLocked(cl *client) {
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		h.removeLocked(cl)
	}
}
