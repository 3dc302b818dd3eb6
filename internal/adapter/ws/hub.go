// Package ws streams appended events to browser clients over WebSocket.
// The hub implements the broadcast port; clients optionally subscribe to a
// single thread with the ?thread= query parameter.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/port/broadcast"
)

// Frame is the envelope sent to clients.
type Frame struct {
	ThreadID string      `json:"thread_id"`
	Event    event.Event `json:"event"`
}

type conn struct {
	ws       *websocket.Conn
	threadID string // "" subscribes to everything
}

// Hub manages active connections and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

var _ broadcast.Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]struct{})}
}

// HandleWS upgrades the request and registers the connection until it
// drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	c := &conn{ws: ws, threadID: r.URL.Query().Get("thread")}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "thread", c.threadID)

	// Block on the read loop: it detects disconnects and consumes pings,
	// and keeps the request context alive for writes from Publish.
	defer func() {
		h.remove(c)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		if _, _, err := ws.Read(r.Context()); err != nil {
			return
		}
	}
}

// Publish sends the event to every connection subscribed to its thread.
func (h *Hub) Publish(ctx context.Context, ev event.Event) error {
	threadID, err := stream.ThreadID(ev.StreamName)
	if err != nil {
		threadID = ev.StreamName
	}

	data, err := json.Marshal(Frame{ThreadID: threadID, Event: ev})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if c.threadID != "" && c.threadID != threadID {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			go h.remove(c)
		}
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}
