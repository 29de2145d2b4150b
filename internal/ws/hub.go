// Package ws streams preview frames and diagnostics to websocket
// observers and feeds control messages back to the show.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeWindow = 200 * time.Millisecond

// Hub tracks connected observers. Frame clients get binary PNG frames,
// diag clients get JSON events, control clients get their messages
// applied through the registered callback.
type Hub struct {
	mu          sync.RWMutex
	log         zerolog.Logger
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	control     func(map[string]any)
	topology    func() map[string]any
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:         log,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
}

// OnControl registers the callback applied to every control message.
func (h *Hub) OnControl(fn func(map[string]any)) {
	h.mu.Lock()
	h.control = fn
	h.mu.Unlock()
}

// TopologyFunc registers the provider for the hello message new frame
// and control clients receive.
func (h *Hub) TopologyFunc(fn func() map[string]any) {
	h.mu.Lock()
	h.topology = fn
	h.mu.Unlock()
}

// FrameClients reports how many frame observers are connected, so the
// caller can skip encoding frames nobody will see.
func (h *Hub) FrameClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) HandleFrames(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.sendTopology(conn)
	go h.drain(conn, h.clients)
}

func (h *Hub) HandleDiag(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.diagClients[conn] = true
	h.mu.Unlock()
	go h.drain(conn, h.diagClients)
}

func (h *Hub) HandleControl(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		h.mu.RLock()
		fn := h.control
		h.mu.RUnlock()
		if fn != nil {
			fn(msg)
		}
		h.sendTopology(conn)
	}
}

// drain keeps the read side of a push-only connection alive and drops
// the client once it goes away.
func (h *Hub) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) sendTopology(conn *websocket.Conn) {
	h.mu.RLock()
	top := h.topology
	h.mu.RUnlock()
	if top == nil {
		return
	}
	b, err := json.Marshal(top())
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWindow))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// BroadcastFrame pushes one encoded preview frame to every frame
// client.
func (h *Hub) BroadcastFrame(png []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWindow))
		if err := c.WriteMessage(websocket.BinaryMessage, png); err != nil {
			h.log.Debug().Err(err).Msg("write frame")
		}
	}
}

// PushDiag sends v, JSON-encoded, to every diag client. Snapshots and
// Diagnostics share the channel; observers tell them apart by shape.
func (h *Hub) PushDiag(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWindow))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

// Close drops every connected client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
	h.clients = map[*websocket.Conn]bool{}
	h.diagClients = map[*websocket.Conn]bool{}
}
