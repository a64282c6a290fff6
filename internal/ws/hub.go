package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrNoSession is returned when the recipient has no connected session.
var ErrNoSession = errors.New("no session for recipient")

// Envelope is the wire shape of every event pushed over a session.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Session represents one connected rider or captain. Writes are serialized
// per session because gorilla/websocket allows only one concurrent writer.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Session) send(event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(Envelope{Event: event, Data: payload})
}

// Hub holds connected sessions keyed by principal ID. It is the notification
// channel of the system: delivery is best-effort and fire-and-forget.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Attach registers a connection for the principal, replacing any previous
// session for the same ID.
func (h *Hub) Attach(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.sessions[id]; ok {
		_ = old.conn.Close()
	}
	h.sessions[id] = &Session{conn: conn}
}

// Detach removes the principal's session if the given connection still owns it.
func (h *Hub) Detach(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[id]; ok && s.conn == conn {
		delete(h.sessions, id)
	}
}

// HasSession reports whether the principal currently has a connected session.
func (h *Hub) HasSession(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[id]
	return ok
}

// Send pushes an event to the principal's session. A missing session or a
// failed write is reported to the caller, which logs and moves on; nothing
// retries or blocks on delivery.
func (h *Hub) Send(id, event string, payload any) error {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.send(event, payload)
}
