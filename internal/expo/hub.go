package expo

import (
	"sync"

	"github.com/appetiteclub/apt"
)

// Hub message types on the display transport.
const (
	MessageFullSync     = "full-sync"
	MessageOrderChanged = "order-changed"
)

// Message is one frame delivered to a display session: either a full
// snapshot of the store or a single changed order.
type Message struct {
	Type   string  `json:"type"`
	Orders []Order `json:"orders,omitempty"`
	Order  *Order  `json:"order,omitempty"`
}

// Hub fans state changes out to connected display sessions. Delivery is
// best effort: each session gets a buffered channel and a session that
// cannot keep up has events dropped rather than stalling the rest. A
// freshly connected session always receives a full snapshot first, so a
// dropped delta only costs staleness until the next sync request.
type Hub struct {
	store  *Store
	logger apt.Logger

	mu       sync.RWMutex
	sessions map[string]chan Message
}

// NewHub creates a hub over the given store.
func NewHub(store *Store, logger apt.Logger) *Hub {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Hub{
		store:    store,
		logger:   logger,
		sessions: make(map[string]chan Message),
	}
}

// Subscribe registers a display session and returns its message channel.
// The first message is always a full snapshot.
func (h *Hub) Subscribe(sessionID string) <-chan Message {
	ch := make(chan Message, 128)

	h.mu.Lock()
	h.sessions[sessionID] = ch
	h.mu.Unlock()

	ch <- Message{Type: MessageFullSync, Orders: h.store.List()}

	h.logger.Info("display session connected", "session_id", sessionID)
	return ch
}

// Unsubscribe removes a session and closes its channel.
func (h *Hub) Unsubscribe(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)
	close(ch)
	h.logger.Info("display session disconnected", "session_id", sessionID)
}

// Sync resends the full snapshot to one session. Idempotent; safe to call
// any number of times.
func (h *Hub) Sync(sessionID string) {
	msg := Message{Type: MessageFullSync, Orders: h.store.List()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	h.send(sessionID, ch, msg)
}

// Publish delivers an order delta to every connected session.
func (h *Hub) Publish(order Order) {
	msg := Message{Type: MessageOrderChanged, Order: &order}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.sessions {
		h.send(id, ch, msg)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) send(sessionID string, ch chan Message, msg Message) {
	select {
	case ch <- msg:
	default:
		// Channel full, session too slow - skip this message.
		h.logger.Info("session channel full, dropping message", "session_id", sessionID, "type", msg.Type)
	}
}
