package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Subscriber is one connected client from the hub's point of view.
// SendBytes must not block; slow consumers drop messages instead of
// stalling the broadcast.
type Subscriber interface {
	ID() string
	UserID() string
	SendBytes(b []byte)
	Close()
}

// Hub owns the set of live client connections and fans published events
// out to them. Per-subscriber delivery order follows publish order; there
// is no ordering guarantee across subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	closed      bool
	logger      *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		subscribers: make(map[Subscriber]bool),
		logger:      logger,
	}
}

// Register adds a subscriber. Registration during an in-flight broadcast
// is safe; the new subscriber sees only later events.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.Close()
		return
	}
	h.subscribers[s] = true
	h.logger.Infow("client subscribed", "client_id", s.ID(), "user_id", s.UserID())
}

// Unregister removes a subscriber and closes it.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[s]; ok {
		delete(h.subscribers, s)
	}
	h.mu.Unlock()
	s.Close()
}

// Publish implements Publisher. The event is marshaled once and handed
// to every live subscriber's send queue.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warnw("dropping unmarshalable event", "type", event.Type, "error", err.Error())
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subscribers {
		s.SendBytes(payload)
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Shutdown closes every subscriber and rejects further registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	subs := make([]Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.subscribers = make(map[Subscriber]bool)
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
