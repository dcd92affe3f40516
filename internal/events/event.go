// Package events implements the change-notification broker: a WebSocket
// hub that fans typed events out to connected clients, a reconnecting
// consumer client, and the cache-invalidation rules driven by those
// events.
package events

import (
	"encoding/json"
	"time"
)

// Event types carried on the wire.
const (
	TypePropertyUpdate   = "property_update"
	TypeInvestmentUpdate = "investment_update"
	TypeNotification     = "notification"
	TypePriceUpdate      = "price_update"
	TypeSystem           = "system"
)

// Event is the wire-level message shape. Timestamp is an ISO-8601 string.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// NewEvent builds an event with the current UTC timestamp. Marshal
// failures are impossible for the payload types used here, so the data
// field is left empty rather than erroring.
func NewEvent(eventType string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// PropertyUpdate is the payload for property_update events.
type PropertyUpdate struct {
	PropertyID      string `json:"property_id"`
	AvailableTokens int64  `json:"available_tokens"`
	TotalTokens     int64  `json:"total_tokens"`
	Status          string `json:"status"`
}

// InvestmentUpdate is the payload for investment_update events.
type InvestmentUpdate struct {
	InvestmentID string `json:"investment_id"`
	PropertyID   string `json:"property_id"`
	UserID       string `json:"user_id"`
	Tokens       int64  `json:"tokens"`
	Status       string `json:"status"`
}

// PriceUpdate is the payload for price_update events.
type PriceUpdate struct {
	PropertyID      string `json:"property_id"`
	TokenPriceCents int64  `json:"token_price_cents"`
}

// Notification is the payload for notification events.
type Notification struct {
	UserID  string `json:"user_id,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Publisher pushes events to interested subscribers. Services depend on
// this interface so the pipeline is testable without a live transport.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards all events. Used by the migrate CLI and tests
// that don't care about notifications.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) {}
