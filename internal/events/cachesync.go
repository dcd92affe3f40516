package events

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Cache view keys invalidated by broker events.
const (
	PropertyListKey  = "properties"
	PropertyKeyPfx   = "property:"
	InvestmentsKey   = "investments"
	InvestmentKeyPfx = "investment:"
)

// ViewCache is the locally cached view store a consumer keeps. Invalidate
// drops keys so the next read refetches; PatchPrice rewrites a cached
// property's price fields in place without a full refetch.
type ViewCache interface {
	Invalidate(keys ...string)
	PatchPrice(propertyID string, tokenPriceCents int64)
}

// NotificationSink receives user-facing notifications.
type NotificationSink interface {
	Notify(n Notification)
}

// CacheSync applies the broker's built-in per-type side effects: cache
// invalidation, in-place price patching, and notification forwarding.
// Replaying an event is idempotent: every effect overwrites rather than
// accumulates.
type CacheSync struct {
	cache    ViewCache
	notifier NotificationSink
	viewerID string
	logger   *zap.SugaredLogger
}

// NewCacheSync creates a CacheSync for the local viewer.
func NewCacheSync(cache ViewCache, notifier NotificationSink, viewerID string, logger *zap.SugaredLogger) *CacheSync {
	return &CacheSync{cache: cache, notifier: notifier, viewerID: viewerID, logger: logger}
}

// Bind subscribes the side-effect handlers on a broker client and
// returns a function removing all of them.
func (cs *CacheSync) Bind(client *Client) func() {
	unsubs := []func(){
		client.Subscribe(TypePropertyUpdate, cs.Apply),
		client.Subscribe(TypeInvestmentUpdate, cs.Apply),
		client.Subscribe(TypePriceUpdate, cs.Apply),
		client.Subscribe(TypeNotification, cs.Apply),
		client.Subscribe(TypeSystem, cs.Apply),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Apply runs the built-in side effect for one event.
func (cs *CacheSync) Apply(event Event) {
	switch event.Type {
	case TypePropertyUpdate:
		var p PropertyUpdate
		if err := json.Unmarshal(event.Data, &p); err != nil {
			cs.warnMalformed(event, err)
			return
		}
		cs.cache.Invalidate(PropertyKeyPfx+p.PropertyID, PropertyListKey)

	case TypeInvestmentUpdate:
		var p InvestmentUpdate
		if err := json.Unmarshal(event.Data, &p); err != nil {
			cs.warnMalformed(event, err)
			return
		}
		cs.cache.Invalidate(InvestmentKeyPfx+p.InvestmentID, InvestmentsKey)
		if p.UserID != "" && p.UserID == cs.viewerID {
			cs.notifier.Notify(Notification{
				UserID:  p.UserID,
				Title:   "Investment updated",
				Message: "Your investment is now " + p.Status,
			})
		}

	case TypePriceUpdate:
		var p PriceUpdate
		if err := json.Unmarshal(event.Data, &p); err != nil {
			cs.warnMalformed(event, err)
			return
		}
		cs.cache.PatchPrice(p.PropertyID, p.TokenPriceCents)

	case TypeNotification:
		var n Notification
		if err := json.Unmarshal(event.Data, &n); err != nil {
			cs.warnMalformed(event, err)
			return
		}
		cs.notifier.Notify(n)

	case TypeSystem:
		cs.logger.Infow("system event", "timestamp", event.Timestamp, "data", string(event.Data))

	default:
		cs.logger.Debugw("ignoring unknown event type", "type", event.Type)
	}
}

func (cs *CacheSync) warnMalformed(event Event, err error) {
	cs.logger.Warnw("dropping malformed event payload", "type", event.Type, "error", err.Error())
}
