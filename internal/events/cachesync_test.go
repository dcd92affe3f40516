package events

import (
	"sync"
	"testing"
)

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
	patched     map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{patched: make(map[string]int64)}
}

func (c *fakeCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keys...)
}

func (c *fakeCache) PatchPrice(propertyID string, tokenPriceCents int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patched[propertyID] = tokenPriceCents
}

func (c *fakeCache) invalidatedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.invalidated))
	copy(out, c.invalidated)
	return out
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (n *fakeNotifier) Notify(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, note)
}

func (n *fakeNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

func containsKey(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func TestCacheSyncApply(t *testing.T) {
	t.Run("property_update_invalidates_detail_and_list", func(t *testing.T) {
		cache := newFakeCache()
		cs := NewCacheSync(cache, &fakeNotifier{}, "viewer", testLogger())

		cs.Apply(NewEvent(TypePropertyUpdate, PropertyUpdate{PropertyID: "p1"}))

		keys := cache.invalidatedKeys()
		if !containsKey(keys, PropertyKeyPfx+"p1") {
			t.Errorf("expected property detail key invalidated, got %v", keys)
		}
		if !containsKey(keys, PropertyListKey) {
			t.Errorf("expected property list key invalidated, got %v", keys)
		}
	})

	t.Run("investment_update_invalidates_and_notifies_viewer", func(t *testing.T) {
		cache := newFakeCache()
		notifier := &fakeNotifier{}
		cs := NewCacheSync(cache, notifier, "viewer", testLogger())

		cs.Apply(NewEvent(TypeInvestmentUpdate, InvestmentUpdate{
			InvestmentID: "i1", UserID: "viewer", Status: "confirmed",
		}))

		keys := cache.invalidatedKeys()
		if !containsKey(keys, InvestmentKeyPfx+"i1") || !containsKey(keys, InvestmentsKey) {
			t.Errorf("expected investment keys invalidated, got %v", keys)
		}
		if len(notifier.all()) != 1 {
			t.Fatalf("expected 1 notification for the viewer, got %d", len(notifier.all()))
		}
	})

	t.Run("investment_update_for_other_user_does_not_notify", func(t *testing.T) {
		cache := newFakeCache()
		notifier := &fakeNotifier{}
		cs := NewCacheSync(cache, notifier, "viewer", testLogger())

		cs.Apply(NewEvent(TypeInvestmentUpdate, InvestmentUpdate{
			InvestmentID: "i1", UserID: "someone-else", Status: "confirmed",
		}))

		if len(notifier.all()) != 0 {
			t.Errorf("expected no notification, got %d", len(notifier.all()))
		}
	})

	t.Run("price_update_patches_in_place", func(t *testing.T) {
		cache := newFakeCache()
		cs := NewCacheSync(cache, &fakeNotifier{}, "viewer", testLogger())

		cs.Apply(NewEvent(TypePriceUpdate, PriceUpdate{PropertyID: "p1", TokenPriceCents: 3000}))

		if cache.patched["p1"] != 3000 {
			t.Errorf("expected patched price 3000, got %d", cache.patched["p1"])
		}
		if len(cache.invalidatedKeys()) != 0 {
			t.Errorf("price update must not invalidate, got %v", cache.invalidatedKeys())
		}
	})

	t.Run("notification_is_forwarded", func(t *testing.T) {
		notifier := &fakeNotifier{}
		cs := NewCacheSync(newFakeCache(), notifier, "viewer", testLogger())

		cs.Apply(NewEvent(TypeNotification, Notification{Title: "KYC", Message: "approved"}))

		notes := notifier.all()
		if len(notes) != 1 || notes[0].Title != "KYC" {
			t.Errorf("expected forwarded notification, got %v", notes)
		}
	})

	t.Run("replay_is_idempotent", func(t *testing.T) {
		cache := newFakeCache()
		cs := NewCacheSync(cache, &fakeNotifier{}, "viewer", testLogger())

		event := NewEvent(TypePriceUpdate, PriceUpdate{PropertyID: "p1", TokenPriceCents: 3000})
		cs.Apply(event)
		cs.Apply(event)

		if cache.patched["p1"] != 3000 {
			t.Errorf("replay changed the patched value: %d", cache.patched["p1"])
		}
	})

	t.Run("malformed_payload_is_dropped", func(t *testing.T) {
		cache := newFakeCache()
		notifier := &fakeNotifier{}
		cs := NewCacheSync(cache, notifier, "viewer", testLogger())

		cs.Apply(Event{Type: TypePropertyUpdate, Data: []byte("not json")})

		if len(cache.invalidatedKeys()) != 0 {
			t.Errorf("malformed payload must not touch the cache, got %v", cache.invalidatedKeys())
		}
	})
}

func TestCacheSyncBind(t *testing.T) {
	cache := newFakeCache()
	cs := NewCacheSync(cache, &fakeNotifier{}, "viewer", testLogger())
	client := NewClient("ws://test", testLogger(), WithDialer(newFakeDialer()))

	unbind := cs.Bind(client)

	client.dispatch(eventFrame(t, TypePropertyUpdate, PropertyUpdate{PropertyID: "p1"}))
	if len(cache.invalidatedKeys()) == 0 {
		t.Fatal("bound handler never fired")
	}

	before := len(cache.invalidatedKeys())
	unbind()
	client.dispatch(eventFrame(t, TypePropertyUpdate, PropertyUpdate{PropertyID: "p2"}))
	if len(cache.invalidatedKeys()) != before {
		t.Error("handlers still bound after unbind")
	}
}
