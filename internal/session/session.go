// Package session is the session adapter: a single observable of the
// signed-in user.
package session

import (
	"sync"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

// User is the authenticated identity as seen by the catalog.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// SameIdentity reports whether a and b refer to the same signed-in user
// (both nil counts as the same).
func SameIdentity(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}

// Unsubscribe releases a subscription. It succeeds once; later calls return
// a *domain.SubscriptionError and do nothing.
type Unsubscribe func() error

// Source publishes the current user. Subscribe invokes onChange immediately
// with the current user (nil when signed out) and again on every change.
type Source interface {
	Subscribe(onChange func(*User)) Unsubscribe
}

var _ Source = (*Hub)(nil)

// Hub is an in-process Source. Listeners are called outside the hub lock in
// subscription order, so a listener may call back into the hub.
//
// Each listener sees values in the order the hub recorded them, starting
// with the value current at Subscribe. When deliveries race, the goroutine
// already delivering to a listener also delivers the values queued behind it.
type Hub struct {
	mu        sync.Mutex
	current   *User
	listeners map[uint64]*listener
	order     []uint64
	nextID    uint64
	closed    bool
}

// listener serializes deliveries to one onChange callback.
type listener struct {
	fn func(*User)

	mu         sync.Mutex
	pending    []*User
	delivering bool
	removed    bool
}

// enqueue is called with the hub lock held, so queue order is hub order.
func (l *listener) enqueue(u *User) {
	l.mu.Lock()
	l.pending = append(l.pending, u)
	l.mu.Unlock()
}

// drain delivers queued values unless another goroutine already is.
func (l *listener) drain() {
	l.mu.Lock()
	if l.delivering {
		l.mu.Unlock()
		return
	}
	l.delivering = true
	for len(l.pending) > 0 && !l.removed {
		u := l.pending[0]
		l.pending = l.pending[1:]
		l.mu.Unlock()
		l.fn(u)
		l.mu.Lock()
	}
	l.pending = nil
	l.delivering = false
	l.mu.Unlock()
}

func (l *listener) remove() {
	l.mu.Lock()
	l.removed = true
	l.pending = nil
	l.mu.Unlock()
}

// NewHub creates a signed-out hub.
func NewHub() *Hub {
	return &Hub{listeners: make(map[uint64]*listener)}
}

// Current returns a copy of the signed-in user, or nil.
func (h *Hub) Current() *User {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyUser(h.current)
}

func (h *Hub) Subscribe(onChange func(*User)) Unsubscribe {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		onChange(nil)
		return func() error { return &domain.SubscriptionError{Reason: "hub closed"} }
	}
	h.nextID++
	id := h.nextID
	l := &listener{fn: onChange}
	l.enqueue(copyUser(h.current))
	h.listeners[id] = l
	h.order = append(h.order, id)
	h.mu.Unlock()

	l.drain()

	var once sync.Once
	return func() error {
		released := false
		once.Do(func() {
			released = true
			h.remove(id)
		})
		if !released {
			return &domain.SubscriptionError{Reason: "already unsubscribed"}
		}
		return nil
	}
}

// SignIn publishes u as the current user. Signing in the same uid again
// refreshes the stored profile without notifying listeners.
func (h *Hub) SignIn(u *User) {
	if u == nil {
		h.SignOut()
		return
	}
	h.publish(copyUser(u))
}

// SignOut publishes nil.
func (h *Hub) SignOut() {
	h.publish(nil)
}

// Close drops every listener. Later subscriptions observe a signed-out hub.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.current = nil
	for _, l := range h.listeners {
		l.remove()
	}
	h.listeners = make(map[uint64]*listener)
	h.order = nil
}

// Listeners returns the number of live subscriptions.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *Hub) publish(u *User) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	changed := !SameIdentity(h.current, u)
	h.current = u
	if !changed {
		h.mu.Unlock()
		return
	}
	targets := make([]*listener, 0, len(h.order))
	for _, id := range h.order {
		if l, ok := h.listeners[id]; ok {
			l.enqueue(copyUser(u))
			targets = append(targets, l)
		}
	}
	h.mu.Unlock()

	for _, l := range targets {
		l.drain()
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.listeners[id]; ok {
		l.remove()
	}
	delete(h.listeners, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
