package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
)

func TestHub_SubscribeInvokesImmediately(t *testing.T) {
	h := NewHub()
	var seen []*User
	unsub := h.Subscribe(func(u *User) { seen = append(seen, u) })
	defer unsub()

	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	h.SignIn(&User{UID: "u1", Email: "cook@example.com"})
	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[1].UID)

	h.SignOut()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
}

func TestHub_SubscribeSeesCurrentUser(t *testing.T) {
	h := NewHub()
	h.SignIn(&User{UID: "u1"})

	var got *User
	unsub := h.Subscribe(func(u *User) { got = u })
	defer unsub()

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UID)
}

func TestHub_SameIdentityDoesNotNotify(t *testing.T) {
	h := NewHub()
	calls := 0
	unsub := h.Subscribe(func(*User) { calls++ })
	defer unsub()

	h.SignIn(&User{UID: "u1"})
	h.SignIn(&User{UID: "u1", DisplayName: "Chef"})
	h.SignOut()
	h.SignOut()

	assert.Equal(t, 3, calls)
	assert.Nil(t, h.Current())
}

func TestHub_UnsubscribeAtMostOnce(t *testing.T) {
	h := NewHub()
	calls := 0
	unsub := h.Subscribe(func(*User) { calls++ })
	assert.Equal(t, 1, h.Listeners())

	require.NoError(t, unsub())
	assert.Equal(t, 0, h.Listeners())

	err := unsub()
	var subErr *domain.SubscriptionError
	require.ErrorAs(t, err, &subErr)

	h.SignIn(&User{UID: "u1"})
	assert.Equal(t, 1, calls, "released listener must not be called")
}

func TestHub_ListenerMayReenter(t *testing.T) {
	h := NewHub()
	var current *User
	unsub := h.Subscribe(func(*User) { current = h.Current() })
	defer unsub()

	h.SignIn(&User{UID: "u2"})
	require.NotNil(t, current)
	assert.Equal(t, "u2", current.UID)
}

func TestHub_InitialValueDeliveredBeforeLaterChanges(t *testing.T) {
	h := NewHub()

	var (
		mu    sync.Mutex
		seen  []*User
		first = true
	)
	entered := make(chan struct{})
	gate := make(chan struct{})
	subscribed := make(chan Unsubscribe, 1)
	go func() {
		subscribed <- h.Subscribe(func(u *User) {
			mu.Lock()
			wait := first
			first = false
			mu.Unlock()
			if wait {
				close(entered)
				<-gate
			}
			mu.Lock()
			seen = append(seen, u)
			mu.Unlock()
		})
	}()
	<-entered

	h.SignIn(&User{UID: "u1"})
	close(gate)
	unsub := <-subscribed
	defer unsub()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Nil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.Equal(t, "u1", seen[1].UID)
}

func TestHub_ReentrantPublishIsQueued(t *testing.T) {
	h := NewHub()
	var seen []string
	unsub := h.Subscribe(func(u *User) {
		if u == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, u.UID)
		if u.UID == "u1" {
			h.SignIn(&User{UID: "u2"})
			seen = append(seen, "after-signin")
		}
	})
	defer unsub()

	h.SignIn(&User{UID: "u1"})
	assert.Equal(t, []string{"", "u1", "after-signin", "u2"}, seen)
	assert.Equal(t, "u2", h.Current().UID)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	calls := 0
	h.Subscribe(func(*User) { calls++ })
	h.Close()

	h.SignIn(&User{UID: "u1"})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Listeners())

	unsub := h.Subscribe(func(u *User) { assert.Nil(t, u) })
	assert.Error(t, unsub())
}

func TestSameIdentity(t *testing.T) {
	assert.True(t, SameIdentity(nil, nil))
	assert.False(t, SameIdentity(nil, &User{UID: "a"}))
	assert.True(t, SameIdentity(&User{UID: "a", Email: "x"}, &User{UID: "a"}))
	assert.False(t, SameIdentity(&User{UID: "a"}, &User{UID: "b"}))
}
