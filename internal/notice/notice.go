// Package notice carries user-visible messages from the catalog to whatever
// renders the view.
package notice

import (
	"sync"
	"time"
)

// Level of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a single message shown to the user.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = NotifierFunc(func(Notice) {})

// Info builds an info notice.
func Info(msg string) Notice {
	return Notice{Level: LevelInfo, Message: msg, At: time.Now().UTC()}
}

// Error builds an error notice.
func Error(msg string) Notice {
	return Notice{Level: LevelError, Message: msg, At: time.Now().UTC()}
}

const defaultInboxSize = 32

// Inbox buffers notices until the view is next rendered. Oldest notices are
// dropped once the buffer is full.
type Inbox struct {
	mu      sync.Mutex
	notices []Notice
	max     int
}

// NewInbox creates an inbox holding at most max notices (32 when max <= 0).
func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = defaultInboxSize
	}
	return &Inbox{max: max}
}

func (b *Inbox) Notify(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notices = append(b.notices, n)
	if over := len(b.notices) - b.max; over > 0 {
		b.notices = append([]Notice(nil), b.notices[over:]...)
	}
}

// Drain returns buffered notices in arrival order and empties the inbox.
func (b *Inbox) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}
