package state

import (
	"sync"
	"sync/atomic"
)

// Presence reports whether the UI is in the foreground and announces focus
// gains. Stores use it for their interval and focus triggers.
type Presence interface {
	Visible() bool
	Subscribe() (<-chan struct{}, func())
}

// Focus is the Presence driven by the terminal's focus reports. It starts
// visible.
type Focus struct {
	hidden atomic.Bool

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

var _ Presence = (*Focus)(nil)

// NewFocus returns a visible Focus with no subscribers.
func NewFocus() *Focus {
	return &Focus{subs: make(map[chan struct{}]struct{})}
}

// Visible reports whether the UI currently has focus.
func (f *Focus) Visible() bool {
	return !f.hidden.Load()
}

// Gained marks the UI visible and notifies every subscriber. Notifications
// never block: a subscriber that has not drained its previous event only sees
// one pending event.
func (f *Focus) Gained() {
	f.hidden.Store(false)

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Lost marks the UI hidden.
func (f *Focus) Lost() {
	f.hidden.Store(true)
}

// Subscribe registers for focus events. The returned func unsubscribes and is
// safe to call more than once.
func (f *Focus) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[chan struct{}]struct{})
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (f *Focus) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
