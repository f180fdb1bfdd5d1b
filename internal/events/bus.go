// Package events carries operator-facing notifications between components
// and whatever displays them.
package events

import (
	"sync"

	"dispatchdesk/internal/core"
)

// Bus is an in-process pub/sub for notifications. Slow subscribers drop
// notifications rather than block publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan core.Notification
	nextID int
	closed bool
}

func NewBus() *Bus { return &Bus{subs: make(map[int]chan core.Notification)} }

// Subscribe returns a channel of notifications and a function that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan core.Notification, func()) {
	ch := make(chan core.Notification, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Notify publishes n to every subscriber. It implements core.Notifier.
func (b *Bus) Notify(n core.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Close ends all subscriptions. Later notifications are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

var _ core.Notifier = (*Bus)(nil)
