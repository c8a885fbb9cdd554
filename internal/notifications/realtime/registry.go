package realtime

import (
	"sync"

	"tutorbook/pkg/model"
)

const DefaultBuffer = 16

// SessionRegistry fans notifications out to a user's open streams.
type SessionRegistry interface {
	// Subscribe opens a stream for userID. The returned func closes it.
	Subscribe(userID string) (<-chan *model.Notification, func())
	// Deliver reports whether at least one open stream accepted n.
	Deliver(userID string, n *model.Notification) bool
}

type subscription struct {
	ch chan *model.Notification
}

// InMemoryRegistry holds streams for this process only. A slow stream whose buffer is
// full misses the push; the notification is still stored and listable.
type InMemoryRegistry struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
}

var _ SessionRegistry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry(buffer int) *InMemoryRegistry {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &InMemoryRegistry{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: buffer,
	}
}

func (r *InMemoryRegistry) Subscribe(userID string) (<-chan *model.Notification, func()) {
	sub := &subscription{ch: make(chan *model.Notification, r.buffer)}

	r.mu.Lock()
	if r.subs[userID] == nil {
		r.subs[userID] = make(map[*subscription]struct{})
	}
	r.subs[userID][sub] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs[userID], sub)
			if len(r.subs[userID]) == 0 {
				delete(r.subs, userID)
			}
			close(sub.ch)
		})
	}
}

func (r *InMemoryRegistry) Deliver(userID string, n *model.Notification) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := false
	for sub := range r.subs[userID] {
		select {
		case sub.ch <- n:
			delivered = true
		default:
		}
	}
	return delivered
}

// Sessions returns the number of open streams for userID.
func (r *InMemoryRegistry) Sessions(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[userID])
}
