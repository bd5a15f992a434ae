// Package notify is the in-process change bus of the catalog.
//
// Events are hints: a subscriber that misses one because its buffer was full
// still converges by re-reading the catalog on the next event it does receive.
package notify

import (
	"sync"

	"slideshow/internal/model"
)

// Kind describes what happened to a record.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Removed Kind = "removed"
	// Reset is published when the whole catalog was swapped (folder relocation).
	Reset Kind = "reset"
)

const defaultBuffer = 32

// Event carries the changed record as a hint. Image is nil for Reset.
type Event struct {
	Kind  Kind         `json:"kind"`
	Image *model.Image `json:"image,omitempty"`
}

// Notifier fans events out to every live subscription without blocking the publisher.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

func New() *Notifier {
	return NewWithBuffer(defaultBuffer)
}

// NewWithBuffer sets the per-subscriber channel capacity.
func NewWithBuffer(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 1
	}
	return &Notifier{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription is one observer's view of the bus. Close it when the observer goes away.
type Subscription struct {
	n    *Notifier
	ch   chan Event
	once sync.Once
}

func (n *Notifier) Subscribe() *Subscription {
	s := &Subscription{n: n, ch: make(chan Event, n.buffer)}

	n.mu.Lock()
	n.subs[s] = struct{}{}
	n.mu.Unlock()

	return s
}

// C returns the receive side. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.n.mu.Lock()
		delete(s.n.subs, s)
		close(s.ch)
		s.n.mu.Unlock()
	})
}

// Publish delivers ev to every subscriber with room in its buffer and drops it for the rest.
func (n *Notifier) Publish(ev Event) {
	if ev.Image != nil {
		ev.Image = ev.Image.Clone()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	for s := range n.subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of open subscriptions.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
