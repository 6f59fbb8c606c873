package app

import "sync"

type EventKind int

const (
	EventGroupsChanged EventKind = iota
	EventEntriesChanged
	EventDirtyChanged
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventGroupsChanged:
		return "groups_changed"
	case EventEntriesChanged:
		return "entries_changed"
	case EventDirtyChanged:
		return "dirty_changed"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event tells subscribers what to re-render. GroupID is set for
// EventEntriesChanged, Dirty for EventDirtyChanged and Message for
// EventStatus.
type Event struct {
	Kind    EventKind
	GroupID int
	Dirty   bool
	Message string
}

const subscriberBuffer = 64

type eventBus struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[chan Event]struct{})}
}

func (b *eventBus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// publish never blocks: a subscriber with a full buffer misses the event.
func (b *eventBus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.WithField("event", e.Kind).Debug("Subscriber buffer full, dropping event")
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
