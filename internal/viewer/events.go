package viewer

import (
	"sync"

	"github.com/pscheid92/menupulse/internal/domain"
)

type EventType int

const (
	// EventStatus fires on every connection state transition.
	EventStatus EventType = iota
	// EventDishes fires when the replica changes.
	EventDishes
	// EventError reports a recoverable failure such as a failed pull or dial.
	EventError
)

type Event struct {
	Type   EventType
	State  State
	Dishes []domain.Dish
	Err    error
}

type Listener func(Event)

// eventBus fans events out to any number of listeners per type.
type eventBus struct {
	mu        sync.Mutex
	nextID    int
	listeners map[EventType]map[int]Listener
}

func newEventBus() *eventBus {
	return &eventBus{listeners: make(map[EventType]map[int]Listener)}
}

// subscribe registers fn for t and returns a func that removes it. The returned func is safe to call more than once.
func (b *eventBus) subscribe(t EventType, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.listeners[t] == nil {
		b.listeners[t] = make(map[int]Listener)
	}
	b.listeners[t][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners[t], id)
	}
}

// emit calls the listeners outside the lock so they may subscribe or unsubscribe.
func (b *eventBus) emit(e Event) {
	b.mu.Lock()
	fns := make([]Listener, 0, len(b.listeners[e.Type]))
	for _, fn := range b.listeners[e.Type] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
