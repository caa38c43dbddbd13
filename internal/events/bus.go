package events

import "sync"

// Handler reacts to a published event.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed later.
type Subscription struct {
	kind Kind
	id   uint64
}

type entry struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe hub keyed by event kind.
//
// Handlers run on the publishing goroutine in registration order. Events
// published from inside a handler are queued and delivered after the current
// event has reached every handler, before the outermost Publish returns, so all
// subscribers observe one global order.
type Bus struct {
	mu          sync.Mutex
	handlers    map[Kind][]entry
	nextID      uint64
	queue       []Event
	dispatching bool
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]entry)}
}

// Subscribe registers handler for kind. A nil handler is ignored and yields a
// zero Subscription.
func (b *Bus) Subscribe(kind Kind, handler Handler) Subscription {
	if handler == nil {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], entry{id: b.nextID, handler: handler})
	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes a handler. Unknown subscriptions are ignored. Removing the
// last handler of a kind drops the kind entirely.
func (b *Bus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[sub.kind]
	for i, e := range list {
		if e.id != sub.id {
			continue
		}
		updated := make([]entry, 0, len(list)-1)
		updated = append(updated, list[:i]...)
		updated = append(updated, list[i+1:]...)
		if len(updated) == 0 {
			delete(b.handlers, sub.kind)
		} else {
			b.handlers[sub.kind] = updated
		}
		return
	}
}

// Publish delivers ev to every handler registered for its kind.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, ev)
	if b.dispatching {
		b.mu.Unlock()
		return
	}
	b.dispatching = true
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		// Copy so handlers may subscribe or unsubscribe while we iterate.
		list := append([]entry(nil), b.handlers[next.Kind()]...)
		b.mu.Unlock()

		for _, e := range list {
			e.handler(next)
		}
	}
}

// HandlerCount reports how many handlers are registered for kind.
func (b *Bus) HandlerCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[kind])
}

// Kinds reports how many kinds currently hold at least one handler.
func (b *Bus) Kinds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
