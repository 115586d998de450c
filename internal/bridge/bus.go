// Package bridge carries realtime events from the backend socket to local
// consumers. The Bus decouples subscribers from the transport; Socket feeds
// it from a websocket connection.
package bridge

import "sync"

// Handler consumes one event. Duplicate delivery is possible; handlers must
// stay idempotent (consumers dedupe by entity id).
type Handler func(Event)

// Bus is an in-process event dispatcher with explicit subscription handles,
// so consumers can deregister on teardown and leave no listeners behind.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: map[string]map[int]Handler{}}
}

// On registers a handler for the named event and returns its handle.
func (b *Bus) On(event string, h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if b.handlers[event] == nil {
		b.handlers[event] = map[int]Handler{}
	}
	b.handlers[event][b.nextID] = h
	return b.nextID
}

// Off removes a previously registered handler. Unknown handles are ignored.
func (b *Bus) Off(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hs, ok := b.handlers[event]; ok {
		delete(hs, id)
		if len(hs) == 0 {
			delete(b.handlers, event)
		}
	}
}

// ListenerCount reports how many handlers are registered for the event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Emit delivers the event to every handler registered under its name.
// Handlers run on the caller's goroutine; no cross-event ordering is
// guaranteed.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[ev.Name]))
	for _, h := range b.handlers[ev.Name] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}
