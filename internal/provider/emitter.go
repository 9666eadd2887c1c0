package provider

import (
	"encoding/json"
	"sort"
	"sync"
)

// Emitter fans provider events out to registered handlers.
// The zero value is ready to use.
type Emitter struct {
	mu       sync.RWMutex
	next     int
	handlers map[string]map[int]func(json.RawMessage)
}

// On registers handler for event and returns a function that removes it.
func (e *Emitter) On(event string, handler func(json.RawMessage)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string]map[int]func(json.RawMessage))
	}
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := e.next
	e.next++
	e.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers[event], id)
		})
	}
}

// Emit calls every handler registered for event in registration order.
// Handlers run outside the emitter lock and may unsubscribe themselves.
func (e *Emitter) Emit(event string, payload json.RawMessage) {
	e.mu.RLock()
	ids := make([]int, 0, len(e.handlers[event]))
	for id := range e.handlers[event] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(json.RawMessage), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, e.handlers[event][id])
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

// Len returns the number of handlers registered for event.
func (e *Emitter) Len(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}
