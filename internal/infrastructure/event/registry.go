package event

import (
	"sync"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. A handler registered with
// no types receives every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]shared.EventHandler)}
}

// Register adds handler for eventTypes
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, t := range eventTypes {
		r.handlers[t] = append(r.handlers[t], handler)
	}
}

// Unregister removes handler everywhere
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wildcard = without(r.wildcard, handler)
	for t, hs := range r.handlers {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(r.handlers, t)
		} else {
			r.handlers[t] = hs
		}
	}
}

// GetHandlers returns the type-specific handlers followed by wildcards
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typed := r.handlers[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(r.wildcard))
	out = append(out, typed...)
	return append(out, r.wildcard...)
}

// Count returns the number of distinct registered handlers
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[shared.EventHandler]struct{})
	for _, h := range r.wildcard {
		seen[h] = struct{}{}
	}
	for _, hs := range r.handlers {
		for _, h := range hs {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}

func without(hs []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := hs[:0:0]
	for _, h := range hs {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
