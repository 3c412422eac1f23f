package events

import (
	"context"
	"errors"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher publishes engine events to subscribed handlers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// memoryDispatcher invokes handlers synchronously on the publishing
// goroutine. Assignment and conflict events drive audit logging and metrics
// only, so a failing handler never blocks the mutation that produced the
// event; errors are joined and reported to the caller.
type memoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &memoryDispatcher{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Publish invokes every handler subscribed to the event's type. All handlers
// run even when earlier ones fail.
func (d *memoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.handlers[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *memoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}
