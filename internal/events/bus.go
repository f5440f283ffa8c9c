package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous: a slow
// subscriber never blocks the publisher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish sends ev to every subscriber of its type.
// Publishing on a nil bus is a no-op so components can run without one.
func Publish[T Event](b *Bus, ev T) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, ev)
}

// Subscribe registers handler for events of type T and returns an unsubscribe function.
// Usage: unsub := events.Subscribe(bus, func(e CompanionLaunchedEvent) { ... })
func Subscribe[T Event](b *Bus, handler func(T)) func() {
	if b == nil {
		return func() {}
	}
	return event.Subscribe(b.dispatcher, handler)
}

// Personal.AI order the ending
