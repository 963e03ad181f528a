package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(BridgeLinkStateEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case BridgeStageChangedEvent:
		event.Publish(b.dispatcher, e)
	case BridgeTimingDetectedEvent:
		event.Publish(b.dispatcher, e)
	case BridgeLinkStateEvent:
		event.Publish(b.dispatcher, e)
	case BridgeRetryEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	case BridgeMetricsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e BridgeLinkStateEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(BridgeStageChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BridgeTimingDetectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BridgeLinkStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BridgeRetryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BridgeMetricsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
