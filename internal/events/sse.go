package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeBridgeEvents forwards every bridge lifecycle event (stage,
// timing, link, retry and config reload) to ch. The returned function
// removes all of the subscriptions.
func SubscribeBridgeEvents(bus *Bus, ch chan<- any) func() {
	unsubscribers := []func(){
		SubscribeToChannel[BridgeStageChangedEvent](bus, ch),
		SubscribeToChannel[BridgeTimingDetectedEvent](bus, ch),
		SubscribeToChannel[BridgeLinkStateEvent](bus, ch),
		SubscribeToChannel[BridgeRetryEvent](bus, ch),
		SubscribeToChannel[ConfigReloadedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}
