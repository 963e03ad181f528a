package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/lvdsbridge/internal/bridge"
	"github.com/smazurov/lvdsbridge/internal/events"
)

// bridgeEventTypes maps SSE event names to payloads.
func bridgeEventTypes() map[string]any {
	return map[string]any{
		"bridge-status":          bridge.Status{},
		"bridge-stage-changed":   events.BridgeStageChangedEvent{},
		"bridge-timing-detected": events.BridgeTimingDetectedEvent{},
		"bridge-link-state":      events.BridgeLinkStateEvent{},
		"bridge-retry":           events.BridgeRetryEvent{},
		"config-reloaded":        events.ConfigReloadedEvent{},
	}
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time bridge stage changes, timing detection, link state, retries and config reloads",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, bridgeEventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribe := events.SubscribeBridgeEvents(s.eventBus, eventCh)
		defer unsubscribe()

		// Current state first so clients don't wait for the next transition
		if s.bridge != nil {
			if err := send.Data(s.bridge.Status()); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
