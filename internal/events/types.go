package events

// Event type constants for kelindar/event.
const (
	TypeBridgeStageChanged uint32 = iota + 1
	TypeBridgeTimingDetected
	TypeBridgeLinkState
	TypeBridgeRetry
	TypeLogEntry
	TypeConfigReloaded
	TypeBridgeMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// BridgeStageChangedEvent is published whenever the bring-up controller
// moves between stages.
type BridgeStageChangedEvent struct {
	Bridge    string `json:"bridge" example:"lt9211c-0" doc:"Bridge instance name"`
	From      string `json:"from" example:"rx-timing-config" doc:"Previous stage"`
	To        string `json:"to" example:"rx-pll-config" doc:"New stage"`
	Retries   int    `json:"retries" example:"0" doc:"Retry counter after the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BridgeStageChangedEvent.
func (e BridgeStageChangedEvent) Type() uint32 { return TypeBridgeStageChanged }

// BridgeTimingDetectedEvent carries the input timing matched against the
// supported mode table.
type BridgeTimingDetectedEvent struct {
	Bridge        string `json:"bridge" example:"lt9211c-0" doc:"Bridge instance name"`
	Width         uint16 `json:"width" example:"1920" doc:"Active pixels per line"`
	Height        uint16 `json:"height" example:"1080" doc:"Active lines"`
	FrameRate     uint8  `json:"frame_rate" example:"60" doc:"Measured frame rate in Hz"`
	PixelClockKHz uint32 `json:"pixel_clock_khz" example:"148500" doc:"Pixel clock from the matched mode"`
	Format        string `json:"format" example:"RGB-8(0x0a)" doc:"DSI pixel format"`
	Timestamp     string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BridgeTimingDetectedEvent.
func (e BridgeTimingDetectedEvent) Type() uint32 { return TypeBridgeTimingDetected }

// BridgeLinkStateEvent reports the LVDS output going up or down.
// Used for LED control and systemd status.
type BridgeLinkStateEvent struct {
	Bridge    string `json:"bridge" example:"lt9211c-0" doc:"Bridge instance name"`
	Up        bool   `json:"up" example:"true" doc:"Whether LVDS output is running"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BridgeLinkStateEvent.
func (e BridgeLinkStateEvent) Type() uint32 { return TypeBridgeLinkState }

// GetBridge implements the LinkStateEvent interface for LED manager.
func (e BridgeLinkStateEvent) GetBridge() string {
	return e.Bridge
}

// IsUp implements the LinkStateEvent interface for LED manager.
func (e BridgeLinkStateEvent) IsUp() bool {
	return e.Up
}

// BridgeRetryEvent is published when a stage fails and is rescheduled.
type BridgeRetryEvent struct {
	Bridge    string `json:"bridge" example:"lt9211c-0" doc:"Bridge instance name"`
	Stage     string `json:"stage" example:"rx-timing-config" doc:"Stage that will run next"`
	Retries   int    `json:"retries" example:"3" doc:"Retry counter"`
	Delay     string `json:"delay" example:"40ms" doc:"Delay before the next attempt"`
	Error     string `json:"error" example:"lt9211c: no video (active 0x0, format 0x00)" doc:"Failure that caused the retry"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BridgeRetryEvent.
func (e BridgeRetryEvent) Type() uint32 { return TypeBridgeRetry }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"bridge" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// ConfigReloadedEvent is published after the config file changed on disk.
type ConfigReloadedEvent struct {
	Path      string `json:"path" example:"/etc/lvdsbridge/config.toml" doc:"Reloaded config file"`
	Rearmed   bool   `json:"rearmed" example:"false" doc:"Whether the bridge was re-enabled"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ConfigReloadedEvent.
func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

// BridgeMetricsEvent is a periodic snapshot of a bridge's gauges.
type BridgeMetricsEvent struct {
	EventType    string `json:"type"`
	Bridge       string `json:"bridge"`
	Stage        string `json:"stage"`
	Retries      string `json:"retries"`
	LinkUp       bool   `json:"link_up"`
	PixelClockHz string `json:"pixel_clock_hz"`
	BusAccesses  string `json:"bus_accesses"`
}

// Type returns the event type identifier for BridgeMetricsEvent.
func (e BridgeMetricsEvent) Type() uint32 { return TypeBridgeMetrics }
