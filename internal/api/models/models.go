package models

import (
	"github.com/smazurov/lvdsbridge/internal/bridge"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	LinkUp  bool   `json:"link_up" example:"true" doc:"Whether LVDS output is running"`
	Stage   string `json:"stage" example:"tx-video-out" doc:"Current bring-up stage"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Bridge models
type BridgeStatusResponse struct {
	Body bridge.Status
}

type ModesData struct {
	Modes []bridge.Mode `json:"modes" doc:"Modes advertised to the display pipeline"`
}

type ModesResponse struct {
	Body ModesData
}

type TimingsData struct {
	Timings []lt9211c.VideoTiming `json:"timings" doc:"Supported input timings in match order"`
	Count   int                   `json:"count" example:"21" doc:"Number of supported timings"`
}

type TimingsResponse struct {
	Body TimingsData
}

type EnableResponse struct {
	Body struct {
		Message string        `json:"message" example:"Bring-up restarted" doc:"Result message"`
		Status  bridge.Status `json:"status" doc:"Bridge status right after the restart"`
	}
}

// LED models
type LEDRequest struct {
	Body struct {
		Type    string  `json:"type" example:"status" doc:"Logical LED name from the capabilities list"`
		Enabled bool    `json:"enabled" example:"true" doc:"Whether the LED should be on or off"`
		Pattern *string `json:"pattern,omitempty" example:"heartbeat" doc:"Optional pattern (solid, blink, heartbeat)"`
	}
}

type LEDState struct {
	Type    string `json:"type" example:"status" doc:"LED that was set"`
	Enabled bool   `json:"enabled" example:"true" doc:"Requested on/off state"`
	Pattern string `json:"pattern,omitempty" example:"heartbeat" doc:"Applied pattern, empty if unchanged"`
	Note    string `json:"note,omitempty" doc:"Extra information about the change"`
}

type LEDResponse struct {
	Body LEDState
}

type LEDCapabilitiesData struct {
	AvailableTypes    []string `json:"available_types" doc:"LED names available on this board"`
	AvailablePatterns []string `json:"available_patterns" doc:"Patterns available on this board"`
	StatusLED         string   `json:"status_led" example:"status" doc:"LED that follows the LVDS link state"`
}

type LEDCapabilitiesResponse struct {
	Body LEDCapabilitiesData
}

// Log level models
type LogLevelsResponse struct {
	Body struct {
		Levels map[string]string `json:"levels" doc:"Current level per module"`
	}
}

type SetLogLevelRequest struct {
	Module string `path:"module" example:"chip" doc:"Logger module name"`
	Body   struct {
		Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}

type LogStreamRequest struct {
	Module string `query:"module" example:"bridge" doc:"Only stream entries from this logger module"`
}
