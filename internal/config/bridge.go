package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// BridgeFile is the part of the config file the watcher reloads at runtime.
type BridgeFile struct {
	Bridge BridgeSection `toml:"bridge"`
	DSI    DSISection    `toml:"dsi"`
	Panel  PanelSection  `toml:"panel"`
}

// BridgeSection holds the bring-up policy keys.
type BridgeSection struct {
	RetryLimit          int      `toml:"retry_limit"`
	PCRPollInterval     Duration `toml:"pcr_poll_interval"`
	PCRPollAttempts     int      `toml:"pcr_poll_attempts"`
	RetryMinDelay       Duration `toml:"retry_min_delay"`
	RetryMaxDelay       Duration `toml:"retry_max_delay"`
	RearmOnConfigChange bool     `toml:"rearm_on_config_change"`
}

// DSISection describes the upstream link.
type DSISection struct {
	HostPath string `toml:"host_path"`
	Lanes    int    `toml:"lanes"`
	Burst    bool   `toml:"burst"`
}

// PanelSection is the advertised physical size.
type PanelSection struct {
	WidthMM  uint32 `toml:"width_mm"`
	HeightMM uint32 `toml:"height_mm"`
}

// Duration reads TOML strings such as "500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// LoadBridgeFile reads the runtime-reloadable sections. Missing keys stay
// zero so callers can fall back to their defaults.
func LoadBridgeFile(path string) (BridgeFile, error) {
	var f BridgeFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse config: %w", err)
	}
	return f, nil
}

// RequiresRestart reports whether switching from f to next changes values
// that are only applied at startup. Rearming alone cannot apply them.
func (f BridgeFile) RequiresRestart(next BridgeFile) bool {
	a, b := f, next
	a.Bridge.RearmOnConfigChange = false
	b.Bridge.RearmOnConfigChange = false
	return a != b
}
