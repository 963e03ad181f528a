// Package dsi tracks the upstream MIPI-DSI host the bridge receives video from.
package dsi

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Config describes the DSI link.
type Config struct {
	// HostPath is a sysfs node that exists once the host driver has probed.
	// Empty means the host is assumed present.
	HostPath string
	Lanes    int
	Burst    bool
}

// Host is the DSI host attachment.
type Host struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	attached bool
}

// New validates the link parameters.
func New(cfg Config, logger *slog.Logger) (*Host, error) {
	if cfg.Lanes < 1 || cfg.Lanes > 4 {
		return nil, fmt.Errorf("dsi: invalid lane count %d", cfg.Lanes)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{cfg: cfg, logger: logger}, nil
}

// Attach succeeds once the host node exists. A missing node is reported as
// lt9211c.ErrDefer so callers retry.
func (h *Host) Attach() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attached {
		return nil
	}
	if h.cfg.HostPath != "" {
		if _, err := os.Stat(h.cfg.HostPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("dsi host %s not present: %w", h.cfg.HostPath, lt9211c.ErrDefer)
			}
			return fmt.Errorf("dsi host %s: %w", h.cfg.HostPath, err)
		}
	}

	h.attached = true
	h.logger.Info("DSI host present", "path", h.cfg.HostPath, "lanes", h.cfg.Lanes, "burst", h.cfg.Burst)
	return nil
}

// Detach releases the host. Detaching twice is harmless.
func (h *Host) Detach() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attached = false
	return nil
}

func (h *Host) Lanes() int  { return h.cfg.Lanes }
func (h *Host) Burst() bool { return h.cfg.Burst }
