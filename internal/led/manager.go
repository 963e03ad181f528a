package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/lvdsbridge/internal/events"
)

// Manager drives the status LED from bridge events: solid once every
// bridge's LVDS output runs, blinking while any bridge is bringing up.
type Manager struct {
	controller Controller
	eventBus   *events.Bus
	logger     *slog.Logger

	unsubscribe []func()

	mu    sync.Mutex
	links map[string]bool // bridge name -> link up
}

// NewManager creates a manager; Start subscribes it.
func NewManager(controller Controller, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		eventBus:   eventBus,
		logger:     logger,
		links:      make(map[string]bool),
	}
}

// Start subscribes to bridge events and shows the bring-up pattern.
func (m *Manager) Start() {
	m.unsubscribe = append(m.unsubscribe,
		m.eventBus.Subscribe(func(e events.BridgeLinkStateEvent) {
			m.setLink(e.GetBridge(), e.IsUp())
		}),
		m.eventBus.Subscribe(func(e events.BridgeStageChangedEvent) {
			if e.To == "prepare" {
				m.setLink(e.Bridge, false)
			}
		}),
	)
	m.update()
	m.logger.Info("LED manager started")
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
	if err := m.controller.Set(StatusLED, false, ""); err != nil {
		m.logger.Debug("Failed to switch status LED off", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

func (m *Manager) setLink(bridge string, up bool) {
	m.mu.Lock()
	prev, known := m.links[bridge]
	m.links[bridge] = up
	m.mu.Unlock()

	if known && prev == up {
		return
	}
	m.logger.Debug("Bridge link changed", "bridge", bridge, "up", up)
	m.update()
}

func (m *Manager) allUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.links) == 0 {
		return false
	}
	for _, up := range m.links {
		if !up {
			return false
		}
	}
	return true
}

func (m *Manager) update() {
	pattern := "blink"
	if m.allUp() {
		pattern = "solid"
	}
	if err := m.controller.Set(StatusLED, true, pattern); err != nil {
		m.logger.Warn("Failed to set status LED", "pattern", pattern, "error", err)
	}
}

// GetController returns the underlying LED controller for direct API access.
func (m *Manager) GetController() Controller {
	return m.controller
}
