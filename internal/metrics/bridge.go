// Package metrics provides Prometheus metrics for the bridge controller.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lvdsbridge"

var (
	stageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "stage_transitions_total",
		Help:      "Stage transitions taken by the bring-up controller",
	}, []string{"bridge", "from", "to"})

	stageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "retries_total",
		Help:      "Stage failures that were rescheduled",
	}, []string{"bridge", "stage"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "failures_total",
		Help:      "Stage failures by reason",
	}, []string{"bridge", "reason"})

	retryCounter = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "retry_counter",
		Help:      "Current RX timing retry counter",
	}, []string{"bridge"})

	currentStage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "stage",
		Help:      "Current stage index (0=prepare .. 4=tx-video-out)",
	}, []string{"bridge"})

	linkUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "link_up",
		Help:      "1 when LVDS output is running",
	}, []string{"bridge"})

	pixelClock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "bridge",
		Name:      "pixel_clock_hertz",
		Help:      "Pixel clock measured by the frequency meter",
	}, []string{"bridge"})

	busAccesses = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chip",
		Name:      "bus_accesses",
		Help:      "I2C transactions issued to the chip",
	}, []string{"bridge"})

	// Local cache for SSE exporter access.
	bridgeCache   = make(map[string]*BridgeMetrics)
	bridgeCacheMu sync.RWMutex
)

// BridgeMetrics holds current metric values for a bridge.
type BridgeMetrics struct {
	Stage        string
	Retries      int
	LinkUp       bool
	PixelClockHz float64
	BusAccesses  uint64
}

// RecordStageTransition counts a transition and updates the stage gauge.
func RecordStageTransition(bridge, from, to string, toIndex int) {
	stageTransitions.WithLabelValues(bridge, from, to).Inc()
	currentStage.WithLabelValues(bridge).Set(float64(toIndex))
	updateCache(bridge, func(m *BridgeMetrics) { m.Stage = to })
}

// RecordRetry counts a rescheduled stage and sets the retry counter.
func RecordRetry(bridge, stage string, retries int) {
	stageRetries.WithLabelValues(bridge, stage).Inc()
	SetRetryCounter(bridge, retries)
}

// RecordFailure counts a stage failure by reason.
func RecordFailure(bridge, reason string) {
	stageFailures.WithLabelValues(bridge, reason).Inc()
}

// SetRetryCounter sets the current retry counter.
func SetRetryCounter(bridge string, retries int) {
	retryCounter.WithLabelValues(bridge).Set(float64(retries))
	updateCache(bridge, func(m *BridgeMetrics) { m.Retries = retries })
}

// SetLinkUp records whether LVDS output is running.
func SetLinkUp(bridge string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	linkUp.WithLabelValues(bridge).Set(v)
	updateCache(bridge, func(m *BridgeMetrics) { m.LinkUp = up })
}

// SetPixelClock records the measured pixel clock in Hz.
func SetPixelClock(bridge string, hz float64) {
	pixelClock.WithLabelValues(bridge).Set(hz)
	updateCache(bridge, func(m *BridgeMetrics) { m.PixelClockHz = hz })
}

// SetBusAccesses records the chip's bus transaction count.
func SetBusAccesses(bridge string, n uint64) {
	busAccesses.WithLabelValues(bridge).Set(float64(n))
	updateCache(bridge, func(m *BridgeMetrics) { m.BusAccesses = n })
}

// DeleteBridgeMetrics removes all gauges for a bridge. Counters are kept.
func DeleteBridgeMetrics(bridge string) {
	retryCounter.DeleteLabelValues(bridge)
	currentStage.DeleteLabelValues(bridge)
	linkUp.DeleteLabelValues(bridge)
	pixelClock.DeleteLabelValues(bridge)
	busAccesses.DeleteLabelValues(bridge)

	bridgeCacheMu.Lock()
	delete(bridgeCache, bridge)
	bridgeCacheMu.Unlock()
}

// GetBridgeMetrics returns current metric values for a bridge.
func GetBridgeMetrics(bridge string) *BridgeMetrics {
	bridgeCacheMu.RLock()
	defer bridgeCacheMu.RUnlock()
	if m, ok := bridgeCache[bridge]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllBridgeMetrics returns metrics for all known bridges.
func GetAllBridgeMetrics() map[string]*BridgeMetrics {
	bridgeCacheMu.RLock()
	defer bridgeCacheMu.RUnlock()
	result := make(map[string]*BridgeMetrics, len(bridgeCache))
	for id, m := range bridgeCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(bridge string, update func(*BridgeMetrics)) {
	bridgeCacheMu.Lock()
	defer bridgeCacheMu.Unlock()
	m, ok := bridgeCache[bridge]
	if !ok {
		m = &BridgeMetrics{}
		bridgeCache[bridge] = m
	}
	update(m)
}
