package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStageTransitionMetrics(t *testing.T) {
	bridge := "transition-test"
	defer DeleteBridgeMetrics(bridge)

	RecordStageTransition(bridge, "prepare", "rx-timing-config", 1)
	RecordStageTransition(bridge, "prepare", "rx-timing-config", 1)

	got := testutil.ToFloat64(stageTransitions.WithLabelValues(bridge, "prepare", "rx-timing-config"))
	if got != 2 {
		t.Errorf("stageTransitions = %v, want 2", got)
	}
	if v := testutil.ToFloat64(currentStage.WithLabelValues(bridge)); v != 1 {
		t.Errorf("currentStage = %v, want 1", v)
	}
	if m := GetBridgeMetrics(bridge); m == nil || m.Stage != "rx-timing-config" {
		t.Errorf("cached stage = %+v, want rx-timing-config", m)
	}
}

func TestRetryMetrics(t *testing.T) {
	bridge := "retry-test"
	defer DeleteBridgeMetrics(bridge)

	RecordRetry(bridge, "rx-timing-config", 1)
	RecordRetry(bridge, "rx-timing-config", 2)
	RecordFailure(bridge, "no-video")

	if v := testutil.ToFloat64(stageRetries.WithLabelValues(bridge, "rx-timing-config")); v != 2 {
		t.Errorf("stageRetries = %v, want 2", v)
	}
	if v := testutil.ToFloat64(retryCounter.WithLabelValues(bridge)); v != 2 {
		t.Errorf("retryCounter = %v, want 2", v)
	}
	if v := testutil.ToFloat64(stageFailures.WithLabelValues(bridge, "no-video")); v != 1 {
		t.Errorf("stageFailures = %v, want 1", v)
	}

	SetRetryCounter(bridge, 0)
	if m := GetBridgeMetrics(bridge); m.Retries != 0 {
		t.Errorf("cached retries = %d, want 0", m.Retries)
	}
}

func TestLinkAndClockMetrics(t *testing.T) {
	bridge := "link-test"
	defer DeleteBridgeMetrics(bridge)

	SetLinkUp(bridge, true)
	SetPixelClock(bridge, 148.5e6)
	SetBusAccesses(bridge, 1234)

	if v := testutil.ToFloat64(linkUp.WithLabelValues(bridge)); v != 1 {
		t.Errorf("linkUp = %v, want 1", v)
	}
	if v := testutil.ToFloat64(pixelClock.WithLabelValues(bridge)); v != 148.5e6 {
		t.Errorf("pixelClock = %v, want 148.5e6", v)
	}

	all := GetAllBridgeMetrics()
	m, ok := all[bridge]
	if !ok {
		t.Fatal("expected bridge in GetAllBridgeMetrics")
	}
	if !m.LinkUp || m.BusAccesses != 1234 {
		t.Errorf("cached metrics = %+v", m)
	}

	SetLinkUp(bridge, false)
	if v := testutil.ToFloat64(linkUp.WithLabelValues(bridge)); v != 0 {
		t.Errorf("linkUp = %v, want 0", v)
	}
}

func TestDeleteBridgeMetrics(t *testing.T) {
	bridge := "delete-test"
	SetLinkUp(bridge, true)
	DeleteBridgeMetrics(bridge)

	if GetBridgeMetrics(bridge) != nil {
		t.Error("expected cache entry removed")
	}

	// Delete non-existent should not panic
	DeleteBridgeMetrics("non-existent-bridge")
}
