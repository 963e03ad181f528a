package bridge

import "testing"

func TestModesAdvertisesDefaultTiming(t *testing.T) {
	h := newHarness(t)

	modes := h.bridge.Modes()
	if len(modes) != 1 {
		t.Fatalf("Expected one mode, got %d", len(modes))
	}
	m := modes[0]
	if !m.Preferred || !m.Driver {
		t.Error("Mode must be flagged preferred and driver-provided")
	}
	if m.Name != "1920x1080" || m.HActive != 1920 || m.VActive != 1080 || m.FrameRate != 60 {
		t.Errorf("Unexpected mode %+v", m)
	}
	if m.PixelClockKHz != 148500 {
		t.Errorf("Expected 148500 kHz, got %d", m.PixelClockKHz)
	}
	if m.WidthMM != 698 || m.HeightMM != 393 {
		t.Errorf("Unexpected panel size %dx%d mm", m.WidthMM, m.HeightMM)
	}
}

func TestModesIgnoreDetectedTiming(t *testing.T) {
	h := newHarness(t)
	h.fake.SetBytes(bankMIPIRx, 0x82, 0x0f, 0x00, 0x0a, 0x02, 0xd0) // 1280x720
	h.fake.SetBytes(bankVidChk, 0x43, 0x06, 0x5b, 0x9b)
	h.start(t)
	waitFor(t, "timing detected", func() bool { return h.bridge.Status().Timing != nil })

	if got := h.bridge.Modes()[0]; got.HActive != 1920 {
		t.Errorf("Modes must not follow the live timing, got %dx%d", got.HActive, got.VActive)
	}
}

func TestModeValidAcceptsAnything(t *testing.T) {
	h := newHarness(t)

	for _, m := range []Mode{{}, h.bridge.Modes()[0], {Name: "640x480"}} {
		if err := h.bridge.ModeValid(m); err != nil {
			t.Errorf("ModeValid(%q) = %v, want nil", m.Name, err)
		}
	}
}
