package led

import (
	"log/slog"
	"os"
	"testing"
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctrl := New(logger)
	if ctrl == nil {
		t.Fatal("New() returned nil")
	}
	if ctrl.Available() == nil {
		t.Error("Available() returned nil")
	}
	if ctrl.Patterns() == nil {
		t.Error("Patterns() returned nil")
	}
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model     string
		wantSysfs bool
		statusLED string
	}{
		{"FriendlyElec NanoPC-T6", true, "sys_led"},
		{"Xunlong Orange Pi 5 Plus", true, "green_led"},
		{"Raspberry Pi 4 Model B Rev 1.4", true, "ACT"},
		{"unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			ctrl := forModel(tt.model, nil)
			s, ok := ctrl.(*sysfs)
			if ok != tt.wantSysfs {
				t.Fatalf("forModel(%q) sysfs = %v, want %v", tt.model, ok, tt.wantSysfs)
			}
			if ok && s.leds[StatusLED] != tt.statusLED {
				t.Errorf("Status LED = %q, want %q", s.leds[StatusLED], tt.statusLED)
			}
		})
	}
}

func TestDetectBoard(t *testing.T) {
	if model := detectBoard(); model == "" {
		t.Error("detectBoard() returned empty string")
	}
}
