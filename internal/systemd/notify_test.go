package systemd

import (
	"errors"
	"strings"
	"testing"
)

type recorder struct {
	states []string
	err    error
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.states = append(r.states, state)
	return true, nil
}

func TestNotifierReadyOnce(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{notify: rec.notify}

	if _, err := n.Ready("link up"); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	if _, err := n.Ready("link up again"); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}

	if len(rec.states) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(rec.states))
	}
	if !strings.HasPrefix(rec.states[0], "READY=1\n") || !strings.Contains(rec.states[0], "STATUS=link up") {
		t.Errorf("First notification must carry READY, got %q", rec.states[0])
	}
	if strings.Contains(rec.states[1], "READY=1") {
		t.Errorf("READY must be sent only once, got %q", rec.states[1])
	}
}

func TestNotifierStatusDeduplicates(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{notify: rec.notify}

	for _, s := range []string{"stage prepare", "stage prepare", "stage rx-timing-config"} {
		if _, err := n.Status(s); err != nil {
			t.Fatalf("Status failed: %v", err)
		}
	}
	if len(rec.states) != 2 {
		t.Errorf("Expected 2 status updates, got %v", rec.states)
	}
}

func TestNotifierErrors(t *testing.T) {
	n := &Notifier{notify: (&recorder{err: errors.New("socket gone")}).notify}

	if _, err := n.Ready("x"); err == nil {
		t.Error("Expected Ready error")
	}
	if _, err := n.Stopping(); err == nil {
		t.Error("Expected Stopping error")
	}
}

func TestNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := NewNotifier()

	sent, err := n.Ready("link up")
	if err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	if sent {
		t.Error("Nothing should be sent without NOTIFY_SOCKET")
	}
}

func TestLinkStateNeverSignalsReady(t *testing.T) {
	rec := &recorder{}
	n := &Notifier{notify: rec.notify}

	if _, err := n.LinkState("lt9211c-0", false); err != nil {
		t.Fatalf("LinkState failed: %v", err)
	}
	if _, err := n.Ready("serving"); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	if _, err := n.LinkState("lt9211c-0", true); err != nil {
		t.Fatalf("LinkState failed: %v", err)
	}

	want := []string{
		"STATUS=lt9211c-0: waiting for video",
		"READY=1\nSTATUS=serving",
		"STATUS=lt9211c-0: LVDS output running",
	}
	if len(rec.states) != len(want) {
		t.Fatalf("Expected %d notifications, got %q", len(want), rec.states)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("Notification %d = %q, want %q", i, rec.states[i], want[i])
		}
	}
}
