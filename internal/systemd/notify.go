package systemd

import (
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"
)

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier reports service readiness and status to systemd via sd_notify.
// Outside a Type=notify unit every call is a no-op.
type Notifier struct {
	mu     sync.Mutex
	notify notifyFunc
	ready  bool
	status string
}

// NewNotifier returns a notifier bound to $NOTIFY_SOCKET.
func NewNotifier() *Notifier {
	return &Notifier{notify: daemon.SdNotify}
}

// Ready sends READY=1 once; later calls only update STATUS.
func (n *Notifier) Ready(status string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state := fmt.Sprintf("STATUS=%s", status)
	if !n.ready {
		state = daemon.SdNotifyReady + "\n" + state
	}
	sent, err := n.notify(false, state)
	if err != nil {
		return false, fmt.Errorf("sd_notify ready: %w", err)
	}
	if sent {
		n.ready = true
	}
	n.status = status
	return sent, nil
}

// Status updates the free-form STATUS line shown by systemctl status.
// Repeated identical values are not resent.
func (n *Notifier) Status(status string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if status == n.status {
		return false, nil
	}
	sent, err := n.notify(false, "STATUS="+status)
	if err != nil {
		return false, fmt.Errorf("sd_notify status: %w", err)
	}
	n.status = status
	return sent, nil
}

// Stopping sends STOPPING=1.
func (n *Notifier) Stopping() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sent, err := n.notify(false, daemon.SdNotifyStopping)
	if err != nil {
		return false, fmt.Errorf("sd_notify stopping: %w", err)
	}
	return sent, nil
}

// LinkState reports the LVDS link in STATUS. It never sends READY=1:
// readiness means the daemon is serving, not that a source is present.
func (n *Notifier) LinkState(bridge string, up bool) (bool, error) {
	if up {
		return n.Status(fmt.Sprintf("%s: LVDS output running", bridge))
	}
	return n.Status(fmt.Sprintf("%s: waiting for video", bridge))
}
