package bridge

import (
	"errors"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// ErrNotAttached is returned by Enable before a successful Attach.
var ErrNotAttached = errors.New("bridge: DSI host not attached")

// failureReason maps a stage error to a metrics label.
func failureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, lt9211c.ErrNoVideo):
		return "no-video"
	case errors.Is(err, lt9211c.ErrNoMatchingMode):
		return "no-matching-mode"
	case errors.Is(err, lt9211c.ErrPCRUnstable):
		return "pcr-unstable"
	case errors.Is(err, lt9211c.ErrPLLUnlocked):
		return "pll-unlocked"
	case errors.Is(err, lt9211c.ErrInvalidClock):
		return "invalid-clock"
	case errors.Is(err, lt9211c.ErrDetached):
		return "detached"
	case errors.Is(err, lt9211c.ErrDefer):
		return "transport"
	default:
		return "other"
	}
}
