package lt9211c

import (
	"errors"
	"fmt"
)

var (
	// ErrDefer marks failures that should be retried later rather than
	// treated as fatal. Every bus error satisfies errors.Is(err, ErrDefer).
	ErrDefer = errors.New("lt9211c: deferred, retry later")

	// ErrNoVideo means the RX side sees no usable stream yet.
	ErrNoVideo = errors.New("lt9211c: no incoming video")

	// ErrNoMatchingMode means the detected resolution and frame rate are not
	// in the supported timing table.
	ErrNoMatchingMode = errors.New("lt9211c: no matching video mode")

	// ErrPCRUnstable means pixel clock recovery did not settle within the
	// polling budget.
	ErrPCRUnstable = errors.New("lt9211c: pcr not stable")

	// ErrPLLUnlocked means the LVDS TX PLL did not report lock.
	ErrPLLUnlocked = errors.New("lt9211c: tx pll unlocked")

	// ErrInvalidClock is returned when a divider computation is given a zero
	// pixel clock.
	ErrInvalidClock = errors.New("lt9211c: invalid pixel clock")

	// ErrDetached is returned by a closed Regmap. No bus traffic happens.
	ErrDetached = errors.New("lt9211c: device detached")
)

// TransportError wraps a failed bus transaction.
type TransportError struct {
	Op   string
	Bank uint8
	Addr uint8
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lt9211c: %s bank 0x%02x addr 0x%02x: %v", e.Op, e.Bank, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports every transport failure as deferrable.
func (e *TransportError) Is(target error) bool {
	return target == ErrDefer
}

// NoVideoError carries what the detector saw when it gave up.
type NoVideoError struct {
	Desc RxVideoDescriptor
}

func (e *NoVideoError) Error() string {
	return fmt.Sprintf("lt9211c: no video (active %dx%d, format 0x%02x)", e.Desc.ActiveWidth, e.Desc.ActiveHeight, e.Desc.Format)
}

// Is matches ErrNoVideo and ErrDefer.
func (e *NoVideoError) Is(target error) bool {
	return target == ErrNoVideo || target == ErrDefer
}

// NoMatchingModeError is returned by LookupTiming.
type NoMatchingModeError struct {
	Width     uint16
	Height    uint16
	FrameRate uint8
}

func (e *NoMatchingModeError) Error() string {
	return fmt.Sprintf("lt9211c: no supported timing for %dx%d@%dHz", e.Width, e.Height, e.FrameRate)
}

// Is matches ErrNoMatchingMode.
func (e *NoMatchingModeError) Is(target error) bool {
	return target == ErrNoMatchingMode
}
