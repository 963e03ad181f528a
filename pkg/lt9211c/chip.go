package lt9211c

import (
	"context"
	"time"
)

// Register banks. Names follow the block each bank controls.
const (
	bankSystem = 0x81 // resets, clock muxes, chip id
	bankPHY    = 0x82 // analog RX/TX PHY and PLLs
	bankRxDig  = 0x85 // RX digital, TX digital format
	bankVidChk = 0x86 // video check, frequency meter
	bankTxPLL  = 0x87 // TX PLL calibration
	bankMIPIRx = 0xd0 // MIPI RX controller, PCR
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Chip.
type Option func(*Chip)

// WithSleeper replaces the wall-clock sleeper used between register steps.
func WithSleeper(s Sleeper) Option {
	return func(c *Chip) {
		c.sleep = s
	}
}

// Chip is one LT9211C behind a Regmap.
type Chip struct {
	regs   *Regmap
	logger Logger
	sleep  Sleeper
}

// New returns a Chip talking over bus.
func New(bus Bus, logger Logger, opts ...Option) *Chip {
	c := &Chip{
		regs:   NewRegmap(bus),
		logger: logger,
		sleep:  SleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Regmap exposes the underlying register map.
func (c *Chip) Regmap() *Regmap {
	return c.regs
}

// Close stops all further bus traffic from this chip.
func (c *Chip) Close() {
	c.regs.Close()
}

// ChipID reads the three identification bytes.
func (c *Chip) ChipID() ([3]byte, error) {
	var id [3]byte
	buf, err := c.regs.ReadBulk(bankSystem, 0x00, len(id))
	if err != nil {
		return id, err
	}
	copy(id[:], buf)
	return id, nil
}

// SleepContext waits for d or until ctx is done. It is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
