// Package platform opens the board resources the bridge needs: the I2C
// device, the reset line and the optional reference clock enable.
package platform

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// ReferenceClock is the crystal the chip's frequency meter counts against.
const ReferenceClock = 25 * physic.MegaHertz

// Config names the board resources.
type Config struct {
	// I2CBus is an i2creg name; empty opens the first bus.
	I2CBus  string
	I2CAddr uint16

	ResetPin string
	// ClockEnablePin gates the reference oscillator. Empty means the clock
	// is always on.
	ClockEnablePin string
}

// drivers is the periph.io surface Open depends on.
type drivers struct {
	init    func() error
	openBus func(name string) (i2c.BusCloser, error)
	pin     func(name string) gpio.PinIO
}

var periphDrivers = drivers{
	init: func() error {
		_, err := host.Init()
		return err
	},
	openBus: i2creg.Open,
	pin:     gpioreg.ByName,
}

// Platform holds opened board resources until Close.
type Platform struct {
	bus         i2c.BusCloser
	dev         *i2c.Dev
	reset       gpio.PinIO
	clockEnable gpio.PinIO
	logger      *slog.Logger
}

// Open initializes the host drivers and acquires every resource. Any
// missing resource is an error and nothing is left open.
func Open(cfg Config, logger *slog.Logger) (*Platform, error) {
	return open(cfg, logger, periphDrivers)
}

func open(cfg Config, logger *slog.Logger, d drivers) (*Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.I2CAddr == 0 {
		cfg.I2CAddr = lt9211c.DefaultAddress
	}
	if cfg.ResetPin == "" {
		return nil, errors.New("platform: reset pin not configured")
	}

	if err := d.init(); err != nil {
		return nil, fmt.Errorf("initialize host drivers: %w", err)
	}

	bus, err := d.openBus(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", cfg.I2CBus, err)
	}

	p := &Platform{
		bus:    bus,
		dev:    &i2c.Dev{Bus: bus, Addr: cfg.I2CAddr},
		logger: logger,
	}

	p.reset = d.pin(cfg.ResetPin)
	if p.reset == nil {
		_ = bus.Close()
		return nil, fmt.Errorf("reset pin %q not found", cfg.ResetPin)
	}

	if cfg.ClockEnablePin != "" {
		p.clockEnable = d.pin(cfg.ClockEnablePin)
		if p.clockEnable == nil {
			_ = bus.Close()
			return nil, fmt.Errorf("clock enable pin %q not found", cfg.ClockEnablePin)
		}
		if err := p.clockEnable.Out(gpio.High); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("enable reference clock: %w", err)
		}
	}

	logger.Info("Platform resources opened",
		"i2c_bus", bus.String(),
		"i2c_addr", fmt.Sprintf("0x%02x", cfg.I2CAddr),
		"reset_pin", p.reset.Name(),
		"clock_enable", cfg.ClockEnablePin,
		"reference_clock", ReferenceClock.String())
	return p, nil
}

// Device is the chip's I2C endpoint. It satisfies lt9211c.Bus.
func (p *Platform) Device() *i2c.Dev {
	return p.dev
}

// Reset is the chip's active-low reset line.
func (p *Platform) Reset() gpio.PinIO {
	return p.reset
}

// Close gates the reference clock and releases the bus.
func (p *Platform) Close() error {
	var errs []error
	if p.clockEnable != nil {
		if err := p.clockEnable.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("disable reference clock: %w", err))
		}
	}
	if err := p.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
	}
	return errors.Join(errs...)
}
