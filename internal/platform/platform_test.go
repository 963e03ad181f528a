package platform

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

func testDrivers(bus *i2ctest.Playback, pins map[string]*gpiotest.Pin) drivers {
	return drivers{
		init: func() error { return nil },
		openBus: func(string) (i2c.BusCloser, error) {
			if bus == nil {
				return nil, errors.New("no bus")
			}
			return bus, nil
		},
		pin: func(name string) gpio.PinIO {
			if p, ok := pins[name]; ok {
				return p
			}
			return nil
		},
	}
}

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: lt9211c.DefaultAddress, W: []byte{0xff, 0x81}},
			{Addr: lt9211c.DefaultAddress, W: []byte{0x00}, R: []byte{0x18}},
		},
	}
	reset := &gpiotest.Pin{N: "GPIO5"}
	clk := &gpiotest.Pin{N: "GPIO6"}

	p, err := open(Config{ResetPin: "GPIO5", ClockEnablePin: "GPIO6"}, logger,
		testDrivers(bus, map[string]*gpiotest.Pin{"GPIO5": reset, "GPIO6": clk}))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if p.Reset() != reset {
		t.Error("Reset() did not return the configured pin")
	}
	if clk.Read() != gpio.High {
		t.Error("Reference clock should be enabled")
	}
	if p.Device().Addr != lt9211c.DefaultAddress {
		t.Errorf("Expected address 0x%02x, got 0x%02x", lt9211c.DefaultAddress, p.Device().Addr)
	}

	// The device talks to the chip address on the opened bus.
	if err := p.Device().Tx([]byte{0xff, 0x81}, nil); err != nil {
		t.Fatalf("bank select failed: %v", err)
	}
	r := make([]byte, 1)
	if err := p.Device().Tx([]byte{0x00}, r); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if r[0] != 0x18 {
		t.Errorf("Expected 0x18, got 0x%02x", r[0])
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if clk.Read() != gpio.Low {
		t.Error("Reference clock should be gated after Close")
	}
}

func TestOpenFailures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pins := map[string]*gpiotest.Pin{"GPIO5": {N: "GPIO5"}}

	tests := []struct {
		name string
		cfg  Config
		bus  *i2ctest.Playback
	}{
		{"no reset pin configured", Config{}, &i2ctest.Playback{}},
		{"missing bus", Config{ResetPin: "GPIO5"}, nil},
		{"unknown reset pin", Config{ResetPin: "GPIO99"}, &i2ctest.Playback{}},
		{"unknown clock pin", Config{ResetPin: "GPIO5", ClockEnablePin: "GPIO98"}, &i2ctest.Playback{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := open(tt.cfg, logger, testDrivers(tt.bus, pins)); err == nil {
				t.Error("Expected open to fail")
			}
		})
	}
}

func TestOpenHostInitFailure(t *testing.T) {
	d := testDrivers(&i2ctest.Playback{}, nil)
	d.init = func() error { return errors.New("no drivers") }

	if _, err := open(Config{ResetPin: "GPIO5"}, nil, d); err == nil {
		t.Error("Expected host init failure to propagate")
	}
}
