package lt9211c

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTxPhyPower(t *testing.T) {
	chip, fake, _ := newTestChip(t)

	if err := chip.TxPhyPowerOn(); err != nil {
		t.Fatalf("TxPhyPowerOn failed: %v", err)
	}
	if v := fake.Get(bankPHY, 0x36); v != 0x03 {
		t.Errorf("Expected both ports enabled, got 0x%02x", v)
	}
	for addr := uint8(0x46); addr <= 0x51; addr++ {
		if v := fake.Get(bankPHY, addr); v != 0x40 {
			t.Errorf("Expected swing 0x40 at 0x82:0x%02x, got 0x%02x", addr, v)
		}
	}
	if got := fake.WritesTo(bankSystem, 0x03); !equalBytes(got, []uint8{0xbf, 0xff}) {
		t.Errorf("Expected mltx reset pulse, got %x", got)
	}

	if err := chip.TxPhyPowerOff(); err != nil {
		t.Fatalf("TxPhyPowerOff failed: %v", err)
	}
	if fake.Get(bankPHY, 0x36) != 0 || fake.Get(bankPHY, 0x37) != 0 {
		t.Error("Expected TX PHY registers cleared")
	}
}

func TestTxSourceConfig(t *testing.T) {
	chip, fake, _ := newTestChip(t)
	fake.Set(bankRxDig, 0x30, 0xd1)

	if err := chip.TxSourceConfig(); err != nil {
		t.Fatalf("TxSourceConfig failed: %v", err)
	}
	if v := fake.Get(bankRxDig, 0x30); v != 0x51 {
		t.Errorf("Expected 0x85:0x30 = 0x51, got 0x%02x", v)
	}
}

func TestMeasureClock(t *testing.T) {
	chip, fake, rec := newTestChip(t)
	fake.SetBytes(bankVidChk, 0x98, 0xf2, 0x44, 0x14)

	khz, err := chip.MeasureClock(context.Background(), ClockADDesscPLLPixel)
	if err != nil {
		t.Fatalf("MeasureClock failed: %v", err)
	}
	if khz != 148500 {
		t.Errorf("Expected 148500 kHz, got %d", khz)
	}
	if got := fake.WritesTo(bankVidChk, 0x90); !equalBytes(got, []uint8{0x10, 0x90, 0x7f}) {
		t.Errorf("Expected meter writes 10 90 7f, got %x", got)
	}
	if rec.count(5*time.Millisecond) != 1 {
		t.Errorf("Expected one 5ms settle, got %v", rec.sleeps)
	}
}

func TestConfigureTxPLL(t *testing.T) {
	chip, fake, _ := newTestChip(t)
	s, _ := ComputeTxPLL(148500)

	if err := chip.SetTxPLLReference(); err != nil {
		t.Fatalf("SetTxPLLReference failed: %v", err)
	}
	if err := chip.ConfigureTxPLL(s); err != nil {
		t.Fatalf("ConfigureTxPLL failed: %v", err)
	}
	want := map[uint8]uint8{0x30: 0x00, 0x31: 0x2a, 0x32: 0x02, 0x33: 0x04, 0x34: 0x01, 0x35: 28}
	for addr, v := range want {
		if got := fake.Get(bankPHY, addr); got != v {
			t.Errorf("0x82:0x%02x = 0x%02x, expected 0x%02x", addr, got, v)
		}
	}
	if v := fake.Get(bankRxDig, 0x6f); v != 0x01 {
		t.Errorf("Expected dual port bit set, got 0x%02x", v)
	}
}

func TestCalibrateTxPLL(t *testing.T) {
	tests := []struct {
		name      string
		status    []uint8
		wantErr   error
		wantPolls int
	}{
		{"locks on second poll", []uint8{0x00, 0x05}, nil, 2},
		{"done but unlocked", []uint8{0x01}, ErrPLLUnlocked, 1},
		{"never done", []uint8{0x00}, ErrPLLUnlocked, 4},
		{"locked without done flag", []uint8{0x04}, nil, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip, fake, rec := newTestChip(t)
			fake.Script(bankTxPLL, 0x39, tt.status...)

			err := chip.CalibrateTxPLL(context.Background())
			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if n := rec.count(20 * time.Millisecond); n != tt.wantPolls {
				t.Errorf("Expected %d polls, got %d", tt.wantPolls, n)
			}
			if got := fake.WritesTo(bankSystem, 0x0c); !equalBytes(got, []uint8{0xfe, 0xff}) {
				t.Errorf("Expected TX PLL reset pulse, got %x", got)
			}
			if n := len(fake.WritesTo(bankTxPLL, 0x0f)); n != 2*tt.wantPolls {
				t.Errorf("Expected %d calibration toggles, got %d", 2*tt.wantPolls, n)
			}
		})
	}
}

func TestReadOutputTiming(t *testing.T) {
	chip, fake, rec := newTestChip(t)
	fake.SetBytes(bankVidChk, 0x50,
		0x00, 0x2c, // hsync 44
		0x00, 0x05, // vsync 5
		0x00, 0x94, // hbp 148
		0x00, 0x24, // vbp 36
		0x00, 0x58, // hfp 88
		0x00, 0x04, // vfp 4
		0x07, 0x80, // hactive 1920
		0x04, 0x38, // vactive 1080
		0x08, 0x98, // htotal 2200
		0x04, 0x65, // vtotal 1125
	)

	got, err := chip.ReadOutputTiming(context.Background())
	if err != nil {
		t.Fatalf("ReadOutputTiming failed: %v", err)
	}
	want := DefaultTiming()
	want.FrameRate = 0
	want.PixelClockKHz = 0
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if rec.count(80*time.Millisecond) != 1 {
		t.Errorf("Expected one 80ms settle, got %v", rec.sleeps)
	}
	if w := fake.WritesTo(bankSystem, 0x0b); !equalBytes(w, []uint8{0x7f, 0xff}) {
		t.Errorf("Expected video check reset pulse, got %x", w)
	}
}

func TestTxDigitalSetup(t *testing.T) {
	chip, fake, _ := newTestChip(t)
	fake.Set(bankRxDig, 0x6e, 0xff)
	fake.Set(bankRxDig, 0x6f, 0x41)

	if err := chip.TxDigitalSetup(context.Background()); err != nil {
		t.Fatalf("TxDigitalSetup failed: %v", err)
	}
	if v := fake.Get(bankRxDig, 0x6e); v != 0xf7 {
		t.Errorf("Expected sync mode 0xf7, got 0x%02x", v)
	}
	if v := fake.Get(bankRxDig, 0x6f); v != 0x95 {
		t.Errorf("Expected 0x85:0x6f = 0x95, got 0x%02x", v)
	}
	if got := fake.WritesTo(bankRxDig, 0x50); !equalBytes(got, []uint8{0x46, 0x40}) {
		t.Errorf("Expected port swap writes 46 40, got %x", got)
	}
	if got := fake.WritesTo(bankSystem, 0x08); !equalBytes(got, []uint8{0x6f, 0x7f}) {
		t.Errorf("Expected TX software reset pulse, got %x", got)
	}
}
