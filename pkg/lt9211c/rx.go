package lt9211c

import (
	"context"
	"time"
)

// ClockSource selects what the video-check block and frequency meter count.
type ClockSource uint8

// Clock sources. The AD_ prefixed ones are analog-domain taps for the
// frequency meter; the rest feed the video-check block.
const (
	ClockRxPLLPixel      ClockSource = 0x00
	ClockDesscPLLPixel   ClockSource = 0x01
	ClockRxPLLDecDDR     ClockSource = 0x02
	ClockMLRxByte        ClockSource = 0x03
	ClockADMLTxRead      ClockSource = 0x08
	ClockADMLTxWrite     ClockSource = 0x09
	ClockADDesscPLLPixel ClockSource = 0x10
	ClockADDesscPLLPCR   ClockSource = 0x14
	ClockADMLRxAByte     ClockSource = 0x18
	ClockADRxPLLPixel    ClockSource = 0x1a
	ClockADMLRxBByte     ClockSource = 0x1e
)

// pcrStableMask is set in 0xd0:0x87 once PCR has locked to the stream.
const pcrStableMask = 0x18

// RxPhyPowerOn powers the MIPI RX PHY on port A. lanes other than 4 are
// written into the lane-count field; burst selects the clock lane setup
// for burst-mode DSI.
func (c *Chip) RxPhyPowerOn(lanes int, burst bool) error {
	v, err := c.regs.Read(bankMIPIRx, 0x00)
	if err != nil {
		return err
	}
	if lanes != 4 {
		v |= uint8(lanes)
	}
	if err := c.regs.Write(bankMIPIRx, 0x00, v); err != nil {
		return err
	}

	err = c.regs.WriteSequence(bankPHY, []RegValue{
		{0x01, 0x11}, // port A and B off
		{0x18, 0x48}, // port A clk delay
		{0x01, 0x91}, // port A on
		{0x02, 0x00}, // mipi mode, no swap
		{0x03, 0xee}, // eq current reference
		{0x09, 0x21}, // link clk from port A
		{0x04, 0x44},
		{0x05, 0xc4}, // clk lane eq
		{0x06, 0x44},
		{0x13, 0x0c}, // clk lane rterm, hs enable
	})
	if err != nil {
		return err
	}
	if burst {
		if err := c.regs.Write(bankPHY, 0x13, 0x00); err != nil {
			return err
		}
	}

	err = c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x01, 0x00}, // data lane term enable time
		{0x02, 0x0e}, // hs settle
		{0x05, 0x00}, // clk lane term enable time
		{0x0a, 0x59},
		{0x0b, 0x20},
	})
	if err != nil {
		return err
	}
	return c.regs.WriteSequence(bankSystem, []RegValue{
		{0x09, 0xde}, // dphy reset
		{0x09, 0xdf},
	})
}

// RxClockSelect routes the system and RX clocks for port A.
func (c *Chip) RxClockSelect() error {
	if err := c.regs.Write(bankRxDig, 0xe9, 0x88); err != nil { // sys clk from xtal
		return err
	}
	err := c.regs.WriteSequence(bankSystem, []RegValue{
		{0x80, 0x51}, // sram clocks, video check from dessc pix clk
		{0x81, 0x10}, // byte clk from port A, pixel clk from dessc
	})
	if err != nil {
		return err
	}
	return c.regs.Write(bankVidChk, 0x32, 0x03) // video check over 3 frames
}

// VideoCheckClockSource selects the clock the video-check block runs on.
func (c *Chip) VideoCheckClockSource(src ClockSource) error {
	if err := c.regs.UpdateBits(bankSystem, 0x80, 0x03, 0); err != nil {
		return err
	}
	return c.regs.UpdateBits(bankSystem, 0x80, 0, uint8(src))
}

// VideoCheckSource points the video-check block at the MIPI debug tap.
func (c *Chip) VideoCheckSource() error {
	v, err := c.regs.Read(bankVidChk, 0x80)
	if err != nil {
		return err
	}
	return c.regs.WriteSequence(bankVidChk, []RegValue{
		{0x3f, 0xf8 & v},
		{0x3f, 0x05},
	})
}

// ActiveRxSelect makes MIPI RX the active input.
func (c *Chip) ActiveRxSelect() error {
	if err := c.regs.UpdateBits(bankRxDig, 0x30, 0x07, 0); err != nil {
		return err
	}
	if err := c.regs.UpdateBits(bankRxDig, 0x30, 0, 0x01); err != nil {
		return err
	}
	return c.regs.UpdateBits(bankRxDig, 0x30, 0, 0x10)
}

// RxDigitalSetup selects DSI input and the port A/B lane mapping.
func (c *Chip) RxDigitalSetup() error {
	err := c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x04, 0x00}, // DSI
		{0x21, 0x46}, // hsync level for pcr adjust
	})
	if err != nil {
		return err
	}
	return c.regs.WriteSequence(bankRxDig, []RegValue{
		{0x3f, 0x08}, // HS/LP control
		{0x40, 0x04}, // port A ch0..ch3 from ch4..ch1
		{0x41, 0x03},
		{0x42, 0x02},
		{0x43, 0x01},
		{0x45, 0x04}, // port B ch0..ch3 from ch9..ch6
		{0x46, 0x03},
		{0x47, 0x02},
		{0x48, 0x01},
		{0x44, 0x00},
		{0x49, 0x00},
	})
}

// RxSourceConfig runs the full RX bring-up for the given lane setup.
func (c *Chip) RxSourceConfig(lanes int, burst bool) error {
	steps := []func() error{
		func() error { return c.RxPhyPowerOn(lanes, burst) },
		c.RxClockSelect,
		func() error { return c.VideoCheckClockSource(ClockMLRxByte) },
		c.VideoCheckSource,
		c.ActiveRxSelect,
		c.RxDigitalSetup,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// SetRxTiming programs the RX timing generator.
func (c *Chip) SetRxTiming(t VideoTiming) error {
	return c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x0d, uint8(t.VTotal >> 8)},
		{0x0e, uint8(t.VTotal)},
		{0x0f, uint8(t.VActive >> 8)},
		{0x10, uint8(t.VActive)},
		{0x15, uint8(t.VSyncLen)},
		{0x17, uint8(t.VFrontPorch >> 8)},
		{0x18, uint8(t.VFrontPorch)},
		{0x11, uint8(t.HTotal >> 8)},
		{0x12, uint8(t.HTotal)},
		{0x13, uint8(t.HActive >> 8)},
		{0x14, uint8(t.HActive)},
		{0x4c, uint8(t.HSyncLen)},
		{0x19, uint8(t.HFrontPorch >> 8)},
		{0x1a, uint8(t.HFrontPorch)},
	})
}

// ConfigureDesscPLL programs the dessc-PLL divider and the PCR sigma-delta
// coefficients, then pulses the PLL reset.
func (c *Chip) ConfigureDesscPLL(ctx context.Context, s PCRSetting) error {
	seq := []RegValue{
		{0x26, 0x20}, // xtal reference, pll powered
		{0x27, 0x40}, // prediv 0
		{0x2f, s.DividerReg},
	}
	if s.LowFreqPrescale {
		seq = append(seq, RegValue{0x2c, 0x01})
	}
	if err := c.regs.WriteSequence(bankPHY, seq); err != nil {
		return err
	}

	err := c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x08, 0x00}, // mipi rx sdm
		{0x26, 0x80 | uint8(s.M)},
		{0x2d, uint8(s.UpLimit)},
		{0x31, uint8(s.DownLimit)},
		{0x27, uint8(s.K >> 16)},
		{0x28, uint8(s.K >> 8)},
		{0x29, uint8(s.K)},
	})
	if err != nil {
		return err
	}
	if err := c.regs.UpdateBits(bankMIPIRx, 0x26, 0x80, 0); err != nil {
		return err
	}

	if err := c.regs.Write(bankSystem, 0x03, 0xfe); err != nil {
		return err
	}
	if err := c.sleep(ctx, time.Millisecond); err != nil {
		return err
	}
	return c.regs.Write(bankSystem, 0x03, 0xff)
}

// PCRPolicy bounds CalibratePCR's wait for lock.
type PCRPolicy struct {
	Interval time.Duration
	Attempts int
}

// DefaultPCRPolicy polls every 500ms, 50 times.
var DefaultPCRPolicy = PCRPolicy{Interval: 500 * time.Millisecond, Attempts: 50}

// CalibratePCR loads the PCR tracking parameters, releases PCR from reset
// and waits for the stable flags. It returns ErrPCRUnstable when the
// polling budget runs out.
func (c *Chip) CalibratePCR(ctx context.Context, pclkKHz uint32, burst bool, policy PCRPolicy) error {
	err := c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x0c, 0x60}, // fifo position
		{0x1c, 0x60},
		{0x24, 0x70}, // pcr mode: de, hs, vs
		{0x2d, 0x30}, // M up limit
		{0x31, 0x0a}, // M down limit

		// stage 1, hs mode
		{0x25, 0xf0}, // line limit
		{0x2a, 0x30}, // step in limit
		{0x21, 0x4f}, // hs step
		{0x22, 0x00},

		// stage 2, hs mode
		{0x1e, 0x01},
		{0x23, 0x80},

		// stage 2, de mode
		{0x0a, 0x02},
		{0x38, 0x02}, // de thresholds
		{0x39, 0x04},
		{0x3a, 0x08},
		{0x3b, 0x10},
		{0x3f, 0x04}, // de steps
		{0x40, 0x08},
		{0x41, 0x10},
		{0x42, 0x20},

		{0x2b, 0xa0}, // stable out

		// hardware pcr_m
		{0x26, 0x97},
		{0x26, 0x17},
		{0x27, 0x0f},
	})
	if err != nil {
		return err
	}
	err = c.regs.WriteSequence(bankSystem, []RegValue{
		{0x20, 0xbf}, // pcr reset
		{0x20, 0xff},
	})
	if err != nil {
		return err
	}
	if err := c.sleep(ctx, 5*time.Millisecond); err != nil {
		return err
	}

	delay := uint8(0x40)
	if pclkKHz < 44000 && !burst {
		delay = 0x60
	}
	err = c.regs.WriteSequence(bankSystem, []RegValue{
		{0x0b, 0x6f},
		{0x0b, 0xff},
		{0x0c, delay}, // sram read delay
		{0x1b, 0x00}, // pcr write delay
		{0x1c, delay},
		{0x09, 0xdb}, // pcr reset
		{0x09, 0xdf},
	})
	if err != nil {
		return err
	}
	err = c.regs.WriteSequence(bankMIPIRx, []RegValue{
		{0x08, 0x80},
		{0x08, 0x00},
	})
	if err != nil {
		return err
	}
	if err := c.sleep(ctx, 10*time.Millisecond); err != nil {
		return err
	}

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := c.sleep(ctx, policy.Interval); err != nil {
			return err
		}
		m, err := c.regs.Read(bankMIPIRx, 0x94)
		if err != nil {
			return err
		}
		status, err := c.regs.Read(bankMIPIRx, 0x87)
		if err != nil {
			return err
		}
		if status&pcrStableMask == pcrStableMask {
			c.logger.Info("PCR stable", "attempt", attempt, "m", m&0x7f)
			return nil
		}
		c.logger.Debug("PCR unstable", "attempt", attempt, "m", m&0x7f)
	}
	return ErrPCRUnstable
}

// VideoCheckStable reports whether the video-check block sees a stable
// frame.
func (c *Chip) VideoCheckStable() (bool, error) {
	v, err := c.regs.Read(bankVidChk, 0x40)
	if err != nil {
		return false, err
	}
	return v&0x01 == 0x01, nil
}
