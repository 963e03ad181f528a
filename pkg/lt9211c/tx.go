package lt9211c

import (
	"context"
	"time"
)

// txPLL status bits in 0x87:0x39.
const (
	txPLLCalDone = 0x01
	txPLLLocked  = 0x04
)

// txPLLCalAttempts bounds the calibration done poll.
const txPLLCalAttempts = 4

// TxPhyPowerOff disables the LVDS TX PHY.
func (c *Chip) TxPhyPowerOff() error {
	return c.regs.WriteSequence(bankPHY, []RegValue{
		{0x36, 0x00},
		{0x37, 0x00},
	})
}

// TxPhyPowerOn enables both LVDS TX ports and releases the TX PHY reset.
func (c *Chip) TxPhyPowerOn() error {
	seq := []RegValue{
		{0x36, 0x03}, // port A and B enable
		{0x37, 0x44}, // port A/B ibias
		{0x38, 0x14},
		{0x39, 0x31},
		{0x3a, 0xc8},
		{0x3b, 0x00},
		{0x3c, 0x0f},
	}
	// lane swing, port A 0x46..0x4b, port B 0x4c..0x51
	for addr := uint8(0x46); addr <= 0x51; addr++ {
		seq = append(seq, RegValue{addr, 0x40})
	}
	if err := c.regs.WriteSequence(bankPHY, seq); err != nil {
		return err
	}
	return c.regs.WriteSequence(bankSystem, []RegValue{
		{0x03, 0xbf}, // mltx reset
		{0x03, 0xff},
	})
}

// TxSRAMSelect feeds the TX digital block from the pixel SRAM.
func (c *Chip) TxSRAMSelect() error {
	if err := c.regs.UpdateBits(bankRxDig, 0x30, 0xc0, 0); err != nil {
		return err
	}
	return c.regs.UpdateBits(bankRxDig, 0x30, 0, 0x40)
}

// TxSourceConfig selects the TX source and powers the TX PHY.
func (c *Chip) TxSourceConfig() error {
	if err := c.TxSRAMSelect(); err != nil {
		return err
	}
	return c.TxPhyPowerOn()
}

// MeasureClock runs the frequency meter against src and returns the count
// in kHz.
func (c *Chip) MeasureClock(ctx context.Context, src ClockSource) (uint32, error) {
	if err := c.regs.Write(bankVidChk, 0x90, uint8(src)); err != nil {
		return 0, err
	}
	if err := c.sleep(ctx, 5*time.Millisecond); err != nil {
		return 0, err
	}
	if err := c.regs.Write(bankVidChk, 0x90, uint8(src)|0x80); err != nil {
		return 0, err
	}
	buf, err := c.regs.ReadBulk(bankVidChk, 0x98, 3)
	if err != nil {
		return 0, err
	}
	freq := uint32(buf[0]&0x0f)<<16 | uint32(buf[1])<<8 | uint32(buf[2])

	if _, err := c.regs.Read(bankVidChk, 0x90); err != nil {
		return 0, err
	}
	// stop the meter with src kept in the low bits
	if err := c.regs.Write(bankVidChk, 0x90, uint8(src)|0x7f); err != nil {
		return 0, err
	}
	return freq, nil
}

// SetTxPLLReference takes the TX PLL reference from the dessc PLL.
func (c *Chip) SetTxPLLReference() error {
	return c.regs.Write(bankPHY, 0x30, 0x00)
}

// ConfigureTxPLL loads the divider setting produced by ComputeTxPLL.
func (c *Chip) ConfigureTxPLL(s TxPLLSetting) error {
	if err := c.regs.UpdateBits(bankRxDig, 0x6f, 0, 0x01); err != nil { // dual port
		return err
	}
	return c.regs.WriteSequence(bankPHY, []RegValue{
		{0x31, s.PreDivReg},
		{0x32, s.SerialDivReg},
		{0x33, s.PixelMuxReg},
		{0x34, 0x01},
		{0x35, s.DivSet},
	})
}

// CalibrateTxPLL resets the TX PLL, waits for the calibration done flag
// and reports ErrPLLUnlocked if the lock bit does not follow.
func (c *Chip) CalibrateTxPLL(ctx context.Context) error {
	if err := c.regs.Write(bankSystem, 0x0c, 0xfe); err != nil {
		return err
	}
	if err := c.sleep(ctx, time.Millisecond); err != nil {
		return err
	}
	if err := c.regs.Write(bankSystem, 0x0c, 0xff); err != nil {
		return err
	}

	for attempt := 1; attempt <= txPLLCalAttempts; attempt++ {
		err := c.regs.WriteSequence(bankTxPLL, []RegValue{
			{0x0f, 0x00},
			{0x0f, 0x01},
		})
		if err != nil {
			return err
		}
		if err := c.sleep(ctx, 20*time.Millisecond); err != nil {
			return err
		}
		v, err := c.regs.Read(bankTxPLL, 0x39)
		if err != nil {
			return err
		}
		if v&txPLLCalDone != 0 {
			break
		}
		c.logger.Debug("TX PLL calibration pending", "attempt", attempt)
	}

	v, err := c.regs.Read(bankTxPLL, 0x39)
	if err != nil {
		return err
	}
	if v&txPLLLocked == 0 {
		return ErrPLLUnlocked
	}
	return nil
}

// ReadOutputTiming restarts the video-check block and reads back the
// timing it measures on the output side.
func (c *Chip) ReadOutputTiming(ctx context.Context) (VideoTiming, error) {
	var t VideoTiming
	err := c.regs.WriteSequence(bankSystem, []RegValue{
		{0x0b, 0x7f}, // video check reset
		{0x0b, 0xff},
	})
	if err != nil {
		return t, err
	}
	if err := c.sleep(ctx, 80*time.Millisecond); err != nil {
		return t, err
	}

	// 0x50..0x63 holds ten big-endian 16-bit counters.
	buf, err := c.regs.ReadBulk(bankVidChk, 0x50, 0x14)
	if err != nil {
		return t, err
	}
	at := func(addr uint8) uint16 {
		i := addr - 0x50
		return uint16(buf[i])<<8 | uint16(buf[i+1])
	}
	t.HSyncLen = at(0x50)
	t.VSyncLen = at(0x52)
	t.HBackPorch = at(0x54)
	t.VBackPorch = at(0x56)
	t.HFrontPorch = at(0x58)
	t.VFrontPorch = at(0x5a)
	t.HActive = at(0x5c)
	t.VActive = at(0x5e)
	t.HTotal = at(0x60)
	t.VTotal = at(0x62)
	return t, nil
}

// TxDigitalSetup configures the LVDS output: dual port, VESA 8-bit
// mapping, the lane map and port swap, then pulses the TX digital reset.
func (c *Chip) TxDigitalSetup(ctx context.Context) error {
	if err := c.regs.UpdateBits(bankRxDig, 0x6f, 0, 0x90); err != nil { // dual port, sync
		return err
	}

	// VESA, DE mode, 8 bit
	if err := c.regs.UpdateBits(bankRxDig, 0x6e, 0x08, 0); err != nil {
		return err
	}
	if err := c.regs.UpdateBits(bankRxDig, 0x6f, 0x40, 0); err != nil {
		return err
	}
	if err := c.regs.UpdateBits(bankRxDig, 0x6f, 0, 0x04); err != nil {
		return err
	}
	if err := c.regs.Write(bankRxDig, 0x68, 0x00); err != nil {
		return err
	}

	err := c.regs.WriteSequence(bankRxDig, []RegValue{
		{0x4a, 0x01},
		{0x4b, 0x00},
		{0x4c, 0x10},
		{0x4d, 0x20},
		{0x4e, 0x50},
		{0x4f, 0x30},
		{0x50, 0x46},
		{0x51, 0x10},
		{0x52, 0x20},
		{0x53, 0x50},
		{0x54, 0x30},
		{0x55, 0x00},
		{0x56, 0x20},
	})
	if err != nil {
		return err
	}

	// port swap
	if err := c.regs.Write(bankRxDig, 0x4a, 0x01); err != nil {
		return err
	}
	v, err := c.regs.Read(bankRxDig, 0x50)
	if err != nil {
		return err
	}
	if err := c.regs.Write(bankRxDig, 0x50, v&0x40); err != nil {
		return err
	}

	if err := c.regs.Write(bankSystem, 0x08, 0x6f); err != nil {
		return err
	}
	if err := c.sleep(ctx, 2*time.Millisecond); err != nil {
		return err
	}
	return c.regs.Write(bankSystem, 0x08, 0x7f)
}
