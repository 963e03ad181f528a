package lt9211c

import "periph.io/x/conn/v3/physic"

// PCRSetting configures the dessc-PLL and the fractional-N pixel clock
// recovery loop. M is the integer feedback ratio against the 25 MHz
// crystal, K the fractional part in 14-bit fixed point, and the limits bound
// how far the loop may move M while tracking.
type PCRSetting struct {
	Divider         uint32 `json:"divider"`
	DividerReg      uint8  `json:"divider_reg"`
	LowFreqPrescale bool   `json:"low_freq_prescale"`

	M         uint32 `json:"m"`
	K         uint32 `json:"k"`
	UpLimit   uint32 `json:"up_limit"`
	DownLimit uint32 `json:"down_limit"`
}

// ComputePCR derives dessc-PLL and PCR settings for a pixel clock in kHz.
func ComputePCR(pclkKHz uint32) PCRSetting {
	var s PCRSetting
	switch {
	case pclkKHz >= 352000:
		s.Divider, s.DividerReg = 2, 0x04
	case pclkKHz >= 176000:
		s.Divider, s.DividerReg = 2, 0x04
	case pclkKHz >= 88000:
		s.Divider, s.DividerReg = 4, 0x05
	case pclkKHz >= 44000:
		s.Divider, s.DividerReg = 8, 0x06
	case pclkKHz >= 22000:
		s.Divider, s.DividerReg = 16, 0x07
	default:
		s.Divider, s.DividerReg = 16, 0x07
		s.LowFreqPrescale = true
	}

	m := pclkKHz * s.Divider / 25
	s.K = (m % 1000) << 14
	s.M = m / 1000
	s.UpLimit = s.M + 1
	s.DownLimit = s.M - 1
	return s
}

// TxPLLSetting configures the LVDS TX PLL for a dual-port link.
type TxPLLSetting struct {
	PhyClockKHz uint32 `json:"phy_clock_khz"`

	PreDiv    uint8 `json:"pre_div"`
	PreDivReg uint8 `json:"pre_div_reg"`

	SerialDiv    uint8 `json:"serial_div"`
	SerialDivReg uint8 `json:"serial_div_reg"`

	PixelDiv    uint8 `json:"pixel_div"`
	PixelMuxReg uint8 `json:"pixel_mux_reg"`

	DivSet uint8 `json:"div_set"`
}

// PhyClock returns PhyClockKHz as a frequency.
func (s TxPLLSetting) PhyClock() physic.Frequency {
	return physic.Frequency(s.PhyClockKHz) * physic.KiloHertz
}

// ComputeTxPLL derives TX PLL dividers for a pixel clock in kHz. Two LVDS
// ports each carry half the pixels, so the PHY clock is pclk*7/2.
func ComputeTxPLL(pclkKHz uint32) (TxPLLSetting, error) {
	if pclkKHz == 0 {
		return TxPLLSetting{}, ErrInvalidClock
	}

	s := TxPLLSetting{PhyClockKHz: pclkKHz * 7 / 2}

	switch {
	case pclkKHz < 20000:
		s.PreDiv, s.PreDivReg = 1, 0x28
	case pclkKHz < 40000:
		s.PreDiv, s.PreDivReg = 1, 0x28
	case pclkKHz < 80000:
		s.PreDiv, s.PreDivReg = 2, 0x29
	case pclkKHz < 160000:
		s.PreDiv, s.PreDivReg = 4, 0x2a
	case pclkKHz < 320000:
		s.PreDiv, s.PreDivReg = 8, 0x2b
	default:
		s.PreDiv, s.PreDivReg = 16, 0x2f
	}

	switch {
	case s.PhyClockKHz >= 640000:
		s.SerialDiv, s.SerialDivReg = 1, 0x42
	case s.PhyClockKHz >= 320000:
		s.SerialDiv, s.SerialDivReg = 2, 0x02
	case s.PhyClockKHz >= 160000:
		s.SerialDiv, s.SerialDivReg = 4, 0x12
	case s.PhyClockKHz >= 80000:
		s.SerialDiv, s.SerialDivReg = 8, 0x22
	default:
		s.SerialDiv, s.SerialDivReg = 16, 0x32
	}

	if pclkKHz < 150000 {
		s.PixelDiv, s.PixelMuxReg = 7, 0x04
	} else {
		ratio := uint8(s.PhyClockKHz * uint32(s.SerialDiv) * 2 / (pclkKHz * 7))
		switch {
		case ratio <= 2:
			s.PixelDiv, s.PixelMuxReg = 7, 0x00
		case ratio <= 4:
			s.PixelDiv, s.PixelMuxReg = 14, 0x01
		case ratio <= 8:
			s.PixelDiv, s.PixelMuxReg = 28, 0x02
		default:
			s.PixelDiv, s.PixelMuxReg = 56, 0x03
		}
	}

	s.DivSet = uint8(s.PhyClockKHz * uint32(s.SerialDiv) / (pclkKHz / uint32(s.PreDiv)))
	return s, nil
}
