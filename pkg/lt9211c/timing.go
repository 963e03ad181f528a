package lt9211c

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// frameRateTolerance is how far the measured frame rate may stray from a
// table entry and still match it. The RX frame timer jitters by a few Hz.
const frameRateTolerance = 3

// VideoTiming describes one video mode in pixels and lines.
type VideoTiming struct {
	HFrontPorch uint16 `json:"hfront_porch"`
	HSyncLen    uint16 `json:"hsync_len"`
	HBackPorch  uint16 `json:"hback_porch"`
	HActive     uint16 `json:"hactive"`
	HTotal      uint16 `json:"htotal"`

	VFrontPorch uint16 `json:"vfront_porch"`
	VSyncLen    uint16 `json:"vsync_len"`
	VBackPorch  uint16 `json:"vback_porch"`
	VActive     uint16 `json:"vactive"`
	VTotal      uint16 `json:"vtotal"`

	FrameRate     uint8  `json:"frame_rate"`
	PixelClockKHz uint32 `json:"pixel_clock_khz"`
}

// PixelClock returns PixelClockKHz as a frequency.
func (t VideoTiming) PixelClock() physic.Frequency {
	return physic.Frequency(t.PixelClockKHz) * physic.KiloHertz
}

func (t VideoTiming) String() string {
	return fmt.Sprintf("%dx%d@%dHz (%dx%d total, %s)", t.HActive, t.VActive, t.FrameRate, t.HTotal, t.VTotal, t.PixelClock())
}

// tableTiming computes the pixel clock from totals and the nominal rate.
func tableTiming(hfp, hsync, hbp, hact, htotal, vfp, vsync, vbp, vact, vtotal uint16, rate uint8) VideoTiming {
	return VideoTiming{
		HFrontPorch: hfp, HSyncLen: hsync, HBackPorch: hbp, HActive: hact, HTotal: htotal,
		VFrontPorch: vfp, VSyncLen: vsync, VBackPorch: vbp, VActive: vact, VTotal: vtotal,
		FrameRate:     rate,
		PixelClockKHz: uint32(htotal) * uint32(vtotal) * uint32(rate) / 1000,
	}
}

// supportedTimings is scanned in order; earlier rows win ties.
var supportedTimings = [...]VideoTiming{
	tableTiming(24, 96, 40, 640, 800, 33, 2, 10, 480, 525, 60),
	tableTiming(16, 62, 60, 720, 858, 9, 6, 30, 480, 525, 60),
	tableTiming(12, 64, 88, 720, 864, 5, 5, 39, 576, 625, 50),
	tableTiming(48, 128, 88, 800, 1056, 1, 4, 23, 600, 628, 60),
	tableTiming(110, 40, 220, 1280, 1650, 5, 5, 20, 720, 750, 30),
	tableTiming(440, 40, 220, 1280, 1980, 5, 5, 20, 720, 750, 50),
	tableTiming(110, 40, 220, 1280, 1650, 5, 5, 20, 720, 750, 60),
	tableTiming(24, 136, 160, 1024, 1344, 3, 6, 29, 768, 806, 60),
	tableTiming(26, 110, 110, 1366, 1592, 13, 6, 13, 768, 800, 60),
	tableTiming(110, 40, 220, 1280, 1650, 5, 5, 20, 720, 750, 30),
	tableTiming(48, 32, 80, 1920, 2080, 5, 5, 20, 720, 750, 60),
	tableTiming(48, 112, 248, 1280, 1688, 1, 3, 38, 1024, 1066, 60),
	tableTiming(88, 44, 148, 1920, 2200, 4, 5, 36, 1080, 1125, 30),
	tableTiming(88, 44, 148, 1920, 2200, 4, 5, 36, 1080, 1125, 60),
	tableTiming(88, 44, 148, 1920, 2200, 4, 5, 36, 1080, 1125, 90),
	tableTiming(64, 192, 304, 1600, 2160, 1, 3, 46, 1200, 1250, 60),
	tableTiming(48, 32, 80, 1920, 2080, 3, 6, 26, 1200, 1235, 60),
	tableTiming(32, 48, 80, 2048, 2208, 6, 3, 28, 1280, 1317, 60),
	tableTiming(50, 48, 80, 2304, 2482, 6, 3, 32, 1440, 1481, 60),
	tableTiming(48, 32, 80, 2560, 2720, 3, 5, 33, 1440, 1481, 60),
	tableTiming(1276, 88, 296, 3840, 5500, 8, 10, 72, 2160, 2250, 24),
}

// SupportedTimings returns a copy of the timing table in priority order.
func SupportedTimings() []VideoTiming {
	out := make([]VideoTiming, len(supportedTimings))
	copy(out, supportedTimings[:])
	return out
}

// DefaultTiming is the 1080p60 mode advertised to the display pipeline
// before anything has been measured.
func DefaultTiming() VideoTiming {
	return VideoTiming{
		HFrontPorch: 88, HSyncLen: 44, HBackPorch: 148, HActive: 1920, HTotal: 2200,
		VFrontPorch: 4, VSyncLen: 5, VBackPorch: 36, VActive: 1080, VTotal: 1125,
		FrameRate:     60,
		PixelClockKHz: 148500,
	}
}

// LookupTiming returns the first table entry whose active size equals
// width x height and whose nominal frame rate is within ±3 Hz of rate,
// boundaries included. The result carries the observed rate but a pixel
// clock computed from the nominal one.
func LookupTiming(width, height uint16, rate uint8) (VideoTiming, error) {
	for _, t := range supportedTimings {
		if t.HActive != width || t.VActive != height {
			continue
		}
		if int(rate) < int(t.FrameRate)-frameRateTolerance || int(rate) > int(t.FrameRate)+frameRateTolerance {
			continue
		}
		t.FrameRate = rate
		return t, nil
	}
	return VideoTiming{}, &NoMatchingModeError{Width: width, Height: height, FrameRate: rate}
}
