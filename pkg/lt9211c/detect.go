package lt9211c

import (
	"context"
	"fmt"
)

// minActive is the smallest width or height treated as real video.
const minActive = 400

// refClockHz is the crystal the frame timer counts against.
const refClockHz = 25000000

// Format is the pixel format code the RX controller reports.
type Format uint8

// Pixel format codes.
const (
	FormatDSIYUV422_10 Format = 0x01
	FormatYUV422_12    Format = 0x02
	FormatYUV422_8     Format = 0x03
	FormatRGB10        Format = 0x04
	FormatRGB12        Format = 0x05
	FormatYUV420_8     Format = 0x06
	FormatRGB565       Format = 0x07
	FormatRGB666       Format = 0x08
	FormatRGB666Loose  Format = 0x09
	FormatRGB888       Format = 0x0a
	FormatRAW8         Format = 0x0b
	FormatRAW10        Format = 0x0c
	FormatRAW12        Format = 0x0d
	FormatCSIYUV422_10 Format = 0x0e
)

// widthRatio converts a word count into active pixels as wc*num/den.
type widthRatio struct {
	name     string
	bpp      uint8
	num, den uint32
}

var formatRatios = map[Format]widthRatio{
	FormatDSIYUV422_10: {"DSI-YUV422-10", 20, 5, 2},
	FormatCSIYUV422_10: {"CSI-YUV422-10", 20, 5, 2},
	FormatYUV422_12:    {"YUV422-12", 24, 1, 3},
	FormatYUV422_8:     {"YUV422-8", 16, 1, 2},
	FormatRGB10:        {"RGB-10", 30, 15, 4},
	FormatRGB12:        {"RGB-12", 36, 9, 2},
	FormatYUV420_8:     {"YUV420-8", 24, 1, 3},
	FormatRGB888:       {"RGB-8", 24, 1, 3},
	FormatRGB565:       {"RGB565", 16, 1, 2},
	FormatRGB666:       {"RGB666", 18, 9, 4},
	FormatRGB666Loose:  {"RGB666-loose", 18, 9, 4},
	FormatRAW8:         {"RAW8", 8, 1, 1},
	FormatRAW10:        {"RAW10", 10, 5, 4},
	FormatRAW12:        {"RAW12", 12, 3, 2},
}

// unknown codes are treated as 24 bpp
var defaultRatio = widthRatio{"unknown", 24, 1, 3}

func (f Format) ratio() widthRatio {
	if r, ok := formatRatios[f]; ok {
		return r
	}
	return defaultRatio
}

// BitsPerPixel returns the packing depth assumed for f.
func (f Format) BitsPerPixel() uint8 {
	return f.ratio().bpp
}

func (f Format) String() string {
	return fmt.Sprintf("%s(0x%02x)", f.ratio().name, uint8(f))
}

// ActiveWidth converts a word count into active pixels for format f. The
// result is truncated to 16 bits like the hardware line counters.
func ActiveWidth(f Format, wordCount uint16) uint16 {
	r := f.ratio()
	return uint16(uint32(wordCount) * r.num / r.den)
}

// LaneSOT is one data lane's start-of-transmission counter pair.
type LaneSOT struct {
	Count uint8
	Data  uint8
}

// RxVideoDescriptor is what the RX controller reports about the incoming
// stream.
type RxVideoDescriptor struct {
	WordCount    uint16     `json:"word_count"`
	ActiveWidth  uint16     `json:"active_width"`
	ActiveHeight uint16     `json:"active_height"`
	Format       Format     `json:"format"`
	LanePacking  uint8      `json:"lane_packing"`
	LaneSOT      [4]LaneSOT `json:"-"`
}

// DetectRx measures the incoming DSI stream. The SOT counters are read
// first because the read cycle latches the values that follow. A stream
// smaller than 400x400 is reported as *NoVideoError; the returned
// descriptor is filled as far as the reads got.
func (c *Chip) DetectRx() (RxVideoDescriptor, error) {
	var desc RxVideoDescriptor

	for lane := range desc.LaneSOT {
		addr := uint8(0x88 + 2*lane)
		n, err := c.regs.Read(bankMIPIRx, addr)
		if err != nil {
			return desc, err
		}
		d, err := c.regs.Read(bankMIPIRx, addr+1)
		if err != nil {
			return desc, err
		}
		desc.LaneSOT[lane] = LaneSOT{Count: n, Data: d}
	}

	// hs settle
	if err := c.regs.Write(bankMIPIRx, 0x02, 0x0a); err != nil {
		return desc, err
	}

	buf, err := c.regs.ReadBulk(bankMIPIRx, 0x82, 5)
	if err != nil {
		return desc, err
	}
	desc.WordCount = uint16(buf[0])<<8 | uint16(buf[1])
	desc.Format = Format(buf[2] & 0x0f)
	desc.ActiveHeight = uint16(buf[3])<<8 | uint16(buf[4])

	desc.LanePacking, err = c.regs.Read(bankMIPIRx, 0x9c)
	if err != nil {
		return desc, err
	}

	desc.ActiveWidth = ActiveWidth(desc.Format, desc.WordCount)
	c.logger.Debug("RX stream sampled",
		"word_count", desc.WordCount,
		"hactive", desc.ActiveWidth,
		"vactive", desc.ActiveHeight,
		"format", desc.Format.String(),
		"lane_packing", desc.LanePacking)

	if desc.ActiveWidth < minActive || desc.ActiveHeight < minActive {
		return desc, &NoVideoError{Desc: desc}
	}
	return desc, nil
}

// FrameRate reads the frame timer and converts it to Hz, rounded to the
// nearest integer. A stopped timer reads as 0 Hz.
func (c *Chip) FrameRate() (uint8, error) {
	buf, err := c.regs.ReadBulk(bankVidChk, 0x43, 3)
	if err != nil {
		return 0, err
	}
	frameTime := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	if frameTime == 0 {
		return 0, nil
	}
	return uint8((refClockHz*2/frameTime + 1) / 2), nil
}

// SelectTiming reads the frame rate, looks the descriptor up in the timing
// table and programs the RX timing generator with the match.
func (c *Chip) SelectTiming(ctx context.Context, desc RxVideoDescriptor) (VideoTiming, error) {
	if err := ctx.Err(); err != nil {
		return VideoTiming{}, err
	}
	rate, err := c.FrameRate()
	if err != nil {
		return VideoTiming{}, err
	}
	c.logger.Debug("RX frame rate measured", "frame_rate", rate)

	timing, err := LookupTiming(desc.ActiveWidth, desc.ActiveHeight, rate)
	if err != nil {
		return VideoTiming{}, err
	}
	if err := c.SetRxTiming(timing); err != nil {
		return VideoTiming{}, err
	}
	return timing, nil
}
