package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// PLLResult is what the pll command reports for one pixel clock.
type PLLResult struct {
	PixelClockKHz uint32               `json:"pixel_clock_khz"`
	Timing        *lt9211c.VideoTiming `json:"timing,omitempty"`
	PCR           lt9211c.PCRSetting   `json:"pcr"`
	TxPLL         lt9211c.TxPLLSetting `json:"tx_pll"`
}

// CreatePLLCmd creates the pll command.
func CreatePLLCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pll <pixel-clock | WIDTHxHEIGHT@RATE>",
		Short: "Compute PCR and TX PLL settings for a pixel clock",
		Long: `Computes the dessc-PLL/PCR and LVDS TX PLL register values the bridge would program. ` +
			`The argument is a pixel clock ("148.5MHz", "148500" in kHz) or a mode from the timing table ("1920x1080@60").`,
		Example: "  lvdsbridge pll 1920x1080@60\n  lvdsbridge pll 74.25MHz --json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := computePLL(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if res.Timing != nil {
				fmt.Fprintf(out, "mode:        %s\n", res.Timing)
			}
			pclk := physic.Frequency(res.PixelClockKHz) * physic.KiloHertz
			fmt.Fprintf(out, "pixel clock: %s\n", pclk)
			fmt.Fprintf(out, "pcr:         div=%d (0x%02x) m=%d k=0x%05x limits=%d..%d prescale=%t\n",
				res.PCR.Divider, res.PCR.DividerReg, res.PCR.M, res.PCR.K,
				res.PCR.DownLimit, res.PCR.UpLimit, res.PCR.LowFreqPrescale)
			fmt.Fprintf(out, "tx pll:      phy=%s prediv=%d serial=%d pixel=%d divset=%d\n",
				res.TxPLL.PhyClock(), res.TxPLL.PreDiv, res.TxPLL.SerialDiv,
				res.TxPLL.PixelDiv, res.TxPLL.DivSet)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print settings as JSON")
	return cmd
}

func computePLL(arg string) (PLLResult, error) {
	var res PLLResult

	if strings.Contains(arg, "x") {
		t, err := parseMode(arg)
		if err != nil {
			return res, err
		}
		res.Timing = &t
		res.PixelClockKHz = t.PixelClockKHz
	} else {
		khz, err := parseClockKHz(arg)
		if err != nil {
			return res, err
		}
		res.PixelClockKHz = khz
	}

	tx, err := lt9211c.ComputeTxPLL(res.PixelClockKHz)
	if err != nil {
		return res, fmt.Errorf("pixel clock %q: %w", arg, err)
	}
	res.TxPLL = tx
	res.PCR = lt9211c.ComputePCR(res.PixelClockKHz)
	return res, nil
}

// parseMode looks up "1920x1080@60"; the rate defaults to 60.
func parseMode(s string) (lt9211c.VideoTiming, error) {
	size, rate, ok := strings.Cut(s, "@")
	if !ok {
		rate = "60"
	}
	ws, hs, ok := strings.Cut(size, "x")
	if !ok {
		return lt9211c.VideoTiming{}, fmt.Errorf("invalid mode %q", s)
	}
	w, err := strconv.ParseUint(ws, 10, 16)
	if err != nil {
		return lt9211c.VideoTiming{}, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	h, err := strconv.ParseUint(hs, 10, 16)
	if err != nil {
		return lt9211c.VideoTiming{}, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	r, err := strconv.ParseUint(rate, 10, 8)
	if err != nil {
		return lt9211c.VideoTiming{}, fmt.Errorf("invalid rate in %q: %w", s, err)
	}
	return lt9211c.LookupTiming(uint16(w), uint16(h), uint8(r))
}

// parseClockKHz accepts a bare number in kHz or a physic frequency string.
func parseClockKHz(s string) (uint32, error) {
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}
	var f physic.Frequency
	if err := f.Set(s); err != nil {
		return 0, fmt.Errorf("invalid pixel clock %q: %w", s, err)
	}
	return uint32(f / physic.KiloHertz), nil
}
