package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"

	"github.com/smazurov/lvdsbridge/internal/logging"
	"github.com/smazurov/lvdsbridge/internal/platform"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var (
		cfg       platform.Config
		addr      uint16
		noReset   bool
		logJSON   bool
		logDebug  bool
		lanes     int
		burst     bool
		resetTime time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Read the chip ID and measure the incoming DSI stream",
		Long: `Opens the I2C bus and reset line, pulses reset, reads the LT9211C chip ID and runs one ` +
			`RX detection pass. Does not start the bring-up state machine; useful while wiring a board.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			if logDebug {
				loggingConfig.Level = "debug"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("platform")

			cfg.I2CAddr = addr
			p, err := platform.Open(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := p.Close(); closeErr != nil {
					logger.Warn("Failed to release platform resources", "error", closeErr)
				}
			}()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if !noReset {
				if err := pulseReset(ctx, p.Reset(), resetTime); err != nil {
					return err
				}
			}

			chip := lt9211c.New(p.Device(), logging.GetLogger("chip"))
			return probe(cmd, chip, lanes, burst)
		},
	}

	cmd.Flags().StringVar(&cfg.I2CBus, "i2c-bus", "", "I2C bus name (empty opens the first bus)")
	cmd.Flags().Uint16Var(&addr, "i2c-address", lt9211c.DefaultAddress, "7-bit I2C address")
	cmd.Flags().StringVar(&cfg.ResetPin, "reset-pin", "GPIO5", "Reset GPIO name")
	cmd.Flags().StringVar(&cfg.ClockEnablePin, "clock-enable-pin", "", "Reference clock enable GPIO name")
	cmd.Flags().BoolVar(&noReset, "no-reset", false, "Skip the reset pulse")
	cmd.Flags().DurationVar(&resetTime, "reset-time", 60*time.Millisecond, "Reset assert and settle time")
	cmd.Flags().IntVar(&lanes, "lanes", 4, "DSI data lanes")
	cmd.Flags().BoolVar(&burst, "burst", true, "DSI burst mode")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.Flags().BoolVar(&logDebug, "debug", false, "Log register traffic")

	return cmd
}

func pulseReset(ctx context.Context, pin gpio.PinOut, d time.Duration) error {
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	if err := lt9211c.SleepContext(ctx, d); err != nil {
		return err
	}
	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return lt9211c.SleepContext(ctx, d)
}

// probe reads the chip ID then configures RX and measures one frame.
// Missing video is reported, not returned as an error.
func probe(cmd *cobra.Command, chip *lt9211c.Chip, lanes int, burst bool) error {
	out := cmd.OutOrStdout()

	id, err := chip.ChipID()
	if err != nil {
		return fmt.Errorf("read chip id: %w", err)
	}
	fmt.Fprintf(out, "chip id:  %02x %02x %02x\n", id[0], id[1], id[2])

	if err := chip.RxSourceConfig(lanes, burst); err != nil {
		return fmt.Errorf("rx source config: %w", err)
	}

	desc, err := chip.DetectRx()
	switch {
	case errors.Is(err, lt9211c.ErrNoVideo):
		fmt.Fprintf(out, "input:    no video (%dx%d)\n", desc.ActiveWidth, desc.ActiveHeight)
		return nil
	case err != nil:
		return fmt.Errorf("detect rx: %w", err)
	}
	fmt.Fprintf(out, "input:    %dx%d %s wc=%d\n", desc.ActiveWidth, desc.ActiveHeight, desc.Format, desc.WordCount)

	rate, err := chip.FrameRate()
	if err != nil {
		return fmt.Errorf("frame rate: %w", err)
	}
	fmt.Fprintf(out, "rate:     %d Hz\n", rate)

	t, err := lt9211c.LookupTiming(desc.ActiveWidth, desc.ActiveHeight, rate)
	if err != nil {
		fmt.Fprintf(out, "timing:   %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "timing:   %s\n", t)
	return nil
}
