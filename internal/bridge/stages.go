package bridge

import (
	"context"
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"

	"github.com/smazurov/lvdsbridge/internal/events"
	"github.com/smazurov/lvdsbridge/internal/metrics"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// prepare resets the chip and powers up the RX side. It always advances;
// anything it could not do shows up as an RX timing failure.
func (b *Bridge) prepare(ctx context.Context) transition {
	b.mu.Lock()
	b.dc.retries = 0
	b.dc.input = nil
	b.dc.timing = nil
	b.dc.output = nil
	b.dc.pclkKHz = 0
	b.mu.Unlock()
	metrics.SetRetryCounter(b.cfg.Name, 0)

	if err := b.pulseReset(ctx); err != nil {
		if ctx.Err() != nil {
			return transition{next: StagePrepare, action: actionDone, err: err}
		}
		b.logger.Warn("Reset pulse failed", "error", err)
	}

	id, err := b.chip.ChipID()
	if err != nil {
		b.logger.Warn("Failed to read chip id", "error", err)
	} else {
		b.mu.Lock()
		b.dc.chipID = &id
		b.mu.Unlock()
		b.logger.Info("Chip id", "id", fmt.Sprintf("%02x%02x%02x", id[0], id[1], id[2]))
	}

	if err := b.chip.RxSourceConfig(b.link.Lanes(), b.link.Burst()); err != nil {
		b.logger.Warn("RX source config failed", "error", err)
	}
	if err := b.chip.TxPhyPowerOff(); err != nil {
		b.logger.Warn("TX PHY power off failed", "error", err)
	}
	return advance(StageRxTimingConfig)
}

// pulseReset drives the active-low reset line.
func (b *Bridge) pulseReset(ctx context.Context) error {
	if err := b.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	if err := b.sleep(ctx, b.cfg.ResetPulse); err != nil {
		return err
	}
	if err := b.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}
	return b.sleep(ctx, b.cfg.ResetPulse)
}

// rxTimingConfig measures the DSI stream and selects a timing. This is
// where an absent source keeps the bridge retrying.
func (b *Bridge) rxTimingConfig(ctx context.Context) transition {
	desc, err := b.chip.DetectRx()
	var timing lt9211c.VideoTiming
	if err == nil {
		timing, err = b.chip.SelectTiming(ctx, desc)
	}
	if ctx.Err() != nil {
		return transition{next: StageRxTimingConfig, action: actionDone, err: ctx.Err()}
	}

	b.mu.Lock()
	if !b.currentLocked() {
		b.mu.Unlock()
		return transition{next: StageRxTimingConfig, action: actionDone, err: err}
	}
	b.dc.input = &desc
	if err == nil {
		b.dc.timing = &timing
		b.backoff.Reset()
		b.mu.Unlock()

		b.logger.Info("RX timing detected", "timing", timing.String(), "format", desc.Format.String())
		b.publish(events.BridgeTimingDetectedEvent{
			Bridge:        b.cfg.Name,
			Width:         timing.HActive,
			Height:        timing.VActive,
			FrameRate:     timing.FrameRate,
			PixelClockKHz: timing.PixelClockKHz,
			Format:        desc.Format.String(),
			Timestamp:     timestamp(),
		})
		return advance(StageRxPllConfig)
	}

	b.dc.retries++
	// RGB888 seen: the source is converging, not stuck
	if desc.Format == lt9211c.FormatRGB888 {
		b.dc.retries = 0
	}
	next := StageRxTimingConfig
	if b.dc.retries > b.cfg.RetryLimit {
		b.logger.Warn("RX timing retry limit exceeded, reinitializing", "retries", b.dc.retries)
		next = StagePrepare
	}
	b.mu.Unlock()

	return b.retry(next, err)
}

// rxPllConfig locks the dessc PLL to the selected pixel clock.
func (b *Bridge) rxPllConfig(ctx context.Context) transition {
	b.mu.Lock()
	timing := b.dc.timing
	b.mu.Unlock()
	if timing == nil {
		return b.retry(StageRxTimingConfig, errors.New("no RX timing selected"))
	}

	pcr := lt9211c.ComputePCR(timing.PixelClockKHz)
	b.logger.Debug("PCR setting", "pclk_khz", timing.PixelClockKHz, "divider", pcr.Divider, "m", pcr.M, "k", pcr.K)

	if err := b.chip.ConfigureDesscPLL(ctx, pcr); err != nil {
		return b.retry(StageRxTimingConfig, err)
	}
	if err := b.chip.CalibratePCR(ctx, timing.PixelClockKHz, b.link.Burst(), b.cfg.PCR); err != nil {
		if errors.Is(err, lt9211c.ErrPCRUnstable) {
			b.logger.Warn("PCR calibration failed", "attempts", b.cfg.PCR.Attempts)
		}
		return b.retry(StageRxTimingConfig, err)
	}
	if err := b.chip.VideoCheckClockSource(lt9211c.ClockDesscPLLPixel); err != nil {
		return b.retry(StageRxTimingConfig, err)
	}
	if err := b.chip.VideoCheckSource(); err != nil {
		return b.retry(StageRxTimingConfig, err)
	}

	b.waitVideoCheckStable()

	if err := b.chip.TxSourceConfig(); err != nil {
		return b.retry(StageRxTimingConfig, err)
	}
	return advance(StageTxVideoConfig)
}

// waitVideoCheckStable spins on the video check flag without sleeping.
// Running out of polls is logged and bring-up continues.
func (b *Bridge) waitVideoCheckStable() bool {
	for i := 1; i <= b.cfg.VideoCheckSpin; i++ {
		stable, err := b.chip.VideoCheckStable()
		if err == nil && stable {
			b.logger.Info("MIPI RX video stable", "polls", i)
			return true
		}
		b.logger.Debug("MIPI RX video unstable", "poll", i, "error", err)
	}
	b.logger.Warn("MIPI RX video check did not settle, continuing", "polls", b.cfg.VideoCheckSpin)
	return false
}

// txVideoConfig measures the recovered pixel clock and locks the TX PLL.
func (b *Bridge) txVideoConfig(ctx context.Context) transition {
	pclk, err := b.chip.MeasureClock(ctx, lt9211c.ClockADDesscPLLPixel)
	if err != nil {
		return b.retry(StageTxVideoConfig, err)
	}
	b.mu.Lock()
	b.dc.pclkKHz = pclk
	b.mu.Unlock()
	metrics.SetPixelClock(b.cfg.Name, float64(pclk)*1000)

	if err := b.chip.SetTxPLLReference(); err != nil {
		return b.retry(StageTxVideoConfig, err)
	}
	setting, err := lt9211c.ComputeTxPLL(pclk)
	if err != nil {
		return b.retry(StageTxVideoConfig, err)
	}
	b.logger.Debug("TX PLL setting", "pclk_khz", pclk, "phy_clock", setting.PhyClock().String(),
		"prediv", setting.PreDiv, "serial_div", setting.SerialDiv, "pixel_div", setting.PixelDiv, "div_set", setting.DivSet)

	if err := b.chip.ConfigureTxPLL(setting); err != nil {
		return b.retry(StageTxVideoConfig, err)
	}
	if err := b.chip.CalibrateTxPLL(ctx); err != nil {
		if errors.Is(err, lt9211c.ErrPLLUnlocked) {
			b.logger.Warn("TX PLL unlocked", "pclk_khz", pclk)
		}
		return b.retry(StageTxVideoConfig, err)
	}
	b.logger.Info("TX PLL locked", "pclk_khz", pclk)
	return advance(StageTxVideoOut)
}

// txVideoOut reads the timing the chip actually measures and starts the
// LVDS output.
func (b *Bridge) txVideoOut(ctx context.Context) transition {
	out, err := b.chip.ReadOutputTiming(ctx)
	if err != nil {
		return b.retry(StageTxVideoOut, err)
	}
	if err := b.chip.TxDigitalSetup(ctx); err != nil {
		return b.retry(StageTxVideoOut, err)
	}

	b.mu.Lock()
	if !b.currentLocked() {
		b.mu.Unlock()
		return transition{next: StageTxVideoOut, action: actionDone}
	}
	out.PixelClockKHz = b.dc.pclkKHz
	if b.dc.timing != nil {
		out.FrameRate = b.dc.timing.FrameRate
	}
	b.dc.output = &out
	b.dc.linkUp = true
	b.mu.Unlock()

	b.logger.Info("LVDS output running", "timing", out.String())
	b.publishLink(true)
	return transition{next: StageTxVideoOut, action: actionDone}
}

// retry turns a stage failure into a delayed re-entry at next. The delay
// and the retry event are filled in by tick once the result is known to
// belong to the current run.
func (b *Bridge) retry(next Stage, err error) transition {
	return transition{next: next, action: actionReschedule, err: err}
}

// recordRetry reports a rescheduled failure.
func (b *Bridge) recordRetry(tr transition, retries int) {
	reason := failureReason(tr.err)
	metrics.RecordFailure(b.cfg.Name, reason)
	metrics.RecordRetry(b.cfg.Name, tr.next.String(), retries)
	b.logger.Debug("Stage failed, rescheduling", "next", tr.next.String(), "retries", retries, "delay", tr.delay, "reason", reason, "error", tr.err)

	b.publish(events.BridgeRetryEvent{
		Bridge:    b.cfg.Name,
		Stage:     tr.next.String(),
		Retries:   retries,
		Delay:     tr.delay.String(),
		Error:     fmt.Sprint(tr.err),
		Timestamp: timestamp(),
	})
}
