package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"periph.io/x/conn/v3/gpio"

	"github.com/smazurov/lvdsbridge/internal/events"
	"github.com/smazurov/lvdsbridge/internal/metrics"
	"github.com/smazurov/lvdsbridge/internal/workqueue"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Link is the upstream DSI host attachment. Attach may fail with an error
// matching lt9211c.ErrDefer while the host is not ready.
type Link interface {
	Attach() error
	Detach() error
	Lanes() int
	Burst() bool
}

// Publisher receives bridge events.
type Publisher interface {
	Publish(ev events.Event)
}

// Config tunes the bring-up policy.
type Config struct {
	// Name labels events and metrics.
	Name string

	// RetryLimit is how many RX timing failures are tolerated before a
	// full re-init from StagePrepare.
	RetryLimit int

	// PCR bounds the pixel clock recovery lock wait.
	PCR lt9211c.PCRPolicy

	// VideoCheckSpin bounds the video-check-stable poll. There is no sleep
	// between polls.
	VideoCheckSpin int

	// ResetPulse is both the reset assert time and the settle time after
	// release.
	ResetPulse time.Duration

	// RetryMinDelay and RetryMaxDelay bound the re-entry backoff.
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration

	PanelWidthMM  uint32
	PanelHeightMM uint32
}

// DefaultConfig returns the reference bring-up policy.
func DefaultConfig() Config {
	return Config{
		Name:           "lt9211c-0",
		RetryLimit:     30,
		PCR:            lt9211c.DefaultPCRPolicy,
		VideoCheckSpin: 50,
		ResetPulse:     60 * time.Millisecond,
		RetryMinDelay:  10 * time.Millisecond,
		RetryMaxDelay:  time.Second,
		PanelWidthMM:   698,
		PanelHeightMM:  393,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = d.RetryLimit
	}
	if c.PCR.Interval <= 0 {
		c.PCR.Interval = d.PCR.Interval
	}
	if c.PCR.Attempts <= 0 {
		c.PCR.Attempts = d.PCR.Attempts
	}
	if c.VideoCheckSpin <= 0 {
		c.VideoCheckSpin = d.VideoCheckSpin
	}
	if c.ResetPulse <= 0 {
		c.ResetPulse = d.ResetPulse
	}
	if c.RetryMinDelay <= 0 {
		c.RetryMinDelay = d.RetryMinDelay
	}
	if c.RetryMaxDelay < c.RetryMinDelay {
		c.RetryMaxDelay = max(d.RetryMaxDelay, c.RetryMinDelay)
	}
	if c.PanelWidthMM == 0 {
		c.PanelWidthMM = d.PanelWidthMM
	}
	if c.PanelHeightMM == 0 {
		c.PanelHeightMM = d.PanelHeightMM
	}
	return c
}

// Options holds everything New needs.
type Options struct {
	Config Config
	Chip   *lt9211c.Chip
	Reset  gpio.PinOut
	Link   Link
	Logger *slog.Logger
	Events Publisher

	// Sleep replaces wall-clock waits in the reset pulse.
	Sleep lt9211c.Sleeper
}

// driverContext is the per-bridge state the stage machine resumes from.
type driverContext struct {
	stage       Stage
	epoch       uint64
	retries     int
	transitions uint64

	input      *lt9211c.RxVideoDescriptor
	timing     *lt9211c.VideoTiming
	output     *lt9211c.VideoTiming
	pclkKHz    uint32
	chipID     *[3]byte
	linkUp     bool
	enabled    bool
	lastErr    error
	lastChange time.Time
}

// Bridge drives one LT9211C from reset to running LVDS output.
type Bridge struct {
	cfg    Config
	chip   *lt9211c.Chip
	reset  gpio.PinOut
	link   Link
	logger *slog.Logger
	events Publisher
	sleep  lt9211c.Sleeper

	work *workqueue.Work

	mu       sync.Mutex
	dc       driverContext
	backoff  *backoff.Backoff
	attached bool
	detached bool
	// runEpoch is the epoch the worker is executing stages for.
	runEpoch uint64
}

// New validates the collaborators and returns an idle bridge. Missing
// hardware handles are construction errors.
func New(opts *Options) (*Bridge, error) {
	if opts == nil || opts.Chip == nil {
		return nil, errors.New("bridge: chip is required")
	}
	if opts.Reset == nil {
		return nil, errors.New("bridge: reset pin is required")
	}
	if opts.Link == nil {
		return nil, errors.New("bridge: DSI link is required")
	}

	cfg := opts.Config.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = lt9211c.SleepContext
	}

	b := &Bridge{
		cfg:    cfg,
		chip:   opts.Chip,
		reset:  opts.Reset,
		link:   opts.Link,
		logger: logger.With("bridge", cfg.Name),
		events: opts.Events,
		sleep:  sleep,
		backoff: &backoff.Backoff{
			Min:    cfg.RetryMinDelay,
			Max:    cfg.RetryMaxDelay,
			Factor: 2,
			Jitter: false,
		},
	}
	b.dc.lastChange = time.Now()
	b.work = workqueue.New(b.tick)
	return b, nil
}

// Name returns the configured instance name.
func (b *Bridge) Name() string {
	return b.cfg.Name
}

// Config returns the effective configuration.
func (b *Bridge) Config() Config {
	return b.cfg
}

// Attach connects the upstream DSI host. A host that is not ready yet is
// reported as an error matching lt9211c.ErrDefer.
func (b *Bridge) Attach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.detached {
		return lt9211c.ErrDetached
	}
	if b.attached {
		return nil
	}
	if err := b.link.Attach(); err != nil {
		return fmt.Errorf("attach DSI host: %w", err)
	}
	b.attached = true
	b.logger.Info("DSI host attached", "lanes", b.link.Lanes(), "burst", b.link.Burst())
	return nil
}

// Enable restarts bring-up from StagePrepare. It returns immediately; the
// stages run on the bridge's worker.
func (b *Bridge) Enable() error {
	b.mu.Lock()
	if b.detached {
		b.mu.Unlock()
		return lt9211c.ErrDetached
	}
	if !b.attached {
		b.mu.Unlock()
		return fmt.Errorf("enable: %w", ErrNotAttached)
	}

	from := b.dc.stage
	wasUp := b.dc.linkUp
	b.dc.epoch++
	b.dc.enabled = true
	b.dc.linkUp = false
	b.backoff.Reset()
	ev := b.setStageLocked(from, StagePrepare)
	b.mu.Unlock()

	b.publish(ev)
	if wasUp {
		b.publishLink(false)
	}

	b.work.Cancel()
	b.work.Schedule(0)
	b.logger.Info("Bridge enabled", "from_stage", from.String())
	return nil
}

// Disable is a no-op; the chip keeps running.
func (b *Bridge) Disable() {
	b.logger.Debug("Bridge disable ignored")
}

// Detach stops the stage machine, waits for a running invocation,
// releases the register map and detaches the DSI host. It is idempotent.
func (b *Bridge) Detach() error {
	b.mu.Lock()
	if b.detached {
		b.mu.Unlock()
		return nil
	}
	b.detached = true
	b.mu.Unlock()

	b.work.Stop()
	b.chip.Close()

	b.mu.Lock()
	wasUp := b.dc.linkUp
	b.dc.linkUp = false
	b.dc.enabled = false
	attached := b.attached
	b.attached = false
	b.mu.Unlock()

	if wasUp {
		b.publishLink(false)
	}
	metrics.SetBusAccesses(b.cfg.Name, b.chip.Regmap().Accesses())

	if attached {
		if err := b.link.Detach(); err != nil {
			return fmt.Errorf("detach DSI host: %w", err)
		}
	}
	b.logger.Info("Bridge detached")
	return nil
}

// currentLocked reports whether the worker's run is still the live one.
func (b *Bridge) currentLocked() bool {
	return !b.detached && b.dc.epoch == b.runEpoch
}

// tick is the workqueue entry point. It runs stages from the saved one
// until a stage yields.
func (b *Bridge) tick(ctx context.Context) {
	b.mu.Lock()
	epoch := b.dc.epoch
	b.runEpoch = epoch
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if b.detached || b.dc.epoch != epoch {
			b.mu.Unlock()
			return
		}
		stage := b.dc.stage
		b.mu.Unlock()

		tr := b.step(ctx, stage)
		if ctx.Err() != nil {
			return
		}

		b.mu.Lock()
		if !b.currentLocked() {
			// Enable or Detach raced with this stage; the result is dropped
			b.mu.Unlock()
			return
		}
		b.dc.lastErr = tr.err
		retries := b.dc.retries
		if tr.action == actionReschedule {
			tr.delay = b.backoff.Duration()
		}
		ev := b.setStageLocked(stage, tr.next)
		b.mu.Unlock()

		if tr.action == actionReschedule {
			b.recordRetry(tr, retries)
		}
		b.publish(ev)
		metrics.SetBusAccesses(b.cfg.Name, b.chip.Regmap().Accesses())

		switch tr.action {
		case actionContinue:
			continue
		case actionReschedule:
			b.work.Schedule(tr.delay)
			return
		default:
			return
		}
	}
}

func (b *Bridge) step(ctx context.Context, stage Stage) transition {
	switch stage {
	case StagePrepare:
		return b.prepare(ctx)
	case StageRxTimingConfig:
		return b.rxTimingConfig(ctx)
	case StageRxPllConfig:
		return b.rxPllConfig(ctx)
	case StageTxVideoConfig:
		return b.txVideoConfig(ctx)
	case StageTxVideoOut:
		return b.txVideoOut(ctx)
	default:
		b.logger.Error("Unknown stage, restarting", "stage", stage.String())
		return advance(StagePrepare)
	}
}

// setStageLocked records a stage change and returns the event to publish,
// or nil when the stage did not change.
func (b *Bridge) setStageLocked(from, to Stage) events.Event {
	b.dc.stage = to
	if from == to {
		return nil
	}
	b.dc.transitions++
	b.dc.lastChange = time.Now()
	metrics.RecordStageTransition(b.cfg.Name, from.String(), to.String(), int(to))
	b.logger.Info("Stage changed", "from", from.String(), "to", to.String(), "retries", b.dc.retries)
	return events.BridgeStageChangedEvent{
		Bridge:    b.cfg.Name,
		From:      from.String(),
		To:        to.String(),
		Retries:   b.dc.retries,
		Timestamp: timestamp(),
	}
}

func (b *Bridge) publish(ev events.Event) {
	if ev == nil || b.events == nil {
		return
	}
	b.events.Publish(ev)
}

func (b *Bridge) publishLink(up bool) {
	metrics.SetLinkUp(b.cfg.Name, up)
	b.publish(events.BridgeLinkStateEvent{
		Bridge:    b.cfg.Name,
		Up:        up,
		Timestamp: timestamp(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
