package bridge

import (
	"fmt"
	"time"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Status is a point-in-time copy of the bridge state.
type Status struct {
	Name          string                     `json:"name"`
	Stage         Stage                      `json:"stage"`
	Enabled       bool                       `json:"enabled"`
	Attached      bool                       `json:"attached"`
	Detached      bool                       `json:"detached"`
	LinkUp        bool                       `json:"link_up"`
	Retries       int                        `json:"retries"`
	Transitions   uint64                     `json:"transitions"`
	ChipID        string                     `json:"chip_id,omitempty"`
	Input         *lt9211c.RxVideoDescriptor `json:"input,omitempty"`
	Timing        *lt9211c.VideoTiming       `json:"timing,omitempty"`
	Output        *lt9211c.VideoTiming       `json:"output,omitempty"`
	PixelClockKHz uint32                     `json:"pixel_clock_khz"`
	LastError     string                     `json:"last_error,omitempty"`
	BusAccesses   uint64                     `json:"bus_accesses"`
	Pending       bool                       `json:"pending"`
	Since         time.Time                  `json:"since"`
}

// Status returns a snapshot safe to hold onto.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{
		Name:          b.cfg.Name,
		Stage:         b.dc.stage,
		Enabled:       b.dc.enabled,
		Attached:      b.attached,
		Detached:      b.detached,
		LinkUp:        b.dc.linkUp,
		Retries:       b.dc.retries,
		Transitions:   b.dc.transitions,
		PixelClockKHz: b.dc.pclkKHz,
		BusAccesses:   b.chip.Regmap().Accesses(),
		Pending:       b.work.Pending(),
		Since:         b.dc.lastChange,
	}
	if b.dc.chipID != nil {
		id := *b.dc.chipID
		s.ChipID = fmt.Sprintf("%02x%02x%02x", id[0], id[1], id[2])
	}
	if b.dc.input != nil {
		in := *b.dc.input
		s.Input = &in
	}
	if b.dc.timing != nil {
		t := *b.dc.timing
		s.Timing = &t
	}
	if b.dc.output != nil {
		o := *b.dc.output
		s.Output = &o
	}
	if b.dc.lastErr != nil {
		s.LastError = b.dc.lastErr.Error()
	}
	return s
}

// Stage returns the stage the next invocation resumes from.
func (b *Bridge) Stage() Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dc.stage
}

// LinkUp reports whether LVDS output is running.
func (b *Bridge) LinkUp() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dc.linkUp
}
