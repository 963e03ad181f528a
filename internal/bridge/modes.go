package bridge

import (
	"fmt"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
)

// Mode is an output mode advertised to the display pipeline.
type Mode struct {
	Name string `json:"name"`
	lt9211c.VideoTiming
	Preferred bool   `json:"preferred"`
	Driver    bool   `json:"driver"`
	WidthMM   uint32 `json:"width_mm"`
	HeightMM  uint32 `json:"height_mm"`
}

// Modes returns the single preferred mode built from the default timing
// and the panel size. Live detected timing is never advertised.
func (b *Bridge) Modes() []Mode {
	t := lt9211c.DefaultTiming()
	return []Mode{{
		Name:        fmt.Sprintf("%dx%d", t.HActive, t.VActive),
		VideoTiming: t,
		Preferred:   true,
		Driver:      true,
		WidthMM:     b.cfg.PanelWidthMM,
		HeightMM:    b.cfg.PanelHeightMM,
	}}
}

// ModeValid accepts every mode.
func (b *Bridge) ModeValid(Mode) error {
	return nil
}
