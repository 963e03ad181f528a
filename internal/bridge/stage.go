package bridge

import (
	"fmt"
	"time"
)

// Stage is one step of the bring-up sequence.
type Stage int

// Stages in forward order.
const (
	StagePrepare Stage = iota
	StageRxTimingConfig
	StageRxPllConfig
	StageTxVideoConfig
	StageTxVideoOut
)

var stageNames = [...]string{
	StagePrepare:        "prepare",
	StageRxTimingConfig: "rx-timing-config",
	StageRxPllConfig:    "rx-pll-config",
	StageTxVideoConfig:  "tx-video-config",
	StageTxVideoOut:     "tx-video-out",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage by name for JSON.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// action tells the run loop what to do after a stage.
type action int

const (
	// actionContinue runs the next stage in the same invocation.
	actionContinue action = iota
	// actionReschedule yields and re-enters after delay.
	actionReschedule
	// actionDone yields with nothing scheduled.
	actionDone
)

func (a action) String() string {
	switch a {
	case actionContinue:
		return "continue"
	case actionReschedule:
		return "reschedule"
	case actionDone:
		return "done"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// transition is the outcome of one stage.
type transition struct {
	next   Stage
	action action
	delay  time.Duration
	err    error
}

func advance(next Stage) transition {
	return transition{next: next, action: actionContinue}
}
