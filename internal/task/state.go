package task

import "fmt"

// Phase is a task's position in its lifecycle.
type Phase int32

const (
	// PhasePending indicates the task has not started yet.
	PhasePending Phase = iota
	// PhaseRunning indicates the task is computing fresh results.
	PhaseRunning
	// PhaseLoading indicates the task is reading back memoized results.
	PhaseLoading
	// PhaseFinished indicates the task completed, by either path.
	PhaseFinished
	// PhaseFailed indicates the task stopped with an error.
	PhaseFailed
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseRunning:
		return "running"
	case PhaseLoading:
		return "loading"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects how a task treats a previously completed store.
type Mode int

const (
	// ModeAuto loads when the store is complete and computes otherwise.
	ModeAuto Mode = iota
	// ModeRun always computes, overwriting any previous result.
	ModeRun
	// ModeLoad only loads, failing when the store is incomplete.
	ModeLoad
)

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeRun:
		return "run"
	case ModeLoad:
		return "load"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration string into a Mode. The empty string
// means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "run":
		return ModeRun, nil
	case "load":
		return ModeLoad, nil
	default:
		return ModeAuto, fmt.Errorf("unknown mode %q (want auto, run or load)", s)
	}
}
