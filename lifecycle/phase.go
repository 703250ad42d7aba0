// Package lifecycle defines the phases every module passes through and the
// state machine a bootstrap run follows while driving those phases.
package lifecycle

import "fmt"

// Phase identifies one of the four module callbacks.
type Phase int

const (
	PhasePreInitialize Phase = iota + 1
	PhaseInitialize
	PhasePostInitialize
	PhaseShutdown
)

// ForwardPhases are run in this order during startup. Each phase completes
// for every module before the next one begins.
var ForwardPhases = []Phase{PhasePreInitialize, PhaseInitialize, PhasePostInitialize}

func (p Phase) String() string {
	switch p {
	case PhasePreInitialize:
		return "PreInitialize"
	case PhaseInitialize:
		return "Initialize"
	case PhasePostInitialize:
		return "PostInitialize"
	case PhaseShutdown:
		return "Shutdown"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Forward reports whether the phase belongs to the startup sequence.
func (p Phase) Forward() bool {
	return p >= PhasePreInitialize && p <= PhasePostInitialize
}

// State is the state of a whole bootstrap run, not of a single module.
type State int

const (
	StateUnstarted State = iota
	StatePreInitialized
	StateInitialized
	StateRunning
	StateShutDown
)

func (s State) String() string {
	return [...]string{
		"unstarted",
		"pre-initialized",
		"initialized",
		"running",
		"shut-down",
	}[s]
}

// MarshalText renders the state for JSON status output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// After returns the state reached once phase p has completed for every module.
func After(p Phase) State {
	switch p {
	case PhasePreInitialize:
		return StatePreInitialized
	case PhaseInitialize:
		return StateInitialized
	case PhasePostInitialize:
		return StateRunning
	default:
		return StateShutDown
	}
}

// CanRun reports whether phase p may run while the run is in state s.
// Forward phases must run strictly in order; Shutdown is accepted from any
// state except ShutDown itself.
func CanRun(s State, p Phase) bool {
	switch p {
	case PhasePreInitialize:
		return s == StateUnstarted
	case PhaseInitialize:
		return s == StatePreInitialized
	case PhasePostInitialize:
		return s == StateInitialized
	case PhaseShutdown:
		return s != StateShutDown
	}
	return false
}
