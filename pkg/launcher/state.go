package launcher

import "sync/atomic"

// State is a phase in the sclang process lifecycle. Transitions only move
// forward.
type State int32

const (
	StateSpawning State = iota
	StateWaitingForReady
	StateRunning
	StateShuttingDown
	StateTerminated
)

var stateNames = [...]string{
	StateSpawning:        "spawning",
	StateWaitingForReady: "waiting-for-ready",
	StateRunning:         "running",
	StateShuttingDown:    "shutting-down",
	StateTerminated:      "terminated",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type stateVar struct{ v atomic.Int32 }

func (sv *stateVar) get() State { return State(sv.v.Load()) }

// set advances the state, refusing to move backwards.
func (sv *stateVar) set(s State) {
	for {
		cur := sv.v.Load()
		if cur >= int32(s) {
			return
		}
		if sv.v.CompareAndSwap(cur, int32(s)) {
			logger.Printf("state: %v -> %v", State(cur), s)
			return
		}
	}
}
