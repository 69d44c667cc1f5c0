package model

// RunState is the lifecycle state of a planned workflow instance.
type RunState string

const (
	RunStatePlanned RunState = "PLANNED"
	RunStateRunning RunState = "RUNNING"
	RunStateSuccess RunState = "SUCCESS"
	RunStateFailed  RunState = "FAILED"
	RunStateRemoved RunState = "REMOVED"
)

func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateSuccess, RunStateFailed, RunStateRemoved:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for runs.
var ValidRunTransitions = map[RunState][]RunState{
	RunStatePlanned: {RunStateRunning, RunStateRemoved},
	RunStateRunning: {RunStateSuccess, RunStateFailed, RunStateRemoved},
	// A failed run can be resubmitted as a rescue DAG.
	RunStateFailed: {RunStateRunning},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	if s == next {
		return true
	}
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunStateFromPlanner maps a dag state reported by the status tool
// (Running, Success, Failure) to a RunState.
func RunStateFromPlanner(state string) (RunState, bool) {
	switch state {
	case "Running":
		return RunStateRunning, true
	case "Success":
		return RunStateSuccess, true
	case "Failure":
		return RunStateFailed, true
	}
	return "", false
}
