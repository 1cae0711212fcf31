package syncer

import (
	"time"

	"github.com/openfroyo/agentcore/pkg/drift"
)

// State is a step of the sync state machine.
type State string

const (
	StateIdle           State = "IDLE"
	StateFetchingRemote State = "FETCHING_REMOTE"
	StateDiffing        State = "DIFFING"
	StateNoDrift        State = "NO_DRIFT"
	StateDriftDetected  State = "DRIFT_DETECTED"
	StateApplying       State = "APPLYING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Operation names what a run does.
type Operation string

const (
	OpStatus Operation = "status"
	OpPush   Operation = "push"
	OpPull   Operation = "pull"
	OpAuto   Operation = "auto"
)

// Run records one pass through the state machine.
type Run struct {
	ID        string        `json:"id"`
	Operation Operation     `json:"operation"`
	States    []State       `json:"states"`
	Report    *drift.Report `json:"report,omitempty"`
	Backend   string        `json:"backend"`
	RemoteKey string        `json:"remote_key"`
	Forced    bool          `json:"forced,omitempty"`

	// RemoteExists is false when the remote key was missing.
	RemoteExists bool `json:"remote_exists"`

	Err         error     `json:"-"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// State returns the last state entered.
func (r *Run) State() State {
	if len(r.States) == 0 {
		return StateIdle
	}
	return r.States[len(r.States)-1]
}

// Succeeded reports whether the run finished without error.
func (r *Run) Succeeded() bool {
	return r.Err == nil && r.State() != StateFailed
}

func (r *Run) enter(s State) {
	r.States = append(r.States, s)
}

// diffState enters NO_DRIFT or DRIFT_DETECTED for report.
func (r *Run) diffState(report *drift.Report) {
	r.Report = report
	if report.Empty() {
		r.enter(StateNoDrift)
	} else {
		r.enter(StateDriftDetected)
	}
}

func stateNames(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return out
}
