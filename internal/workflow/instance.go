package workflow

import (
	"encoding/json"
	"slices"
)

// Status is the lifecycle status of an Instance.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// TimeLayout is the ISO-8601 layout used for history timestamps. Fixed-width
// UTC timestamps sort lexically in chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryEntry records one visit to a state. LeftAt is empty while the state
// is still occupied.
type HistoryEntry struct {
	StateID      string `json:"state_id"`
	EnteredAt    string `json:"entered_at"`
	LeftAt       string `json:"left_at,omitempty"`
	TransitionID string `json:"transition_id,omitempty"`
	Event        string `json:"event,omitempty"`
}

// Open reports whether the entry is for the currently occupied state.
func (h HistoryEntry) Open() bool { return h.LeftAt == "" }

// Instance is a snapshot of one execution of a Definition. Engine operations
// never modify a snapshot they were given; they return a new one. The
// Context value is shared between snapshots and mutated in place by hooks.
type Instance[C any] struct {
	WorkflowID   string
	InstanceID   string
	CurrentState string
	Context      C
	History      []HistoryEntry
	Status       Status

	// Err holds the failure that moved the instance to StatusError.
	Err error
}

// Running reports whether further transitions may be applied.
func (i *Instance[C]) Running() bool { return i.Status == StatusRunning }

// Current returns the open history entry, or nil when history is empty.
func (i *Instance[C]) Current() *HistoryEntry {
	if len(i.History) == 0 {
		return nil
	}
	return &i.History[len(i.History)-1]
}

// clone copies the snapshot and its history so the copy can be changed
// without affecting i.
func (i *Instance[C]) clone() *Instance[C] {
	next := *i
	next.History = slices.Clone(i.History)
	return &next
}

// failed returns a copy of i with status error and err attached.
func (i *Instance[C]) failed(err error) *Instance[C] {
	next := i.clone()
	next.Status = StatusError
	next.Err = err
	return next
}

type instanceJSON[C any] struct {
	WorkflowID   string         `json:"workflow_id"`
	InstanceID   string         `json:"instance_id"`
	CurrentState string         `json:"current_state"`
	Context      C              `json:"context"`
	History      []HistoryEntry `json:"history"`
	Status       Status         `json:"status"`
	Error        string         `json:"error,omitempty"`
}

// MarshalJSON renders the snapshot with Err flattened to its message.
func (i *Instance[C]) MarshalJSON() ([]byte, error) {
	out := instanceJSON[C]{
		WorkflowID:   i.WorkflowID,
		InstanceID:   i.InstanceID,
		CurrentState: i.CurrentState,
		Context:      i.Context,
		History:      i.History,
		Status:       i.Status,
	}
	if out.History == nil {
		out.History = []HistoryEntry{}
	}
	if i.Err != nil {
		out.Error = i.Err.Error()
	}
	return json.Marshal(out)
}
