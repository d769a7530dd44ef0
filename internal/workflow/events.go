package workflow

import "time"

// EventType constants identify the lifecycle milestone an Event describes.
// String values are used (not iota) so they read cleanly in JSON logs.
const (
	// EventInstanceStarted is emitted when Start places a new instance at
	// its initial state.
	EventInstanceStarted = "instance_started"

	// EventTransitionApplied is emitted after a transition has been applied
	// successfully.
	EventTransitionApplied = "transition_applied"

	// EventTransitionFailed is emitted when a hook or state lookup fails
	// while selecting or applying a transition.
	EventTransitionFailed = "transition_failed"

	// EventDispatchIgnored is emitted when a dispatched event caused no
	// transition because the instance was finished or nothing matched.
	EventDispatchIgnored = "dispatch_ignored"

	// EventStabilized is emitted when the stabilizer stops with the
	// instance still running.
	EventStabilized = "stabilized"

	// EventInstanceCompleted is emitted when an instance reaches a terminal
	// state.
	EventInstanceCompleted = "instance_completed"

	// EventInstanceFailed is emitted when an instance moves to StatusError.
	EventInstanceFailed = "instance_failed"
)

// Event is a structured message emitted by the engine during execution. It
// is the audit trail companion to Instance.History and is delivered over
// the channel configured with WithEventChannel.
type Event struct {
	// Type is one of the Event* constants.
	Type string `json:"type"`

	WorkflowID string `json:"workflow_id"`
	InstanceID string `json:"instance_id"`

	// State is the state the instance occupies after the milestone.
	State string `json:"state"`

	// TransitionID is set for transition_applied and transition_failed.
	TransitionID string `json:"transition_id,omitempty"`

	// Trigger is the external event name, empty for auto transitions and
	// lifecycle events.
	Trigger string `json:"trigger,omitempty"`

	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// Error holds the failure message for transition_failed and
	// instance_failed.
	Error string `json:"error,omitempty"`
}
