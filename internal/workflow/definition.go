package workflow

import (
	"context"
	"fmt"
)

// StateKind classifies how the engine treats a state.
type StateKind string

const (
	// KindInput states wait for an external event.
	KindInput StateKind = "input"

	// KindAuto states are advanced by the stabilizer without external input.
	KindAuto StateKind = "auto"

	// KindTerminal states end the lifecycle; arriving at one completes the
	// instance.
	KindTerminal StateKind = "terminal"
)

// AutoEvent is the placeholder used in transition keys for event-less
// transitions.
const AutoEvent = "AUTO"

// Guard decides whether a transition is eligible. It should not mutate c.
type Guard[C any] func(ctx context.Context, c C) (bool, error)

// Action is a side-effecting operation over the context, used for transition
// actions and state entry/exit hooks.
type Action[C any] func(ctx context.Context, c C) error

// Definition describes all states and transitions of one workflow. It is
// built once and shared read-only by every instance.
type Definition[C any] struct {
	ID           string
	InitialState string
	States       map[string]*State[C]
}

// State is a node of the workflow graph.
type State[C any] struct {
	ID      string
	Kind    StateKind
	OnEnter Action[C]
	OnExit  Action[C]

	// Transitions are evaluated in order; the first eligible one wins.
	Transitions []Transition[C]
}

// Transition is an edge leaving a state.
type Transition[C any] struct {
	// ID identifies the transition in history entries. When empty the
	// engine uses TransitionKey(from, Target, Event).
	ID     string
	Target string

	// Event names the external trigger. Empty means the transition is only
	// considered during stabilization.
	Event  string
	Guard  Guard[C]
	Action Action[C]
}

// TransitionKey returns the deterministic transition identifier
// "<from>-><target>:<event>", with AutoEvent standing in for an empty event.
func TransitionKey(from, target, event string) string {
	if event == "" {
		event = AutoEvent
	}
	return fmt.Sprintf("%s->%s:%s", from, target, event)
}

// id returns the transition's identifier as recorded in history.
func (t *Transition[C]) id(from string) string {
	if t.ID != "" {
		return t.ID
	}
	return TransitionKey(from, t.Target, t.Event)
}

// NewDefinition checks that def can be started and returns it unchanged.
// The only check performed is that InitialState names an existing, non-nil
// state; dangling targets, unreachable states and auto cycles are accepted
// here and surface at run time. Use Lint for a fuller structural report.
func NewDefinition[C any](def *Definition[C]) (*Definition[C], error) {
	if def == nil {
		return nil, &ValidationError{Reason: "definition is nil"}
	}
	if _, ok := def.State(def.InitialState); !ok {
		return nil, &ValidationError{
			WorkflowID: def.ID,
			Reason:     fmt.Sprintf("initial state %q not found", def.InitialState),
		}
	}
	return def, nil
}

// State returns the state registered under id.
func (d *Definition[C]) State(id string) (*State[C], bool) {
	s, ok := d.States[id]
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}
