package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. The concrete error types below wrap
// one of these so callers can classify a failure without a type switch.
var (
	// ErrInvalidDefinition is wrapped by ValidationError.
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrStateNotFound is wrapped by StateNotFoundError. It is a definition
	// error detected while applying a transition.
	ErrStateNotFound = errors.New("state not found")

	// ErrHook is wrapped by HookError.
	ErrHook = errors.New("hook failed")

	// ErrStalled is wrapped by StalledError.
	ErrStalled = errors.New("stabilization stalled")
)

// HookPhase names the point in a transition at which a hook ran.
type HookPhase string

const (
	PhaseGuard  HookPhase = "guard"
	PhaseExit   HookPhase = "exit"
	PhaseAction HookPhase = "action"
	PhaseEnter  HookPhase = "enter"
)

// ValidationError is returned by NewDefinition when the definition cannot be
// used at all.
type ValidationError struct {
	WorkflowID string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("workflow: %s", e.Reason)
	}
	return fmt.Sprintf("workflow %q: %s", e.WorkflowID, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDefinition }

// StateNotFoundError reports a state id referenced by an instance or a
// transition that is absent from the definition's state table.
type StateNotFoundError struct {
	WorkflowID string
	StateID    string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("workflow %q: state %q not found", e.WorkflowID, e.StateID)
}

func (e *StateNotFoundError) Unwrap() error { return ErrStateNotFound }

// HookError wraps a failure (returned error or recovered panic) raised by a
// guard, exit, action or enter hook.
type HookError struct {
	Phase        HookPhase
	StateID      string
	TransitionID string
	Err          error
}

func (e *HookError) Error() string {
	if e.TransitionID != "" {
		return fmt.Sprintf("%s hook (state %q, transition %q): %v", e.Phase, e.StateID, e.TransitionID, e.Err)
	}
	return fmt.Sprintf("%s hook (state %q): %v", e.Phase, e.StateID, e.Err)
}

// Unwrap exposes both the sentinel and the hook's own error.
func (e *HookError) Unwrap() []error { return []error{ErrHook, e.Err} }

// StalledError is attached to an instance when stabilization exceeds the
// engine's configured iteration bound.
type StalledError struct {
	StateID    string
	Iterations int
}

func (e *StalledError) Error() string {
	return fmt.Sprintf("stabilization exceeded %d auto transitions (last state %q)", e.Iterations, e.StateID)
}

func (e *StalledError) Unwrap() error { return ErrStalled }
