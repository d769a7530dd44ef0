package workflow

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// DispatchResult reports the outcome of Dispatch. Transitioned is true only
// when a transition was applied successfully; Instance is the resulting
// snapshot, which is the very snapshot passed in when nothing happened.
type DispatchResult[C any] struct {
	Instance     *Instance[C]
	Transitioned bool
}

// Dispatch submits an external event to inst. Transitions of the current
// state whose Event equals event are considered in definition order and the
// first one whose guard passes is applied, after which the instance is
// stabilized. Dispatch never returns an error: hook failures and bad state
// references move the instance to StatusError with Transitioned false, while
// a finished instance, an unmatched event or failing guards leave the
// instance untouched.
func (e *Engine[C]) Dispatch(ctx context.Context, def *Definition[C], inst *Instance[C], event string) DispatchResult[C] {
	unchanged := DispatchResult[C]{Instance: inst}

	if !inst.Running() {
		e.ignored(inst, event, fmt.Sprintf("instance is %s", inst.Status))
		return unchanged
	}

	state, ok := def.State(inst.CurrentState)
	if !ok {
		err := &StateNotFoundError{WorkflowID: def.ID, StateID: inst.CurrentState}
		return DispatchResult[C]{Instance: e.fail(inst, err, "", event)}
	}

	t, err := e.selectEvent(ctx, inst.CurrentState, state, inst.Context, event)
	if err != nil {
		return DispatchResult[C]{Instance: e.fail(inst, err, "", event)}
	}
	if t == nil {
		e.ignored(inst, event, fmt.Sprintf("no eligible transition for %q in state %q", event, inst.CurrentState))
		return unchanged
	}

	next, err := e.apply(ctx, def, inst, t, event)
	if err != nil {
		return DispatchResult[C]{Instance: e.fail(next, err, t.id(inst.CurrentState), event)}
	}

	return DispatchResult[C]{
		Instance:     e.Stabilize(ctx, def, next),
		Transitioned: true,
	}
}

// CanFire reports whether dispatching event would apply a transition. It
// runs the same matching and guard evaluation as Dispatch but no other hook,
// and leaves inst untouched. A guard failure is returned as an error.
func (e *Engine[C]) CanFire(ctx context.Context, def *Definition[C], inst *Instance[C], event string) (bool, error) {
	if !inst.Running() {
		return false, nil
	}
	state, ok := def.State(inst.CurrentState)
	if !ok {
		return false, &StateNotFoundError{WorkflowID: def.ID, StateID: inst.CurrentState}
	}
	t, err := e.selectEvent(ctx, inst.CurrentState, state, inst.Context, event)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// AvailableEvents lists, in definition order and without duplicates, the
// events of the current state for which CanFire is true.
func (e *Engine[C]) AvailableEvents(ctx context.Context, def *Definition[C], inst *Instance[C]) ([]string, error) {
	if !inst.Running() {
		return nil, nil
	}
	state, ok := def.State(inst.CurrentState)
	if !ok {
		return nil, &StateNotFoundError{WorkflowID: def.ID, StateID: inst.CurrentState}
	}

	var events []string
	seen := make(map[string]struct{})
	for _, t := range state.Transitions {
		if t.Event == "" {
			continue
		}
		if _, dup := seen[t.Event]; dup {
			continue
		}
		seen[t.Event] = struct{}{}
		ok, err := e.CanFire(ctx, def, inst, t.Event)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, t.Event)
		}
	}
	return events, nil
}

// selectEvent returns the first transition of state triggered by event whose
// guard passes, or nil. id is the key state is registered under.
func (e *Engine[C]) selectEvent(ctx context.Context, id string, state *State[C], c C, event string) (*Transition[C], error) {
	if event == "" {
		return nil, nil
	}
	for i := range state.Transitions {
		t := &state.Transitions[i]
		if t.Event != event {
			continue
		}
		ok, err := e.evalGuard(ctx, t.Guard, c, id, t.id(id))
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

func (e *Engine[C]) ignored(inst *Instance[C], event, reason string) {
	e.emit(inst, Event{
		Type:    EventDispatchIgnored,
		Trigger: event,
		Message: reason,
	})
	e.log(log.DebugLevel, "dispatch ignored", "workflow", inst.WorkflowID, "instance", inst.InstanceID,
		"event", event, "reason", reason)
}
