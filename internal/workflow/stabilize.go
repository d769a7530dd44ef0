package workflow

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Stabilize repeatedly applies eligible event-less transitions while the
// instance is running and occupies an auto state. It stops, without error,
// when the current state has no event-less transition or none of their
// guards pass. A guard or apply failure ends stabilization with the instance
// in StatusError.
//
// With no iteration bound configured, auto states forming a cycle of
// always-true guards loop forever.
func (e *Engine[C]) Stabilize(ctx context.Context, def *Definition[C], inst *Instance[C]) *Instance[C] {
	applied := 0
	for inst.Running() {
		state, ok := def.State(inst.CurrentState)
		if !ok {
			return e.fail(inst, &StateNotFoundError{WorkflowID: def.ID, StateID: inst.CurrentState}, "", "")
		}
		if state.Kind != KindAuto {
			break
		}

		t, err := e.selectAuto(ctx, inst.CurrentState, state, inst.Context)
		if err != nil {
			return e.fail(inst, err, "", "")
		}
		if t == nil {
			break
		}

		if e.cfg.maxIterations > 0 && applied >= e.cfg.maxIterations {
			return e.fail(inst, &StalledError{StateID: inst.CurrentState, Iterations: applied}, t.id(inst.CurrentState), "")
		}

		next, err := e.apply(ctx, def, inst, t, "")
		if err != nil {
			return e.fail(next, err, t.id(inst.CurrentState), "")
		}
		inst = next
		applied++
	}

	if inst.Running() {
		e.emit(inst, Event{
			Type:    EventStabilized,
			Message: fmt.Sprintf("stable in state %q after %d auto transitions", inst.CurrentState, applied),
		})
		e.log(log.DebugLevel, "instance stabilized", "workflow", def.ID, "instance", inst.InstanceID,
			"state", inst.CurrentState, "applied", applied)
	}
	return inst
}

// selectAuto returns the first event-less transition of state whose guard
// passes, or nil when none does. Guards after the first passing one are not
// evaluated. id is the key state is registered under.
func (e *Engine[C]) selectAuto(ctx context.Context, id string, state *State[C], c C) (*Transition[C], error) {
	for i := range state.Transitions {
		t := &state.Transitions[i]
		if t.Event != "" {
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
