package workflow

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// apply performs one selected transition on a running instance. Hooks run
// in the order exit, action, enter and share inst.Context.
//
// On failure apply returns the error together with the snapshot that
// reflects the steps completed so far: inst itself when the state lookup,
// exit hook or action failed, or the moved snapshot when the target's enter
// hook failed. The move is recorded in history before enter runs and is not
// rolled back.
func (e *Engine[C]) apply(ctx context.Context, def *Definition[C], inst *Instance[C], t *Transition[C], trigger string) (*Instance[C], error) {
	from, ok := def.State(inst.CurrentState)
	if !ok {
		return inst, &StateNotFoundError{WorkflowID: def.ID, StateID: inst.CurrentState}
	}
	to, ok := def.State(t.Target)
	if !ok {
		return inst, &StateNotFoundError{WorkflowID: def.ID, StateID: t.Target}
	}
	// State ids come from the definition's keys; State.ID may be left empty.
	fromID, toID := inst.CurrentState, t.Target
	tid := t.id(fromID)

	if err := e.runHook(ctx, PhaseExit, from.OnExit, inst.Context, fromID, tid); err != nil {
		return inst, err
	}
	if err := e.runHook(ctx, PhaseAction, t.Action, inst.Context, fromID, tid); err != nil {
		return inst, err
	}

	now := e.now()
	next := inst.clone()
	if cur := next.Current(); cur != nil && cur.Open() {
		cur.LeftAt = now
	}
	next.History = append(next.History, HistoryEntry{
		StateID:      toID,
		EnteredAt:    now,
		TransitionID: tid,
		Event:        trigger,
	})
	next.CurrentState = toID

	if err := e.runHook(ctx, PhaseEnter, to.OnEnter, next.Context, toID, tid); err != nil {
		return next, err
	}

	if to.Kind == KindTerminal {
		next.Status = StatusCompleted
	} else {
		next.Status = StatusRunning
	}

	e.emit(next, Event{
		Type:         EventTransitionApplied,
		TransitionID: tid,
		Trigger:      trigger,
		Message:      fmt.Sprintf("%s -> %s", fromID, toID),
	})
	e.log(log.DebugLevel, "transition applied", "workflow", def.ID, "instance", next.InstanceID,
		"from", fromID, "to", toID, "transition", tid, "event", trigger)

	if next.Status == StatusCompleted {
		e.emit(next, Event{
			Type:    EventInstanceCompleted,
			Message: fmt.Sprintf("instance reached terminal state %q", toID),
		})
		e.log(log.InfoLevel, "instance completed", "workflow", def.ID, "instance", next.InstanceID, "state", toID)
	}
	return next, nil
}
