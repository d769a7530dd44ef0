package workflow

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Engine executes workflow definitions over context values of type C. It
// holds only configuration; every operation takes the definition and the
// instance snapshot explicitly and returns a new snapshot, so one Engine may
// serve any number of instances. Callers must serialize operations against
// a single instance.
type Engine[C any] struct {
	cfg     engineConfig
	dropped atomic.Uint64
}

type engineConfig struct {
	events        chan<- Event
	logger        *log.Logger
	maxIterations int
	clock         func() time.Time
	newID         func() string
	idPrefix      string
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithEventChannel sets the channel on which the engine broadcasts lifecycle
// Events. The engine uses a non-blocking send so a slow consumer never
// stalls execution; events that find the channel full are counted by
// DroppedEvents.
func WithEventChannel(ch chan<- Event) EngineOption {
	return func(c *engineConfig) { c.events = ch }
}

// WithLogger attaches a charmbracelet/log Logger to the engine. When nil the
// engine operates silently.
func WithLogger(logger *log.Logger) EngineOption {
	return func(c *engineConfig) { c.logger = logger }
}

// WithMaxIterations bounds the number of auto transitions a single
// stabilization may apply. Exceeding the bound moves the instance to
// StatusError with a StalledError. Zero (the default) means unbounded.
func WithMaxIterations(n int) EngineOption {
	return func(c *engineConfig) { c.maxIterations = n }
}

// WithClock overrides the time source used for history timestamps.
func WithClock(clock func() time.Time) EngineOption {
	return func(c *engineConfig) { c.clock = clock }
}

// WithIDGenerator overrides instance id generation. The generator must
// return a distinct value on every call.
func WithIDGenerator(gen func() string) EngineOption {
	return func(c *engineConfig) { c.newID = gen }
}

// WithIDPrefix prefixes generated instance ids with "<prefix>-".
func WithIDPrefix(prefix string) EngineOption {
	return func(c *engineConfig) { c.idPrefix = prefix }
}

// NewEngine creates an engine with the given options.
func NewEngine[C any](opts ...EngineOption) *Engine[C] {
	cfg := engineConfig{
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine[C]{cfg: cfg}
}

// StartOption configures a single Start call.
type StartOption func(*startConfig)

type startConfig struct {
	instanceID string
}

// WithInstanceID supplies the instance identity instead of generating one.
func WithInstanceID(id string) StartOption {
	return func(c *startConfig) { c.instanceID = id }
}

// Start creates a fresh instance positioned at the definition's initial
// state with one open history entry. The initial state's OnEnter hook is not
// invoked: entry hooks fire only on arrival through a transition. When the
// initial state is terminal the instance starts out completed.
func (e *Engine[C]) Start(def *Definition[C], c C, opts ...StartOption) (*Instance[C], error) {
	if _, err := NewDefinition(def); err != nil {
		return nil, err
	}

	var sc startConfig
	for _, opt := range opts {
		opt(&sc)
	}
	id := sc.instanceID
	if id == "" {
		id = e.generateID()
	}

	initial, _ := def.State(def.InitialState)
	status := StatusRunning
	if initial.Kind == KindTerminal {
		status = StatusCompleted
	}

	inst := &Instance[C]{
		WorkflowID:   def.ID,
		InstanceID:   id,
		CurrentState: def.InitialState,
		Context:      c,
		History: []HistoryEntry{{
			StateID:   def.InitialState,
			EnteredAt: e.now(),
		}},
		Status: status,
	}

	e.emit(inst, Event{
		Type:    EventInstanceStarted,
		Message: fmt.Sprintf("instance started in workflow %q", def.ID),
	})
	e.log(log.InfoLevel, "instance started", "workflow", def.ID, "instance", id, "state", def.InitialState)
	if status == StatusCompleted {
		e.emit(inst, Event{
			Type:    EventInstanceCompleted,
			Message: fmt.Sprintf("initial state %q is terminal", def.InitialState),
		})
	}
	return inst, nil
}

// StartAndStabilize starts an instance and immediately runs the stabilizer,
// so an initial auto state is advanced before the caller sees the instance.
func (e *Engine[C]) StartAndStabilize(ctx context.Context, def *Definition[C], c C, opts ...StartOption) (*Instance[C], error) {
	inst, err := e.Start(def, c, opts...)
	if err != nil {
		return nil, err
	}
	return e.Stabilize(ctx, def, inst), nil
}

func (e *Engine[C]) generateID() string {
	id := e.cfg.newID()
	if e.cfg.idPrefix != "" {
		return e.cfg.idPrefix + "-" + id
	}
	return id
}

// now returns the current time as a history timestamp.
func (e *Engine[C]) now() string {
	return e.cfg.clock().UTC().Format(TimeLayout)
}

// evalGuard runs a guard, converting a returned error or a panic into a
// HookError. A nil guard always passes.
func (e *Engine[C]) evalGuard(ctx context.Context, g Guard[C], c C, stateID, transitionID string) (ok bool, err error) {
	if g == nil {
		return true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = &HookError{Phase: PhaseGuard, StateID: stateID, TransitionID: transitionID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	ok, err = g(ctx, c)
	if err != nil {
		return false, &HookError{Phase: PhaseGuard, StateID: stateID, TransitionID: transitionID, Err: err}
	}
	return ok, nil
}

// runHook runs an action-shaped hook with the same error conversion as
// evalGuard. A nil hook is a no-op.
func (e *Engine[C]) runHook(ctx context.Context, phase HookPhase, a Action[C], c C, stateID, transitionID string) (err error) {
	if a == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Phase: phase, StateID: stateID, TransitionID: transitionID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := a(ctx, c); err != nil {
		return &HookError{Phase: phase, StateID: stateID, TransitionID: transitionID, Err: err}
	}
	return nil
}

// emit fills the instance fields of ev and sends it using a non-blocking
// select. It is a no-op when no channel has been configured.
func (e *Engine[C]) emit(inst *Instance[C], ev Event) {
	if e.cfg.events == nil {
		return
	}
	ev.WorkflowID = inst.WorkflowID
	ev.InstanceID = inst.InstanceID
	if ev.State == "" {
		ev.State = inst.CurrentState
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.cfg.clock()
	}
	select {
	case e.cfg.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// DroppedEvents returns how many events were discarded because the event
// channel was full.
func (e *Engine[C]) DroppedEvents() uint64 { return e.dropped.Load() }

// log writes a structured log message when a logger is attached.
func (e *Engine[C]) log(level log.Level, msg string, kvs ...any) {
	if e.cfg.logger == nil {
		return
	}
	e.cfg.logger.Log(level, msg, kvs...)
}

// fail moves inst to error status and reports the failure.
func (e *Engine[C]) fail(inst *Instance[C], err error, transitionID, trigger string) *Instance[C] {
	out := inst.failed(err)
	e.emit(out, Event{
		Type:         EventTransitionFailed,
		TransitionID: transitionID,
		Trigger:      trigger,
		Message:      fmt.Sprintf("transition out of %q failed", inst.CurrentState),
		Error:        err.Error(),
	})
	e.emit(out, Event{
		Type:    EventInstanceFailed,
		Message: fmt.Sprintf("instance failed in state %q", out.CurrentState),
		Error:   err.Error(),
	})
	e.log(log.WarnLevel, "instance failed", "workflow", out.WorkflowID, "instance", out.InstanceID,
		"state", out.CurrentState, "error", err)
	return out
}
