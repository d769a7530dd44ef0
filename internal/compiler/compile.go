package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

var (
	// ErrUnknownKind is returned for a state kind that is neither input,
	// auto nor terminal nor one of their aliases.
	ErrUnknownKind = errors.New("unknown state kind")

	// ErrInvalidDocument is returned for documents that cannot describe a
	// definition at all: missing ids, duplicate states, missing targets.
	ErrInvalidDocument = errors.New("invalid workflow document")
)

// HandlerNotFoundError reports a handler id referenced by a document that
// is not registered. Where names the referencing hook, e.g.
// `state "cart" on_enter`.
type HandlerNotFoundError struct {
	HandlerID string
	Where     string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("%s: handler %q is not registered", e.Where, e.HandlerID)
}

func (e *HandlerNotFoundError) Unwrap() error { return ErrHandlerNotFound }

// HandlerRoleError reports a registered handler referenced in a role it
// does not implement, e.g. an action-only handler used as a guard.
type HandlerRoleError struct {
	HandlerID string
	Role      Role
	Where     string
}

func (e *HandlerRoleError) Error() string {
	return fmt.Sprintf("%s: handler %q cannot be used as %s", e.Where, e.HandlerID, e.Role)
}

func (e *HandlerRoleError) Unwrap() error { return ErrUnsupported }

// kindAliases maps accepted spellings to engine kinds.
var kindAliases = map[string]workflow.StateKind{
	"":               workflow.KindInput,
	"input":          workflow.KindInput,
	"requires-input": workflow.KindInput,
	"requires_input": workflow.KindInput,
	"auto":           workflow.KindAuto,
	"auto-progress":  workflow.KindAuto,
	"auto_progress":  workflow.KindAuto,
	"terminal":       workflow.KindTerminal,
}

// ParseKind resolves a document kind string.
func ParseKind(s string) (workflow.StateKind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Compile turns doc into an executable definition whose hooks call handlers
// from reg. Every problem in the document is collected and returned
// together with errors.Join, so one pass reports all missing handlers.
// The result passes through workflow.NewDefinition.
func Compile(doc *Document, reg *Registry) (*workflow.Definition[Data], error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if reg == nil {
		reg = NewRegistry()
	}

	c := &compilation{reg: reg}
	def := &workflow.Definition[Data]{
		ID:           doc.ID,
		InitialState: doc.InitialState,
		States:       make(map[string]*workflow.State[Data], len(doc.States)),
	}
	if doc.ID == "" {
		c.errorf("%w: workflow id is empty", ErrInvalidDocument)
	}

	for i, sd := range doc.States {
		if sd.ID == "" {
			c.errorf("%w: state #%d has an empty id", ErrInvalidDocument, i+1)
			continue
		}
		if _, dup := def.States[sd.ID]; dup {
			c.errorf("%w: state %q is defined more than once", ErrInvalidDocument, sd.ID)
			continue
		}

		kind, err := ParseKind(sd.Kind)
		if err != nil {
			c.errorf("state %q: %w", sd.ID, err)
		}

		state := &workflow.State[Data]{
			ID:      sd.ID,
			Kind:    kind,
			OnEnter: c.action(sd.OnEnter, fmt.Sprintf("state %q on_enter", sd.ID)),
			OnExit:  c.action(sd.OnExit, fmt.Sprintf("state %q on_exit", sd.ID)),
		}

		for j, td := range sd.Transitions {
			if td.Target == "" {
				c.errorf("%w: state %q transition #%d has no target", ErrInvalidDocument, sd.ID, j+1)
				continue
			}
			id := td.ID
			if id == "" {
				id = workflow.TransitionKey(sd.ID, td.Target, td.Event)
			}
			where := fmt.Sprintf("transition %q", id)
			state.Transitions = append(state.Transitions, workflow.Transition[Data]{
				ID:     id,
				Target: td.Target,
				Event:  td.Event,
				Guard:  c.guard(td.Guard, where+" guard"),
				Action: c.action(td.Action, where+" action"),
			})
		}
		def.States[sd.ID] = state
	}

	if err := errors.Join(c.errs...); err != nil {
		return nil, fmt.Errorf("compiling workflow %q: %w", doc.ID, err)
	}
	return workflow.NewDefinition(def)
}

// CompileFile parses path and compiles it. It also returns the parsed
// document, whose Context seeds new instances.
func CompileFile(path string, reg *Registry) (*workflow.Definition[Data], *Document, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	def, err := Compile(doc, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, doc, nil
}

// InitialData returns a fresh copy of the document's context with overrides
// applied on top.
func (d *Document) InitialData(overrides Data) Data {
	data := make(Data, len(d.Context)+len(overrides))
	maps.Copy(data, d.Context)
	maps.Copy(data, overrides)
	return data
}

type compilation struct {
	reg  *Registry
	errs []error
}

func (c *compilation) errorf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *compilation) resolve(ref *HandlerRef, role Role, where string) (Handler, map[string]any, bool) {
	if ref == nil {
		return nil, nil, false
	}
	h, err := c.reg.Get(ref.ID)
	if err != nil {
		c.errs = append(c.errs, &HandlerNotFoundError{HandlerID: ref.ID, Where: where})
		return nil, nil, false
	}
	if !Supports(h, role) {
		c.errs = append(c.errs, &HandlerRoleError{HandlerID: ref.ID, Role: role, Where: where})
		return nil, nil, false
	}
	args := ref.Args
	if args == nil {
		args = map[string]any{}
	}
	return h, args, true
}

func (c *compilation) guard(ref *HandlerRef, where string) workflow.Guard[Data] {
	h, args, ok := c.resolve(ref, RoleGuard, where)
	if !ok {
		return nil
	}
	return func(ctx context.Context, data Data) (bool, error) {
		return h.Evaluate(ctx, data, args)
	}
}

func (c *compilation) action(ref *HandlerRef, where string) workflow.Action[Data] {
	h, args, ok := c.resolve(ref, RoleAction, where)
	if !ok {
		return nil
	}
	return func(ctx context.Context, data Data) error {
		return h.Run(ctx, data, args)
	}
}
