// Package compiler turns JSON and TOML workflow documents into executable
// workflow definitions whose hooks call handlers from a Registry.
package compiler

import (
	"context"
	"errors"
	"fmt"
)

// Data is the context value carried by compiled workflows. Hooks read and
// write it in place.
type Data = map[string]any

// ErrUnsupported is returned when a handler is used in a role it does not
// implement, e.g. an action referenced as a guard.
var ErrUnsupported = errors.New("handler does not support this role")

// Handler is a named piece of behaviour that a workflow document references
// by id. A single handler may serve as a guard (Evaluate), as an action or
// entry/exit hook (Run), or both. Args are the per-reference arguments from
// the document and are never nil.
type Handler interface {
	Name() string
	Evaluate(ctx context.Context, data Data, args map[string]any) (bool, error)
	Run(ctx context.Context, data Data, args map[string]any) error
}

// Role is the part a handler plays where a document references it.
type Role string

const (
	// RoleGuard is a transition guard, served by Evaluate.
	RoleGuard Role = "guard"

	// RoleAction is a transition action or an on_enter/on_exit hook, served
	// by Run.
	RoleAction Role = "action"
)

// RoleChecker is implemented by handlers that serve only some roles.
// Compile rejects a reference to a handler in a role it does not support.
// Handlers that do not implement it are assumed to support both.
type RoleChecker interface {
	Supports(role Role) bool
}

// Supports reports whether h can be used in role.
func Supports(h Handler, role Role) bool {
	rc, ok := h.(RoleChecker)
	return !ok || rc.Supports(role)
}

// GuardFunc is the function shape of a guard handler.
type GuardFunc func(ctx context.Context, data Data, args map[string]any) (bool, error)

// ActionFunc is the function shape of an action handler.
type ActionFunc func(ctx context.Context, data Data, args map[string]any) error

type funcHandler struct {
	name     string
	evaluate GuardFunc
	run      ActionFunc
}

// NewGuard wraps fn as a guard-only Handler.
func NewGuard(name string, fn GuardFunc) Handler {
	return &funcHandler{name: name, evaluate: fn}
}

// NewAction wraps fn as an action-only Handler.
func NewAction(name string, fn ActionFunc) Handler {
	return &funcHandler{name: name, run: fn}
}

func (h *funcHandler) Name() string { return h.name }

func (h *funcHandler) Supports(role Role) bool {
	switch role {
	case RoleGuard:
		return h.evaluate != nil
	case RoleAction:
		return h.run != nil
	default:
		return false
	}
}

func (h *funcHandler) Evaluate(ctx context.Context, data Data, args map[string]any) (bool, error) {
	if h.evaluate == nil {
		return false, fmt.Errorf("handler %q used as guard: %w", h.name, ErrUnsupported)
	}
	return h.evaluate(ctx, data, args)
}

func (h *funcHandler) Run(ctx context.Context, data Data, args map[string]any) error {
	if h.run == nil {
		return fmt.Errorf("handler %q used as action: %w", h.name, ErrUnsupported)
	}
	return h.run(ctx, data, args)
}

var (
	_ Handler     = (*funcHandler)(nil)
	_ RoleChecker = (*funcHandler)(nil)
)
