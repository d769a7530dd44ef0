package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// testRegistry returns the built-ins plus an "always-run" no-op action used
// by the checkout fixtures.
func testRegistry() *Registry {
	r := NewBuiltinRegistry()
	r.Register(NewAction("always-run", func(_ context.Context, data Data, _ map[string]any) error {
		data["charged"] = true
		return nil
	}))
	return r
}

func mustCompileJSON(t *testing.T, src string, reg *Registry) *workflow.Definition[Data] {
	t.Helper()
	doc, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	def, err := Compile(doc, reg)
	require.NoError(t, err)
	return def
}

func TestCompile_Checkout(t *testing.T) {
	t.Parallel()

	def := mustCompileJSON(t, checkoutJSON, testRegistry())

	assert.Equal(t, "checkout", def.ID)
	assert.Equal(t, "cart", def.InitialState)
	require.Len(t, def.States, 3)

	cart := def.States["cart"]
	assert.Equal(t, workflow.KindInput, cart.Kind)
	require.Len(t, cart.Transitions, 2)
	assert.Equal(t, "cart->cart:add", cart.Transitions[0].ID)
	assert.Equal(t, "cart->charging:pay", cart.Transitions[1].ID)
	assert.NotNil(t, cart.Transitions[1].Guard)

	charging := def.States["charging"]
	assert.Equal(t, workflow.KindAuto, charging.Kind)
	assert.NotNil(t, charging.OnEnter)
	assert.Nil(t, charging.OnExit)
	assert.Equal(t, "charging->done:AUTO", charging.Transitions[0].ID)

	assert.Equal(t, workflow.KindTerminal, def.States["done"].Kind)
	assert.True(t, workflow.Lint(def).IsValid())
}

// TestCompile_ExecutesThroughEngine drives the compiled checkout workflow:
// pay is refused while the cart is empty, then runs through to done.
func TestCompile_ExecutesThroughEngine(t *testing.T) {
	t.Parallel()

	doc, err := ParseTOML([]byte(checkoutTOML))
	require.NoError(t, err)
	def, err := Compile(doc, testRegistry())
	require.NoError(t, err)

	ctx := context.Background()
	eng := workflow.NewEngine[Data]()
	data := doc.InitialData(nil)
	inst, err := eng.StartAndStabilize(ctx, def, data)
	require.NoError(t, err)

	res := eng.Dispatch(ctx, def, inst, "pay")
	assert.False(t, res.Transitioned, "empty cart must not be paid")

	res = eng.Dispatch(ctx, def, res.Instance, "add")
	require.True(t, res.Transitioned)
	assert.Equal(t, float64(1), data["items"])

	res = eng.Dispatch(ctx, def, res.Instance, "pay")
	require.True(t, res.Transitioned)
	assert.Equal(t, "done", res.Instance.CurrentState)
	assert.Equal(t, workflow.StatusCompleted, res.Instance.Status)
	assert.Equal(t, true, data["charged"])
}

func TestCompile_ExplicitTransitionID(t *testing.T) {
	t.Parallel()

	def := mustCompileJSON(t, `{
		"id": "w", "initial_state": "a",
		"states": [
			{"id": "a", "transitions": [{"id": "go-b", "event": "GO", "target": "b"}]},
			{"id": "b", "kind": "terminal"}
		]
	}`, NewRegistry())
	assert.Equal(t, "go-b", def.States["a"].Transitions[0].ID)
}

func TestCompile_MissingHandlersReportedTogether(t *testing.T) {
	t.Parallel()

	doc, err := ParseJSON([]byte(`{
		"id": "w", "initial_state": "a",
		"states": [
			{"id": "a", "on_exit": "nope-exit", "transitions": [
				{"event": "GO", "target": "b", "guard": "nope-guard", "action": "set"}
			]},
			{"id": "b", "kind": "terminal", "on_enter": "nope-enter"}
		]
	}`))
	require.NoError(t, err)

	def, err := Compile(doc, NewBuiltinRegistry())
	require.Error(t, err)
	assert.Nil(t, def)
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	var nf *HandlerNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope-exit", nf.HandlerID)
	assert.Equal(t, `state "a" on_exit`, nf.Where)

	msg := err.Error()
	assert.Contains(t, msg, `"nope-exit"`)
	assert.Contains(t, msg, `"nope-guard"`)
	assert.Contains(t, msg, `"nope-enter"`)
	assert.Contains(t, msg, `transition "a->b:GO" guard`)
	assert.NotContains(t, msg, `"set"`)
}

func TestCompile_HandlerRoleMismatch(t *testing.T) {
	t.Parallel()

	doc, err := ParseJSON([]byte(`{
		"id": "w", "initial_state": "a",
		"states": [
			{"id": "a", "on_exit": "truthy", "transitions": [
				{"event": "GO", "target": "b", "guard": "set"},
				{"event": "STOP", "target": "b", "guard": "gone"}
			]},
			{"id": "b", "kind": "terminal"}
		]
	}`))
	require.NoError(t, err)

	def, err := Compile(doc, NewBuiltinRegistry())
	require.Error(t, err)
	assert.Nil(t, def)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, ErrHandlerNotFound, "role and lookup errors are joined")

	var re *HandlerRoleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "truthy", re.HandlerID)
	assert.Equal(t, RoleAction, re.Role)

	msg := err.Error()
	assert.Contains(t, msg, `transition "a->b:GO" guard: handler "set" cannot be used as guard`)
	assert.Contains(t, msg, `state "a" on_exit: handler "truthy" cannot be used as action`)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	reg := NewBuiltinRegistry()
	tests := []struct {
		id    string
		guard bool
		act   bool
	}{
		{"truthy", true, false},
		{"set", false, true},
		{"fail", false, true},
	}
	for _, tt := range tests {
		h, err := reg.Get(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.guard, Supports(h, RoleGuard), "%s as guard", tt.id)
		assert.Equal(t, tt.act, Supports(h, RoleAction), "%s as action", tt.id)
	}
}

func TestCompile_DocumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty workflow id",
			doc:     &Document{InitialState: "a", States: []StateDoc{{ID: "a"}}},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty state id",
			doc:     &Document{ID: "w", InitialState: "a", States: []StateDoc{{ID: "a"}, {ID: ""}}},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "duplicate state",
			doc:     &Document{ID: "w", InitialState: "a", States: []StateDoc{{ID: "a"}, {ID: "a"}}},
			wantErr: ErrInvalidDocument,
		},
		{
			name: "transition without target",
			doc: &Document{ID: "w", InitialState: "a", States: []StateDoc{
				{ID: "a", Transitions: []TransitionDoc{{Event: "GO"}}},
			}},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "unknown kind",
			doc:     &Document{ID: "w", InitialState: "a", States: []StateDoc{{ID: "a", Kind: "sleepy"}}},
			wantErr: ErrUnknownKind,
		},
		{
			name:    "missing initial state",
			doc:     &Document{ID: "w", InitialState: "zz", States: []StateDoc{{ID: "a"}}},
			wantErr: workflow.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def, err := Compile(tt.doc, NewRegistry())
			assert.Nil(t, def)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestCompile_DanglingTargetCompiles verifies that structural problems
// beyond the initial state are left to Lint.
func TestCompile_DanglingTargetCompiles(t *testing.T) {
	t.Parallel()

	def, err := Compile(&Document{ID: "w", InitialState: "a", States: []StateDoc{
		{ID: "a", Transitions: []TransitionDoc{{Event: "GO", Target: "ghost"}}},
	}}, nil)
	require.NoError(t, err)
	assert.False(t, workflow.Lint(def).IsValid())
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    workflow.StateKind
		wantErr bool
	}{
		{"", workflow.KindInput, false},
		{"input", workflow.KindInput, false},
		{"requires-input", workflow.KindInput, false},
		{"requires_input", workflow.KindInput, false},
		{"auto", workflow.KindAuto, false},
		{"Auto-Progress", workflow.KindAuto, false},
		{"auto_progress", workflow.KindAuto, false},
		{" terminal ", workflow.KindTerminal, false},
		{"final", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCompile_HandlerReceivesArgs verifies that each reference gets its own
// args map even when the handler is shared.
func TestCompile_HandlerReceivesArgs(t *testing.T) {
	t.Parallel()

	def := mustCompileJSON(t, `{
		"id": "w", "initial_state": "a",
		"states": [
			{"id": "a", "kind": "auto", "transitions": [
				{"target": "b", "action": {"id": "set", "args": {"key": "first", "value": 1}}}
			]},
			{"id": "b", "kind": "auto", "transitions": [
				{"target": "c", "action": {"id": "set", "args": {"key": "second", "value": 2}}}
			]},
			{"id": "c", "kind": "terminal"}
		]
	}`, NewBuiltinRegistry())

	data := Data{}
	inst, err := workflow.NewEngine[Data]().StartAndStabilize(context.Background(), def, data)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, inst.Status)
	assert.Equal(t, Data{"first": float64(1), "second": float64(2)}, data)
}

func TestCompileFile_WrapsPath(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "bad.json", `{"id": "w", "initial_state": "a", "states": [{"id": "a", "kind": "odd"}]}`)
	_, _, err := CompileFile(path, NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
