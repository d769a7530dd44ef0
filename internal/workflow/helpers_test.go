package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// testCtx is the context payload used throughout the engine tests. Hooks
// record their invocation order in calls so tests can assert exit -> action
// -> enter ordering.
type testCtx struct {
	mu    sync.Mutex
	Ready bool
	Count int
	calls []string
}

func (c *testCtx) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *testCtx) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// recordAction returns an Action that appends name to the context's calls.
func recordAction(name string) Action[*testCtx] {
	return func(_ context.Context, c *testCtx) error {
		c.record(name)
		return nil
	}
}

// failAction returns an Action that records name and fails with err.
func failAction(name string, err error) Action[*testCtx] {
	return func(_ context.Context, c *testCtx) error {
		c.record(name)
		return err
	}
}

// constGuard returns a Guard that records name and returns ok.
func constGuard(name string, ok bool) Guard[*testCtx] {
	return func(_ context.Context, c *testCtx) (bool, error) {
		c.record(name)
		return ok, nil
	}
}

// readyGuard passes when ctx.Ready is true.
func readyGuard(_ context.Context, c *testCtx) (bool, error) {
	return c.Ready, nil
}

// errGuard fails with err.
func errGuard(err error) Guard[*testCtx] {
	return func(_ context.Context, _ *testCtx) (bool, error) {
		return false, err
	}
}

var errBoom = errors.New("boom")

// stepClock returns a clock that advances one second per call, starting at
// a fixed instant, so history timestamps are deterministic and strictly
// increasing.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// seqIDs returns a generator producing "id-1", "id-2", ...
func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// newTestEngine returns an engine with a deterministic clock and id
// generator plus any extra options.
func newTestEngine(opts ...EngineOption) *Engine[*testCtx] {
	base := []EngineOption{WithClock(stepClock()), WithIDGenerator(seqIDs())}
	return NewEngine[*testCtx](append(base, opts...)...)
}

// scenarioDef builds the A -GO-> B -(ready)-> C workflow:
//
//	A (input) --GO--> B (auto) --[ctx.Ready]--> C (terminal)
func scenarioDef() *Definition[*testCtx] {
	return &Definition[*testCtx]{
		ID:           "scenario",
		InitialState: "A",
		States: map[string]*State[*testCtx]{
			"A": {ID: "A", Kind: KindInput, Transitions: []Transition[*testCtx]{
				{Target: "B", Event: "GO"},
			}},
			"B": {ID: "B", Kind: KindAuto, Transitions: []Transition[*testCtx]{
				{Target: "C", Guard: readyGuard},
			}},
			"C": {ID: "C", Kind: KindTerminal},
		},
	}
}

// chainDef builds a chain of auto states between an input start and a
// terminal end:
//
//	start (input) --GO--> auto-1 --> auto-2 ... --> auto-n --> end (terminal)
func chainDef(n int) *Definition[*testCtx] {
	states := map[string]*State[*testCtx]{
		"start": {ID: "start", Kind: KindInput, Transitions: []Transition[*testCtx]{
			{Target: "auto-1", Event: "GO"},
		}},
		"end": {ID: "end", Kind: KindTerminal},
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("auto-%d", i)
		next := fmt.Sprintf("auto-%d", i+1)
		if i == n {
			next = "end"
		}
		states[id] = &State[*testCtx]{ID: id, Kind: KindAuto, Transitions: []Transition[*testCtx]{
			{Target: next},
		}}
	}
	return &Definition[*testCtx]{ID: "chain", InitialState: "start", States: states}
}

// mustStart starts an instance and fails the test on error.
func mustStart(t testing.TB, eng *Engine[*testCtx], def *Definition[*testCtx], c *testCtx, opts ...StartOption) *Instance[*testCtx] {
	t.Helper()
	inst, err := eng.Start(def, c, opts...)
	require.NoError(t, err)
	require.NotNil(t, inst)
	return inst
}

// collectEvents drains the events channel into a slice. It must be called
// after the channel is closed.
func collectEvents(ch <-chan Event) []Event {
	var evs []Event
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

// eventTypes extracts the Type field from a slice of Events.
func eventTypes(evs []Event) []string {
	types := make([]string, 0, len(evs))
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	return types
}

// openEntries counts history entries without a LeftAt stamp.
func openEntries(h []HistoryEntry) int {
	n := 0
	for _, e := range h {
		if e.Open() {
			n++
		}
	}
	return n
}
