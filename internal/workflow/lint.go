package workflow

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Issue code constants classify each LintIssue. Codes are stable strings so
// callers can switch on them.
const (
	// IssueNoStates is reported when the definition has no states at all.
	IssueNoStates = "NO_STATES"

	// IssueMissingInitial is reported when InitialState is empty or absent
	// from States. It is the only issue NewDefinition also rejects.
	IssueMissingInitial = "MISSING_INITIAL_STATE"

	// IssueEmptyStateID is reported when a state's ID is empty.
	IssueEmptyStateID = "EMPTY_STATE_ID"

	// IssueIDMismatch is reported when a state is registered under a key
	// that differs from its ID.
	IssueIDMismatch = "STATE_ID_MISMATCH"

	// IssueUnknownKind is reported when a state's Kind is not one of the
	// Kind* constants.
	IssueUnknownKind = "UNKNOWN_STATE_KIND"

	// IssueInvalidTarget is reported when a transition targets a state that
	// is not defined. The engine fails the instance if it is ever taken.
	IssueInvalidTarget = "INVALID_TRANSITION_TARGET"

	// IssueUnreachableState is reported when a state cannot be reached from
	// the initial state.
	IssueUnreachableState = "UNREACHABLE_STATE"

	// IssueAutoCycle is reported when auto states are linked into a cycle
	// of event-less transitions. With always-true guards the stabilizer
	// would never return.
	IssueAutoCycle = "AUTO_CYCLE"

	// IssueAutoNoExit is reported when an auto state has no event-less
	// transition; instances arriving there are stuck until an event fires.
	IssueAutoNoExit = "AUTO_STATE_WITHOUT_AUTO_TRANSITION"

	// IssueTerminalTransitions is reported when a terminal state declares
	// transitions; they can never be taken.
	IssueTerminalTransitions = "TERMINAL_STATE_HAS_TRANSITIONS"

	// IssueDeadAutoTransition is reported when an input state declares an
	// event-less transition; only auto states are stabilized.
	IssueDeadAutoTransition = "EVENTLESS_TRANSITION_ON_INPUT_STATE"
)

// LintIssue describes a single structural finding. Issues with a non-empty
// State field are associated with that state.
type LintIssue struct {
	Code    string
	State   string
	Message string
}

// LintResult holds the outcome of linting one definition. Errors describe
// definitions that will fail at run time; warnings describe definitions that
// run but may behave unexpectedly.
type LintResult struct {
	Errors   []LintIssue
	Warnings []LintIssue
}

// IsValid reports whether the definition has no errors.
func (r *LintResult) IsValid() bool {
	return len(r.Errors) == 0
}

// String returns a multi-line human-readable summary of all issues:
//
//	Errors (N):
//	  [CODE] state "id": message
//	Warnings (N):
//	  [CODE] state "id": message
func (r *LintResult) String() string {
	var b strings.Builder
	write := func(title string, issues []LintIssue) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(issues))
		for _, issue := range issues {
			if issue.State != "" {
				fmt.Fprintf(&b, "  [%s] state %q: %s\n", issue.Code, issue.State, issue.Message)
			} else {
				fmt.Fprintf(&b, "  [%s] %s\n", issue.Code, issue.Message)
			}
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	return b.String()
}

func (r *LintResult) addError(code, state, format string, args ...any) {
	r.Errors = append(r.Errors, LintIssue{Code: code, State: state, Message: fmt.Sprintf(format, args...)})
}

func (r *LintResult) addWarning(code, state, format string, args ...any) {
	r.Warnings = append(r.Warnings, LintIssue{Code: code, State: state, Message: fmt.Sprintf(format, args...)})
}

// Lint checks def for structural problems the engine itself tolerates. It
// is never called by the engine. States are visited in sorted id order so
// results are deterministic.
//
// Checks, in order:
//  1. Basic: no states, missing initial state, empty ids, key/id mismatch,
//     unknown kinds.
//  2. Transition targets must be defined states.
//  3. Kind consistency: terminal states with transitions, input states with
//     event-less transitions, auto states with no event-less transition.
//  4. Reachability from the initial state (BFS).
//  5. Cycles among event-less transitions between auto states (DFS with
//     three-color marking).
func Lint[C any](def *Definition[C]) *LintResult {
	result := &LintResult{}

	if def == nil || len(def.States) == 0 {
		result.addError(IssueNoStates, "", "workflow definition has no states")
		return result
	}

	ids := make([]string, 0, len(def.States))
	for id := range def.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Phase 1: basic checks.
	if def.InitialState == "" {
		result.addError(IssueMissingInitial, "", "initial state is empty; must reference a defined state")
	} else if _, ok := def.State(def.InitialState); !ok {
		result.addError(IssueMissingInitial, def.InitialState, "initial state %q is not defined", def.InitialState)
	}

	for _, id := range ids {
		s := def.States[id]
		if s == nil {
			result.addError(IssueEmptyStateID, id, "state %q is nil", id)
			continue
		}
		switch {
		case s.ID == "":
			result.addError(IssueEmptyStateID, id, "state registered under %q has an empty id", id)
		case s.ID != id:
			result.addError(IssueIDMismatch, id, "state registered under %q has id %q", id, s.ID)
		}
		switch s.Kind {
		case KindInput, KindAuto, KindTerminal:
		default:
			result.addError(IssueUnknownKind, id, "unknown kind %q", s.Kind)
		}
	}

	// Phase 2: transition targets.
	for _, id := range ids {
		s := def.States[id]
		if s == nil {
			continue
		}
		for _, t := range s.Transitions {
			if _, ok := def.State(t.Target); !ok {
				result.addError(IssueInvalidTarget, id, "transition %q targets unknown state %q", t.id(id), t.Target)
			}
		}
	}

	// Phase 3: kind consistency.
	for _, id := range ids {
		s := def.States[id]
		if s == nil {
			continue
		}
		switch s.Kind {
		case KindTerminal:
			if len(s.Transitions) > 0 {
				result.addWarning(IssueTerminalTransitions, id,
					"terminal state declares %d transitions that can never be taken", len(s.Transitions))
			}
		case KindInput:
			for _, t := range s.Transitions {
				if t.Event == "" {
					result.addWarning(IssueDeadAutoTransition, id,
						"event-less transition %q is never considered on an input state", t.id(id))
				}
			}
		case KindAuto:
			if !slices.ContainsFunc(s.Transitions, func(t Transition[C]) bool { return t.Event == "" }) {
				result.addWarning(IssueAutoNoExit, id,
					"auto state has no event-less transition; instances stop here")
			}
		}
	}

	initial, ok := def.State(def.InitialState)
	if !ok {
		return result
	}

	// Phase 4: reachability.
	reachable := map[string]bool{initial.ID: true}
	queue := []string{initial.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		s, ok := def.State(current)
		if !ok {
			continue
		}
		for _, t := range s.Transitions {
			if _, ok := def.State(t.Target); ok && !reachable[t.Target] {
				reachable[t.Target] = true
				queue = append(queue, t.Target)
			}
		}
	}
	for _, id := range ids {
		if !reachable[id] {
			result.addWarning(IssueUnreachableState, id,
				"state cannot be reached from initial state %q", def.InitialState)
		}
	}

	// Phase 5: auto cycles.
	adjacency := make(map[string][]string)
	for _, id := range ids {
		s := def.States[id]
		if s == nil || s.Kind != KindAuto {
			continue
		}
		for _, t := range s.Transitions {
			if target, ok := def.State(t.Target); ok && t.Event == "" && target.Kind == KindAuto {
				adjacency[id] = append(adjacency[id], t.Target)
			}
		}
	}

	const (
		colorWhite = 0
		colorGray  = 1
		colorBlack = 2
	)
	color := make(map[string]int, len(adjacency))
	reported := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		color[node] = colorGray
		path = append(path, node)
		for _, next := range adjacency[node] {
			switch color[next] {
			case colorGray:
				if reported[next] {
					continue
				}
				reported[next] = true
				start := slices.Index(path, next)
				cycle := append(slices.Clone(path[start:]), next)
				result.addWarning(IssueAutoCycle, next,
					"auto states form an event-less cycle: %s", strings.Join(cycle, " -> "))
			case colorWhite:
				dfs(next, path)
			}
		}
		color[node] = colorBlack
	}
	for _, id := range ids {
		if _, isAuto := adjacency[id]; isAuto && color[id] == colorWhite {
			dfs(id, nil)
		}
	}

	return result
}
