package workflow

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Formatter renders definitions and instance snapshots as human-readable
// text. When styled is true, lipgloss ANSI styling is applied; when false,
// plain text is emitted.
type Formatter struct {
	writer io.Writer
	styled bool
}

// NewFormatter creates a Formatter writing to w.
func NewFormatter(w io.Writer, styled bool) *Formatter {
	return &Formatter{writer: w, styled: styled}
}

// Write writes s to the formatter's writer.
func (f *Formatter) Write(s string) {
	fmt.Fprint(f.writer, s)
}

// FormatDefinition renders the definition graph. States are numbered in BFS
// order from the initial state; unreachable states follow in sorted order.
// Transitions are listed in definition order, with back references shown as
// "(back to N)" rather than being expanded again.
func FormatDefinition[C any](f *Formatter, def *Definition[C]) string {
	if def == nil || len(def.States) == 0 {
		return "No states defined.\n"
	}

	numbers := make(map[string]int, len(def.States))
	var ordered []string
	visit := func(id string) bool {
		if _, seen := numbers[id]; seen {
			return false
		}
		if _, ok := def.State(id); !ok {
			return false
		}
		ordered = append(ordered, id)
		numbers[id] = len(ordered)
		return true
	}

	queue := []string{}
	if visit(def.InitialState) {
		queue = append(queue, def.InitialState)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		s, _ := def.State(current)
		for _, t := range s.Transitions {
			if visit(t.Target) {
				queue = append(queue, t.Target)
			}
		}
	}
	var rest []string
	for id := range def.States {
		if _, seen := numbers[id]; !seen {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		visit(id)
	}

	headerStyle := lipgloss.NewStyle()
	stateStyle := lipgloss.NewStyle()
	transitionStyle := lipgloss.NewStyle()
	if f.styled {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("12"))
		stateStyle = stateStyle.Bold(true)
		transitionStyle = transitionStyle.Faint(true)
	}

	var sb strings.Builder
	header := fmt.Sprintf("Workflow: %s", def.ID)
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n\n")

	for _, id := range ordered {
		n := numbers[id]
		s, _ := def.State(id)

		label := fmt.Sprintf("%s [%s]", id, s.Kind)
		if id == def.InitialState {
			label += " (initial)"
		}
		fmt.Fprintf(&sb, "  %d. %s\n", n, stateStyle.Render(label))

		for _, t := range s.Transitions {
			trigger := t.Event
			if trigger == "" {
				trigger = AutoEvent
			}
			if t.Guard != nil {
				trigger += " [guarded]"
			}

			target := t.Target
			switch tn, known := numbers[t.Target]; {
			case !known:
				target += " (undefined)"
			case tn <= n:
				target = fmt.Sprintf("%s (back to %d)", target, tn)
			}
			sb.WriteString(transitionStyle.Render(fmt.Sprintf("     -> %s: %s", trigger, target)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatInstance renders a snapshot's status line followed by its history,
// one entry per line in visit order.
func FormatInstance[C any](f *Formatter, inst *Instance[C]) string {
	if inst == nil {
		return "No instance.\n"
	}

	statusStyle := lipgloss.NewStyle()
	errorStyle := lipgloss.NewStyle()
	openStyle := lipgloss.NewStyle()
	if f.styled {
		switch inst.Status {
		case StatusCompleted:
			statusStyle = statusStyle.Bold(true).Foreground(lipgloss.Color("10"))
		case StatusError:
			statusStyle = statusStyle.Bold(true).Foreground(lipgloss.Color("9"))
		default:
			statusStyle = statusStyle.Bold(true).Foreground(lipgloss.Color("12"))
		}
		errorStyle = errorStyle.Foreground(lipgloss.Color("9"))
		openStyle = openStyle.Bold(true)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Instance %s (%s): %s at %q\n",
		inst.InstanceID, inst.WorkflowID, statusStyle.Render(string(inst.Status)), inst.CurrentState)
	if inst.Err != nil {
		sb.WriteString(errorStyle.Render("  error: " + inst.Err.Error()))
		sb.WriteString("\n")
	}

	for i, h := range inst.History {
		via := "start"
		if h.TransitionID != "" {
			via = h.TransitionID
			if h.Event != "" {
				via += " on " + h.Event
			}
		}
		left := h.LeftAt
		if h.Open() {
			left = "-"
		}
		line := fmt.Sprintf("  %2d. %-16s %s .. %s  (%s)", i+1, h.StateID, h.EnteredAt, left, via)
		if h.Open() {
			line = openStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
