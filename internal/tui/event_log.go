package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// MaxEventLogEntries is the number of entries the event log retains. The
// oldest entry is evicted when the buffer is full.
const MaxEventLogEntries = 500

// EventCategory classifies an event log entry for colour-coded display.
type EventCategory int

const (
	EventInfo EventCategory = iota
	EventSuccess
	EventWarning
	EventError
	EventDebug
)

// EventEntry is a single line of the event log.
type EventEntry struct {
	Timestamp time.Time
	Category  EventCategory
	Message   string
}

// EventLogModel is the scrollable engine event panel.
type EventLogModel struct {
	theme      Theme
	width      int
	height     int
	focused    bool
	entries    []EventEntry
	viewport   viewport.Model
	autoScroll bool
	now        func() time.Time
}

// NewEventLogModel returns an empty log that follows new entries.
func NewEventLogModel(theme Theme) EventLogModel {
	return EventLogModel{
		theme:      theme,
		autoScroll: true,
		viewport:   viewport.New(0, 0),
		now:        time.Now,
	}
}

// SetDimensions resizes the log. One row is reserved for the header.
func (el *EventLogModel) SetDimensions(width, height int) {
	el.width = width
	el.height = height
	el.viewport.Width = width
	el.viewport.Height = max(height-1, 0)
	el.rebuildContent()
}

// SetFocused sets whether the log receives navigation keys.
func (el *EventLogModel) SetFocused(focused bool) {
	el.focused = focused
}

// Entries returns the retained entries, oldest first.
func (el EventLogModel) Entries() []EventEntry {
	return el.entries
}

// AddEntry appends a message stamped with the current time.
func (el *EventLogModel) AddEntry(category EventCategory, message string) {
	el.add(EventEntry{Timestamp: el.now(), Category: category, Message: message})
}

// AddEvent appends an engine event, keeping the engine's timestamp.
func (el *EventLogModel) AddEvent(ev workflow.Event) {
	cat, text := classifyEngineEvent(ev)
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = el.now()
	}
	el.add(EventEntry{Timestamp: ts, Category: cat, Message: text})
}

func (el *EventLogModel) add(entry EventEntry) {
	el.entries = append(el.entries, entry)
	if len(el.entries) > MaxEventLogEntries {
		el.entries = el.entries[len(el.entries)-MaxEventLogEntries:]
	}
	el.rebuildContent()
}

func (el *EventLogModel) rebuildContent() {
	lines := make([]string, len(el.entries))
	for i, e := range el.entries {
		lines[i] = el.formatEntry(e)
	}
	el.viewport.SetContent(strings.Join(lines, "\n"))
	if el.autoScroll {
		el.viewport.GotoBottom()
	}
}

func (el EventLogModel) formatEntry(entry EventEntry) string {
	ts := el.theme.LogTimestamp.Render(entry.Timestamp.Format("15:04:05"))
	return ts + " " + el.categoryStyle(entry.Category).Render(entry.Message)
}

func (el EventLogModel) categoryStyle(cat EventCategory) lipgloss.Style {
	switch cat {
	case EventSuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case EventWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case EventError:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	case EventDebug:
		return lipgloss.NewStyle().Foreground(ColorMuted)
	default:
		return el.theme.LogMessage
	}
}

// classifyEngineEvent maps an engine event to a category and a display line.
func classifyEngineEvent(ev workflow.Event) (EventCategory, string) {
	text := ev.Message
	if text == "" {
		text = ev.Type
	}
	if ev.Trigger != "" {
		text = ev.Trigger + ": " + text
	}
	if ev.Error != "" {
		text += " (" + ev.Error + ")"
	}

	switch ev.Type {
	case workflow.EventInstanceCompleted:
		return EventSuccess, text
	case workflow.EventDispatchIgnored:
		return EventWarning, text
	case workflow.EventTransitionFailed, workflow.EventInstanceFailed:
		return EventError, text
	case workflow.EventStabilized:
		return EventDebug, text
	default:
		return EventInfo, text
	}
}

// Update handles engine events, errors and, when focused, scroll keys.
func (el EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	switch msg := msg.(type) {
	case EngineEventMsg:
		el.AddEvent(msg.Event)
	case ErrorMsg:
		text := msg.Detail
		if msg.Source != "" {
			text = msg.Source + ": " + text
		}
		el.AddEntry(EventError, text)
	case tea.KeyMsg:
		if el.focused {
			return el.handleKey(msg)
		}
	}
	return el, nil
}

func (el EventLogModel) handleKey(msg tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		el.viewport.ScrollUp(1)
		el.autoScroll = false
	case "down", "j":
		el.viewport.ScrollDown(1)
	case "pgup":
		el.viewport.PageUp()
		el.autoScroll = false
	case "pgdown":
		el.viewport.PageDown()
	}
	if el.viewport.AtBottom() {
		el.autoScroll = true
	}
	return el, nil
}

// View renders the header and the visible part of the log.
func (el EventLogModel) View() string {
	if el.width == 0 || el.height == 0 {
		return ""
	}
	header := el.theme.PanelTitle.Render("Events log")
	if len(el.entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, el.theme.HelpDesc.Render("no events yet"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, el.viewport.View())
}
