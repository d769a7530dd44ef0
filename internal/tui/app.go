// Package tui implements the Waypoint console, an interactive Bubble Tea
// front end that drives one workflow instance through its session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/logging"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/session"
	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// Minimum terminal size the console renders its layout at.
const (
	MinWidth  = 80
	MinHeight = 24
)

// snapshotBuffer is the number of snapshots queued for the console before
// the session starts dropping intermediate ones.
const snapshotBuffer = 16

// AppConfig holds what the console needs to run.
type AppConfig struct {
	// Version is shown in the title bar.
	Version string
	// Session is the instance the console drives.
	Session *session.Session
	// Events is the engine event channel, or nil when the engine was built
	// without one.
	Events <-chan workflow.Event
}

// App is the top-level Bubble Tea model of the console.
type App struct {
	config AppConfig
	bridge EventBridge
	theme  Theme
	keys   KeyMap

	width    int
	height   int
	ready    bool
	quitting bool
	focus    FocusPanel

	snapshot session.Snapshot
	snapCh   <-chan session.Snapshot
	unsub    func()

	available    []string
	availableRev uint64
	cursor       int
	notice       string

	history  viewport.Model
	eventLog EventLogModel
	help     help.Model
	overlay  HelpOverlay
}

// NewApp builds the console model and subscribes to the session.
func NewApp(ctx context.Context, cfg AppConfig) App {
	theme := DefaultTheme()
	keys := DefaultKeyMap()
	snapCh, unsub := cfg.Session.Subscribe(snapshotBuffer)

	a := App{
		config:   cfg,
		bridge:   NewEventBridge(ctx, cfg.Session),
		theme:    theme,
		keys:     keys,
		focus:    FocusEvents,
		snapshot: cfg.Session.Snapshot(),
		snapCh:   snapCh,
		unsub:    unsub,
		history:  viewport.New(0, 0),
		eventLog: NewEventLogModel(theme),
		help:     help.New(),
		overlay:  NewHelpOverlay(theme, keys),
	}
	a.refreshHistory()
	return a
}

// Init starts reading session snapshots and engine events, and computes the
// initial list of available events.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.bridge.SnapshotCmd(a.snapCh),
		a.bridge.EngineEventCmd(a.config.Events),
		a.bridge.AvailableEventsCmd(),
	)
}

// Update handles terminal, keyboard and session messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.ready = true
		a.overlay.SetDimensions(m.Width, m.Height)
		a.help.Width = m.Width
		a.layout()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(m)

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.Update(m)
		return a, cmd

	case SnapshotMsg:
		a.snapshot = m.Snapshot
		a.refreshHistory()
		return a, tea.Batch(a.bridge.SnapshotCmd(a.snapCh), a.bridge.AvailableEventsCmd())

	case EngineEventMsg:
		a.eventLog, _ = a.eventLog.Update(m)
		return a, a.bridge.EngineEventCmd(a.config.Events)

	case DispatchedMsg:
		switch {
		case m.Err != nil:
			a.notice = m.Err.Error()
			a.eventLog, _ = a.eventLog.Update(ErrorMsg{Source: "dispatch", Detail: m.Err.Error()})
		case !m.Transitioned:
			a.notice = fmt.Sprintf("%s ignored in %q", m.Event, a.snapshot.CurrentState)
		default:
			a.notice = fmt.Sprintf("%s fired", m.Event)
		}
		return a, a.bridge.AvailableEventsCmd()

	case AvailableEventsMsg:
		if m.Revision < a.availableRev {
			return a, nil
		}
		a.availableRev = m.Revision
		if m.Err != nil {
			a.eventLog, _ = a.eventLog.Update(ErrorMsg{Source: "guards", Detail: m.Err.Error()})
			m.Events = nil
		}
		a.available = m.Events
		a.cursor = min(a.cursor, max(len(a.available)-1, 0))
		return a, nil

	case ErrorMsg:
		a.eventLog, _ = a.eventLog.Update(m)
		return a, nil
	}

	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.overlay.IsVisible() {
		var cmd tea.Cmd
		a.overlay, cmd = a.overlay.Update(msg)
		return a, cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quitting = true
		if a.unsub != nil {
			a.unsub()
		}
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.overlay.Toggle()
		return a, nil
	case key.Matches(msg, a.keys.FocusNext):
		a.setFocus(NextFocus(a.focus))
		return a, nil
	case key.Matches(msg, a.keys.FocusPrev):
		a.setFocus(PrevFocus(a.focus))
		return a, nil
	case key.Matches(msg, a.keys.Refresh):
		return a, a.bridge.AvailableEventsCmd()
	case key.Matches(msg, a.keys.Fire):
		if a.focus != FocusEvents || len(a.available) == 0 {
			return a, nil
		}
		return a, a.bridge.DispatchCmd(a.available[a.cursor])
	}

	switch a.focus {
	case FocusEvents:
		switch {
		case key.Matches(msg, a.keys.Up):
			a.cursor = max(a.cursor-1, 0)
		case key.Matches(msg, a.keys.Down):
			a.cursor = min(a.cursor+1, max(len(a.available)-1, 0))
		}
	case FocusHistory:
		switch {
		case key.Matches(msg, a.keys.Up):
			a.history.ScrollUp(1)
		case key.Matches(msg, a.keys.Down):
			a.history.ScrollDown(1)
		case key.Matches(msg, a.keys.PageUp):
			a.history.PageUp()
		case key.Matches(msg, a.keys.PageDown):
			a.history.PageDown()
		}
	case FocusLog:
		a.eventLog, _ = a.eventLog.Update(msg)
	}
	return a, nil
}

func (a *App) setFocus(f FocusPanel) {
	a.focus = f
	a.eventLog.SetFocused(f == FocusLog)
}

// Available returns the events that can currently fire.
func (a App) Available() []string { return a.available }

// Focus returns the panel that has keyboard focus.
func (a App) Focus() FocusPanel { return a.focus }

// Snapshot returns the last snapshot the console rendered.
func (a App) Snapshot() session.Snapshot { return a.snapshot }

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

// panelSizes splits the body into a left column and two stacked right
// panels. All sizes include borders.
func (a App) panelSizes() (leftW, rightW, bodyH, historyH, logH int) {
	bodyH = max(a.height-3, 0) // title, status, help
	leftW = a.width / 3
	rightW = a.width - leftW
	historyH = bodyH / 2
	logH = bodyH - historyH
	return
}

func (a *App) layout() {
	_, rightW, _, historyH, logH := a.panelSizes()
	a.history.Width = max(rightW-4, 0)
	a.history.Height = max(historyH-3, 0)
	a.eventLog.SetDimensions(max(rightW-4, 0), max(logH-2, 0))
}

func (a *App) refreshHistory() {
	f := workflow.NewFormatter(io.Discard, true)
	a.history.SetContent(workflow.FormatInstance(f, a.snapshot))
	a.history.GotoBottom()
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the console.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Initializing Waypoint console..."
	}
	if a.width < MinWidth || a.height < MinHeight {
		return terminalTooSmallView()
	}
	if a.overlay.IsVisible() {
		return a.overlay.View()
	}
	return a.fullView()
}

func terminalTooSmallView() string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWarning).
		Render(fmt.Sprintf("Terminal too small. Please resize to at least %dx%d.", MinWidth, MinHeight))
}

func (a App) fullView() string {
	leftW, rightW, bodyH, historyH, logH := a.panelSizes()

	left := a.panelStyle(FocusEvents, leftW, bodyH).Render(a.renderLeft())
	history := a.panelStyle(FocusHistory, rightW, historyH).Render(
		lipgloss.JoinVertical(lipgloss.Left, a.theme.PanelTitle.Render("History"), a.history.View()))
	events := a.panelStyle(FocusLog, rightW, logH).Render(a.eventLog.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.JoinVertical(lipgloss.Left, history, events))
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTitleBar(),
		body,
		a.renderStatusBar(),
		a.help.View(a.keys),
	)
}

// panelStyle sizes a bordered panel so that its outer box is w x h.
func (a App) panelStyle(panel FocusPanel, w, h int) lipgloss.Style {
	style := a.theme.Panel
	if a.focus == panel {
		style = a.theme.PanelFocused
	}
	return style.Width(max(w-2, 0)).Height(max(h-2, 0))
}

func (a App) renderTitleBar() string {
	def := a.config.Session.Definition()
	title := fmt.Sprintf("Waypoint v%s", a.config.Version)
	hint := fmt.Sprintf("  %s  |  instance %s", def.ID, a.snapshot.InstanceID)
	return a.theme.TitleBar.Width(a.width).Render(title + a.theme.TitleHint.Render(hint))
}

func (a App) renderLeft() string {
	def := a.config.Session.Definition()
	var sb strings.Builder

	sb.WriteString(a.theme.PanelTitle.Render("States"))
	sb.WriteString("\n")
	for _, id := range slices.Sorted(maps.Keys(def.States)) {
		st := def.States[id]
		line := fmt.Sprintf("  %s (%s)", id, st.Kind)
		switch {
		case id == a.snapshot.CurrentState:
			line = a.theme.StateCurrent.Render("▸ " + id + " (" + string(st.Kind) + ")")
		case st.Kind == workflow.KindTerminal:
			line = a.theme.StateTerminal.Render(line)
		default:
			line = a.theme.StateItem.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(a.theme.PanelTitle.Render("Events"))
	sb.WriteString("\n")
	if len(a.available) == 0 {
		sb.WriteString(a.theme.HelpDesc.Render("  no events can fire"))
		sb.WriteString("\n")
	}
	for i, ev := range a.available {
		if i == a.cursor && a.focus == FocusEvents {
			sb.WriteString(a.theme.EventSelected.Render("> " + ev))
		} else {
			sb.WriteString(a.theme.EventItem.Render("  " + ev))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (a App) renderStatusBar() string {
	snap := a.snapshot
	parts := []string{
		a.theme.StatusKey.Render("state ") + a.theme.StatusValue.Render(snap.CurrentState),
		a.theme.StatusKey.Render("status ") + a.theme.StatusStyle(snap.Status).Render(string(snap.Status)),
		a.theme.StatusKey.Render("visits ") + a.theme.StatusValue.Render(fmt.Sprint(len(snap.History))),
	}
	if snap.Err != nil {
		parts = append(parts, a.theme.ErrorText.Render(snap.Err.Error()))
	} else if a.notice != "" {
		parts = append(parts, a.theme.HelpDesc.Render(a.notice))
	}
	return a.theme.StatusBar.Width(a.width).Render(strings.Join(parts, "  "))
}

// ---------------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------------

// RunConsole runs the console full screen until the user quits or ctx is
// cancelled. Cell-motion mouse reporting keeps text selectable.
func RunConsole(ctx context.Context, cfg AppConfig) error {
	logger := logging.New("console")
	def := cfg.Session.Definition()
	logger.Debug("starting console", "workflow", def.ID, "instance", cfg.Session.Snapshot().InstanceID)

	app := NewApp(ctx, cfg)
	defer app.unsub()

	p := tea.NewProgram(app,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("running console: %w", err)
	}

	snap := cfg.Session.Snapshot()
	logger.Info("console closed", "state", snap.CurrentState, "status", snap.Status)
	return nil
}
