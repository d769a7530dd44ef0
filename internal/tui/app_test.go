package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/compiler"
)

// update applies msg and returns the concrete App.
func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	next, ok := m.(App)
	require.True(t, ok)
	return next, cmd
}

func sized(t *testing.T, a App) App {
	t.Helper()
	a, _ = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyQuit  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
	keyHelp  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")}
)

// ---------------------------------------------------------------------------
// View states
// ---------------------------------------------------------------------------

func TestApp_ViewBeforeResize(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	assert.Equal(t, "Initializing Waypoint console...", a.View())
	assert.NotNil(t, a.Init())
}

func TestApp_TerminalTooSmall(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a, _ = update(t, a, tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Contains(t, a.View(), "Terminal too small")
}

func TestApp_FullView(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a = sized(t, a)
	a, _ = update(t, a, AvailableEventsMsg{Revision: 1, Events: []string{"OPEN"}})

	view := a.View()
	assert.Contains(t, view, "Waypoint v1.2.3")
	assert.Contains(t, view, "door")
	assert.Contains(t, view, "▸ closed (input)")
	assert.Contains(t, view, "locked (terminal)")
	assert.Contains(t, view, "> OPEN")
	assert.Contains(t, view, "History")
	assert.Contains(t, view, "status running")
}

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

func TestApp_Quit(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a, cmd := update(t, sized(t, a), keyQuit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, a.View())
}

func TestApp_FireSelectedEvent(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, compiler.Data{"has_key": true})
	a = sized(t, a)
	a, _ = update(t, a, AvailableEventsMsg{Revision: 1, Events: []string{"OPEN", "LOCK"}})

	a, _ = update(t, a, keyDown)
	a, cmd := update(t, a, keyEnter)
	require.NotNil(t, cmd)

	dm, ok := cmd().(DispatchedMsg)
	require.True(t, ok)
	assert.Equal(t, "LOCK", dm.Event)
	assert.True(t, dm.Transitioned)

	a, cmd = update(t, a, dm)
	assert.NotNil(t, cmd, "a dispatch refreshes the available events")

	snap := a.config.Session.Snapshot()
	a, _ = update(t, a, SnapshotMsg{Snapshot: snap})
	assert.Equal(t, "locked", a.Snapshot().CurrentState)
	assert.Contains(t, a.View(), "status completed")
}

func TestApp_FireWithoutEventsIsNoop(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	_, cmd := update(t, sized(t, a), keyEnter)
	assert.Nil(t, cmd)
}

func TestApp_CursorStaysInRange(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a = sized(t, a)
	a, _ = update(t, a, AvailableEventsMsg{Revision: 1, Events: []string{"OPEN", "LOCK"}})

	a, _ = update(t, a, keyUp)
	assert.Equal(t, 0, a.cursor)
	for range 5 {
		a, _ = update(t, a, keyDown)
	}
	assert.Equal(t, 1, a.cursor)

	a, _ = update(t, a, AvailableEventsMsg{Revision: 2, Events: []string{"OPEN"}})
	assert.Equal(t, 0, a.cursor, "cursor is clamped when the list shrinks")
}

func TestApp_StaleAvailableEventsDropped(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a, _ = update(t, a, AvailableEventsMsg{Revision: 3, Events: []string{"CLOSE"}})
	a, _ = update(t, a, AvailableEventsMsg{Revision: 2, Events: []string{"OPEN"}})
	assert.Equal(t, []string{"CLOSE"}, a.Available())
}

func TestApp_AvailableEventsError(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a, _ = update(t, a, AvailableEventsMsg{Revision: 1, Events: []string{"OPEN"}})
	a, _ = update(t, a, AvailableEventsMsg{Revision: 2, Err: errors.New("guard exploded")})

	assert.Empty(t, a.Available())
	entries := a.eventLog.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "guards: guard exploded", entries[len(entries)-1].Message)
}

func TestApp_FocusCycling(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	assert.Equal(t, FocusEvents, a.Focus())

	a, _ = update(t, a, keyTab)
	assert.Equal(t, FocusHistory, a.Focus())
	a, _ = update(t, a, keyTab)
	assert.Equal(t, FocusLog, a.Focus())
	assert.True(t, a.eventLog.focused)

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, FocusHistory, a.Focus())
	assert.False(t, a.eventLog.focused)
}

func TestApp_HelpOverlay(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a = sized(t, a)

	a, _ = update(t, a, keyHelp)
	assert.Contains(t, a.View(), "Press ? or Esc to close")

	_, cmd := update(t, a, keyQuit)
	assert.Nil(t, cmd, "keys go to the overlay while it is open")

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, a.View(), "Press ? or Esc to close")
}

// ---------------------------------------------------------------------------
// Engine events and dispatch notices
// ---------------------------------------------------------------------------

func TestApp_EngineEventsReachLog(t *testing.T) {
	t.Parallel()

	a, events := newTestApp(t, nil)
	ev := <-events

	a, cmd := update(t, a, EngineEventMsg{Event: ev})
	assert.NotNil(t, cmd, "the app keeps reading the channel")
	require.Len(t, a.eventLog.Entries(), 1)
}

func TestApp_IgnoredDispatchNotice(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, nil)
	a = sized(t, a)
	a, _ = update(t, a, DispatchedMsg{Event: "CLOSE"})
	assert.Contains(t, a.View(), `CLOSE ignored in "closed"`)

	a, _ = update(t, a, DispatchedMsg{Event: "OPEN", Err: errors.New("session closed")})
	assert.Contains(t, a.View(), "session closed")
}
