package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ---------------------------------------------------------------------------
// KeyMap
// ---------------------------------------------------------------------------

// KeyMap defines the console keybindings. Up and Down move the event cursor
// when the events panel has focus and scroll otherwise.
type KeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Fire      key.Binding
	Refresh   key.Binding
	FocusNext key.Binding
	FocusPrev key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

// DefaultKeyMap returns the default console keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Fire: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "fire event"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "re-evaluate guards"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev panel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Fire, k.Up, k.Down, k.FocusNext, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Fire, k.Refresh},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.FocusNext, k.FocusPrev, k.Help, k.Quit},
	}
}

// ---------------------------------------------------------------------------
// Focus cycling
// ---------------------------------------------------------------------------

// FocusPanel identifies the panel that receives navigation keys.
type FocusPanel int

const (
	FocusEvents FocusPanel = iota
	FocusHistory
	FocusLog
)

const focusPanelCount = 3

// NextFocus returns the next panel: events -> history -> log -> events.
func NextFocus(current FocusPanel) FocusPanel {
	return FocusPanel((int(current) + 1) % focusPanelCount)
}

// PrevFocus returns the previous panel in the cycle.
func PrevFocus(current FocusPanel) FocusPanel {
	return FocusPanel((int(current) + focusPanelCount - 1) % focusPanelCount)
}

// ---------------------------------------------------------------------------
// HelpOverlay
// ---------------------------------------------------------------------------

// HelpOverlay is a centered keybinding reference drawn over the console.
type HelpOverlay struct {
	theme   Theme
	keyMap  KeyMap
	visible bool
	width   int
	height  int
}

// NewHelpOverlay creates a hidden HelpOverlay.
func NewHelpOverlay(theme Theme, keyMap KeyMap) HelpOverlay {
	return HelpOverlay{theme: theme, keyMap: keyMap}
}

// SetDimensions updates the terminal dimensions used to center the overlay.
func (h *HelpOverlay) SetDimensions(width, height int) {
	h.width = width
	h.height = height
}

// Toggle flips the visibility of the help overlay.
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// IsVisible reports whether the overlay is currently shown.
func (h HelpOverlay) IsVisible() bool {
	return h.visible
}

// Update closes the overlay on '?' or Esc and swallows every other key.
func (h HelpOverlay) Update(msg tea.Msg) (HelpOverlay, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, h.keyMap.Help) || keyMsg.Type == tea.KeyEsc {
			h.visible = false
		}
	}
	return h, nil
}

// View renders the overlay, or "" when hidden or before the first resize.
func (h HelpOverlay) View() string {
	if !h.visible || h.width == 0 || h.height == 0 {
		return ""
	}
	boxed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Render(h.buildContent())
	return lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, boxed)
}

func (h HelpOverlay) buildContent() string {
	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Render("Waypoint console"))
	sb.WriteString("\n\n")

	section := lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	groups := []struct {
		title    string
		bindings []key.Binding
	}{
		{"Events", []key.Binding{h.keyMap.Fire, h.keyMap.Refresh}},
		{"Navigation", []key.Binding{h.keyMap.Up, h.keyMap.Down, h.keyMap.PageUp, h.keyMap.PageDown, h.keyMap.FocusNext, h.keyMap.FocusPrev}},
		{"General", []key.Binding{h.keyMap.Help, h.keyMap.Quit}},
	}
	for _, g := range groups {
		sb.WriteString(section.Render(g.title))
		sb.WriteString("\n")
		for _, b := range g.bindings {
			sb.WriteString(h.bindingLine(b))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(ColorMuted).Italic(true).Render("Press ? or Esc to close"))
	return sb.String()
}

// bindingLine formats a single key.Binding as "  KEY  description\n".
func (h HelpOverlay) bindingLine(b key.Binding) string {
	return "  " + h.theme.HelpKey.Render(b.Help().Key) + "  " + h.theme.HelpDesc.Render(b.Help().Desc) + "\n"
}
