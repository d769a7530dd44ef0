package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/Waypoint/internal/workflow"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

var (
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	ColorInfo      = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorBorder    = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
	ColorHighlight = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
)

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds the lipgloss styles of the console. Widths and heights are
// applied at render time.
type Theme struct {
	TitleBar  lipgloss.Style
	TitleHint lipgloss.Style

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style

	StateCurrent  lipgloss.Style
	StateItem     lipgloss.Style
	StateTerminal lipgloss.Style

	EventItem     lipgloss.Style
	EventSelected lipgloss.Style

	LogTimestamp lipgloss.Style
	LogMessage   lipgloss.Style

	StatusBar       lipgloss.Style
	StatusKey       lipgloss.Style
	StatusValue     lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style

	HelpKey   lipgloss.Style
	HelpDesc  lipgloss.Style
	ErrorText lipgloss.Style
}

// DefaultTheme returns the console theme with adaptive colors.
func DefaultTheme() Theme {
	panel := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	return Theme{
		TitleBar: lipgloss.NewStyle().
			Bold(true).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1),
		TitleHint: lipgloss.NewStyle().
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#E0E0FF")),

		Panel:        panel,
		PanelFocused: panel.BorderForeground(ColorPrimary),
		PanelTitle:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),

		StateCurrent:  lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		StateItem:     lipgloss.NewStyle(),
		StateTerminal: lipgloss.NewStyle().Foreground(ColorMuted),

		EventItem: lipgloss.NewStyle(),
		EventSelected: lipgloss.NewStyle().
			Bold(true).
			Background(ColorHighlight).
			Foreground(ColorPrimary),

		LogTimestamp: lipgloss.NewStyle().Foreground(ColorMuted),
		LogMessage:   lipgloss.NewStyle(),

		StatusBar:       lipgloss.NewStyle().Padding(0, 1),
		StatusKey:       lipgloss.NewStyle().Foreground(ColorMuted),
		StatusValue:     lipgloss.NewStyle().Bold(true),
		StatusRunning:   lipgloss.NewStyle().Bold(true).Foreground(ColorInfo),
		StatusCompleted: lipgloss.NewStyle().Bold(true).Foreground(ColorSuccess),
		StatusFailed:    lipgloss.NewStyle().Bold(true).Foreground(ColorError),

		HelpKey:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
		HelpDesc:  lipgloss.NewStyle().Foreground(ColorMuted),
		ErrorText: lipgloss.NewStyle().Foreground(ColorError),
	}
}

// StatusStyle returns the style for an instance status label.
func (t Theme) StatusStyle(s workflow.Status) lipgloss.Style {
	switch s {
	case workflow.StatusCompleted:
		return t.StatusCompleted
	case workflow.StatusError:
		return t.StatusFailed
	default:
		return t.StatusRunning
	}
}
