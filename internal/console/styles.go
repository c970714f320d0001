// Package console renders bridge and runner activity for an operator.
//
// A Printer subscribes to an event.Bus and echoes every transition in the
// line-oriented format the bridge scripts have always used ("[BRIDGE] ...",
// "[n/N] SENDING ..."). Output is styled with lipgloss when it goes to a
// terminal and left plain otherwise, so redirected output stays greppable.
package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors meet WCAG AA contrast on dark terminals.
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	InfoColor      = lipgloss.Color("#60A5FA") // Blue
)

// Styles holds the styles a Printer renders with.
type Styles struct {
	Title   lipgloss.Style
	Rule    lipgloss.Style
	Tag     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds the default styles on renderer r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(PrimaryColor),
		Rule:    r.NewStyle().Foreground(MutedColor),
		Tag:     r.NewStyle().Bold(true).Foreground(InfoColor),
		Success: r.NewStyle().Foreground(SecondaryColor),
		Warning: r.NewStyle().Foreground(WarningColor),
		Error:   r.NewStyle().Bold(true).Foreground(ErrorColor),
		Muted:   r.NewStyle().Foreground(MutedColor),
		Info:    r.NewStyle().Foreground(InfoColor),
	}
}

// StatusStyle returns the style for a ledger status wire value.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ready", "idle":
		return s.Muted
	case "sending":
		return s.Info
	case "response_ready":
		return s.Success
	case "timeout":
		return s.Warning
	case "error":
		return s.Error
	default:
		return s.Muted
	}
}

// LevelStyle returns the style for a log level name.
func (s Styles) LevelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return s.Muted
	case "INFO":
		return s.Info
	case "WARN":
		return s.Warning
	case "ERROR":
		return s.Error
	default:
		return lipgloss.NewStyle()
	}
}
