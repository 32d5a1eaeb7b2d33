// Package ui renders the board for the terminal and hosts the HTTP handler shell.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/beadboard/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
)

// Theme holds the styles for one renderer, so colour decisions follow the
// output the board is written to rather than the process's stdout.
type Theme struct {
	Pass     lipgloss.Style
	Warn     lipgloss.Style
	Fail     lipgloss.Style
	Muted    lipgloss.Style
	Accent   lipgloss.Style
	Category lipgloss.Style
	Column   lipgloss.Style
	Emoji    bool
}

// NewTheme builds the board styles for r.
func NewTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Pass:     r.NewStyle().Foreground(ColorPass),
		Warn:     r.NewStyle().Foreground(ColorWarn),
		Fail:     r.NewStyle().Foreground(ColorFail),
		Muted:    r.NewStyle().Foreground(ColorMuted),
		Accent:   r.NewStyle().Foreground(ColorAccent),
		Category: r.NewStyle().Bold(true).Foreground(ColorAccent),
		Column: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1),
		Emoji: ShouldUseEmoji(),
	}
}

// Icon returns icon when emoji output is on, otherwise fallback.
func (t Theme) Icon(icon, fallback string) string {
	if t.Emoji {
		return icon
	}
	return fallback
}

// SeverityStyle colours a severity: 3 and above fail, 2 warns, lower is muted.
func (t Theme) SeverityStyle(severity int) lipgloss.Style {
	switch {
	case severity >= 3:
		return t.Fail
	case severity == 2:
		return t.Warn
	default:
		return t.Muted
	}
}

// PriorityStyle colours a priority label.
func (t Theme) PriorityStyle(p types.Priority) lipgloss.Style {
	switch p {
	case types.PriorityHigh:
		return t.Fail
	case types.PriorityMedium:
		return t.Warn
	default:
		return t.Pass
	}
}
