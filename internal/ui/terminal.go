package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor follows the NO_COLOR and CLICOLOR conventions, falling
// back to whether stdout is a terminal.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether icons may be printed. BB_NO_EMOJI disables them.
func ShouldUseEmoji() bool {
	if os.Getenv("BB_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// NewRenderer returns a lipgloss renderer for w with the colour profile
// chosen by ShouldUseColor.
func NewRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch {
	case !ShouldUseColor():
		r.SetColorProfile(termenv.Ascii)
	case !IsTerminal():
		// CLICOLOR_FORCE into a pipe: detection would report no colour.
		r.SetColorProfile(termenv.ANSI256)
	}
	return r
}
