// Package color holds the terminal palette.
package color

import "github.com/charmbracelet/lipgloss"

// New wraps a lipgloss color value.
func New(value string) lipgloss.Color {
	return lipgloss.Color(value)
}

// ANSI colors, so the palette follows the user's terminal theme.
var (
	Red    = New("1")
	Green  = New("2")
	Yellow = New("3")
	Blue   = New("4")
	Purple = New("5")
	Cyan   = New("6")

	HiRed    = New("9")
	HiPurple = New("13")
	HiCyan   = New("14")
)

// Player accents.
var (
	Accent   = New("#cba6f7")
	Text     = New("#cdd6f4")
	Muted    = New("#6c7086")
	Buffered = New("#45475a")
	Orange   = New("#ffb703")
)
