// Package tui is the terminal shell around a playback session: it renders the
// session state, maps keys to commands and rebuilds the session when playback
// moves on to the next item or the user retries after a failure.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Options configure the shell.
type Options struct {
	ItemID string
	// Title is shown while the first item loads.
	Title string

	Launch LaunchFunc

	// SeekStep is in seconds, VolumeStep in [0, 1].
	SeekStep   float64
	VolumeStep float64
}

// Run blocks until the user quits. The last session is closed on return.
func Run(options *Options) error {
	bubble := newBubble(options)
	defer bubble.closeSession()

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
