package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/session"
)

func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.waitForState(), b.waitForAdvance(), b.start(b.itemID))
}

// start launches itemID in the background. Everything the launch produces is
// tagged with a new generation.
func (b *statefulBubble) start(itemID string) tea.Cmd {
	b.gen++
	gen := b.gen
	launch := b.launch
	advances := b.advancesChannel

	b.itemID = itemID
	b.lastError = nil
	b.playback = playback.State{}
	b.setState(loadingState)

	onAdvance := func(next session.Handoff) {
		select {
		case advances <- advanceMsg{gen: gen, next: next}:
		default:
		}
	}

	return func() tea.Msg {
		s, err := launch(context.Background(), itemID, onAdvance)
		return launchedMsg{gen: gen, session: s, err: err}
	}
}

// attach pumps the session's states into the program. The channel holds only
// the latest state.
func (b *statefulBubble) attach(s *Session) {
	b.session = s

	gen := b.gen
	states := b.statesChannel
	b.sub = s.Controls.Subscribe(func(state playback.State) {
		msg := stateMsg{gen: gen, state: state}
		select {
		case states <- msg:
		default:
			select {
			case <-states:
			default:
			}
			select {
			case states <- msg:
			default:
			}
		}
	})
}

func (b *statefulBubble) waitForState() tea.Cmd {
	return func() tea.Msg {
		return <-b.statesChannel
	}
}

func (b *statefulBubble) waitForAdvance() tea.Cmd {
	return func() tea.Msg {
		return <-b.advancesChannel
	}
}
