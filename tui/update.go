package tui

import (
	"errors"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/util"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd
	case launchedMsg:
		return b, b.onLaunched(msg)
	case stateMsg:
		return b, tea.Batch(b.onState(msg), b.waitForState())
	case advanceMsg:
		if msg.gen != b.gen {
			return b, b.waitForAdvance()
		}
		b.closeSession()
		b.title = msg.next.Title
		return b, tea.Batch(b.waitForAdvance(), b.start(msg.next.ItemID))
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.forceQuit) {
			b.closeSession()
			return b, tea.Quit
		}

		if b.session != nil {
			b.session.Controls.ResetHideTimer()
		}

		switch b.state {
		case loadingState:
			return b.updateLoading(msg)
		case playingState:
			return b.updatePlaying(msg)
		case settingsState:
			return b.updateSettings(msg)
		case errorState:
			return b.updateError(msg)
		}
	}

	return b, nil
}

func (b *statefulBubble) onLaunched(msg launchedMsg) tea.Cmd {
	if msg.gen != b.gen {
		msg.session.Close()
		return nil
	}

	if msg.err != nil {
		b.raiseError(msg.err)
		return nil
	}

	b.attach(msg.session)
	b.setState(playingState)
	return nil
}

func (b *statefulBubble) onState(msg stateMsg) tea.Cmd {
	if msg.gen != b.gen || b.session == nil {
		return nil
	}

	b.playback = msg.state

	if msg.state.Phase != playback.Failed {
		return nil
	}

	// the user closed the player window
	if msg.state.Failure == playback.ErrSurfaceClosed.Error() {
		b.closeSession()
		return tea.Quit
	}

	b.raiseError(errors.New(msg.state.Failure))
	return nil
}

func (b *statefulBubble) updateLoading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case bubblesKey.Matches(msg, b.keymap.quit, b.keymap.back):
		b.closeSession()
		return b, tea.Quit
	}
	return b, nil
}

func (b *statefulBubble) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := b.session.Controls

	switch {
	case bubblesKey.Matches(msg, b.keymap.quit, b.keymap.back):
		b.closeSession()
		return b, tea.Quit
	case bubblesKey.Matches(msg, b.keymap.playPause):
		c.TogglePlay()
	case bubblesKey.Matches(msg, b.keymap.seekBack):
		c.SeekBy(-b.seekStep)
	case bubblesKey.Matches(msg, b.keymap.seekForward):
		c.SeekBy(b.seekStep)
	case bubblesKey.Matches(msg, b.keymap.volumeUp):
		c.SetVolume(util.Clamp(b.playback.Volume+b.volumeStep, 0, 1))
	case bubblesKey.Matches(msg, b.keymap.volumeDown):
		c.SetVolume(util.Clamp(b.playback.Volume-b.volumeStep, 0, 1))
	case bubblesKey.Matches(msg, b.keymap.mute):
		c.ToggleMute()
	case bubblesKey.Matches(msg, b.keymap.fullscreen):
		c.ToggleFullscreen()
	case bubblesKey.Matches(msg, b.keymap.skipIntro):
		c.SkipIntro()
	case bubblesKey.Matches(msg, b.keymap.next):
		c.AdvanceToNext()
	case bubblesKey.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case bubblesKey.Matches(msg, b.keymap.settings):
		items := settingsItems(c.State())
		if len(items) == 0 {
			return b, nil
		}
		cmd := b.settingsC.SetItems(items)
		b.settingsC.ResetSelected()
		c.SetSettingsOpen(true)
		b.setState(settingsState)
		return b, cmd
	}

	return b, nil
}

func (b *statefulBubble) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := b.session.Controls

	switch {
	case bubblesKey.Matches(msg, b.keymap.back, b.keymap.settings):
		c.SetSettingsOpen(false)
		b.setState(playingState)
		return b, nil
	case bubblesKey.Matches(msg, b.keymap.confirm):
		item, ok := b.settingsC.SelectedItem().(*listItem)
		if !ok {
			return b, nil
		}

		switch item.kind {
		case audioSetting:
			c.SetAudioTrack(item.index.MustGet())
		case subtitleSetting:
			c.SetSubtitleTrack(item.index)
		case qualitySetting:
			c.SetQuality(item.index)
		}

		c.SetSettingsOpen(false)
		b.setState(playingState)
		return b, nil
	}

	var cmd tea.Cmd
	b.settingsC, cmd = b.settingsC.Update(msg)
	return b, cmd
}

func (b *statefulBubble) updateError(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case bubblesKey.Matches(msg, b.keymap.retry):
		b.closeSession()
		return b, b.start(b.itemID)
	case bubblesKey.Matches(msg, b.keymap.quit, b.keymap.back):
		b.closeSession()
		return b, tea.Quit
	}
	return b, nil
}
