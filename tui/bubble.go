package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/util"
)

type stateMsg struct {
	gen   uint64
	state playback.State
}

type launchedMsg struct {
	gen     uint64
	session *Session
	err     error
}

type advanceMsg struct {
	gen  uint64
	next session.Handoff
}

type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	// components
	spinnerC  spinner.Model
	progressC progress.Model
	settingsC list.Model
	helpC     help.Model

	launch LaunchFunc
	itemID string
	title  string

	// gen tags every message that belongs to one launched session, so that
	// late states of a replaced session are dropped
	gen      uint64
	session  *Session
	sub      *playback.Subscription
	playback playback.State

	statesChannel   chan stateMsg
	advancesChannel chan advanceMsg

	seekStep   float64
	volumeStep float64

	lastError     error
	width, height int
}

func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()
	xx, yy := listExtraPaddingStyle.GetFrameSize()

	b.settingsC.SetSize(width-xx, height-yy)
	b.settingsC.Help.Width = width - xx

	b.width = width - x
	b.height = height - y
	b.progressC.Width = b.width
	b.helpC.Width = b.width
}

// closeSession drops the subscription before tearing the session down.
func (b *statefulBubble) closeSession() {
	b.sub.Unsubscribe()
	b.sub = nil
	b.session.Close()
	b.session = nil
}

func newBubble(options *Options) *statefulBubble {
	keymap := newStatefulKeymap()
	bubble := statefulBubble{
		keymap:          keymap,
		launch:          options.Launch,
		itemID:          options.ItemID,
		title:           options.Title,
		seekStep:        options.SeekStep,
		volumeStep:      options.VolumeStep,
		statesChannel:   make(chan stateMsg, 1),
		advancesChannel: make(chan advanceMsg, 1),
	}

	if bubble.seekStep <= 0 {
		bubble.seekStep = 10
	}
	if bubble.volumeStep <= 0 {
		bubble.volumeStep = 0.05
	}
	if bubble.title == "" {
		bubble.title = options.ItemID
	}

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(color.Accent)

	bubble.progressC = progress.New(progress.WithSolidFill(string(color.Accent)), progress.WithoutPercentage())

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color.Accent).
		Foreground(color.Accent).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedTitle

	bubble.settingsC = list.New(nil, delegate, 0, 0)
	bubble.settingsC.Title = "Settings"
	bubble.settingsC.Styles.Title = lipgloss.NewStyle().Foreground(color.New("230")).Background(color.Accent).Padding(0, 1)
	bubble.settingsC.KeyMap = keymap.forList()
	bubble.settingsC.AdditionalShortHelpKeys = keymap.ShortHelp
	bubble.settingsC.AdditionalFullHelpKeys = func() []bubblesKey.Binding {
		return keymap.FullHelp()[0]
	}
	bubble.settingsC.StatusMessageLifetime = time.Second * 3
	bubble.settingsC.SetFilteringEnabled(false)
	bubble.settingsC.SetShowStatusBar(false)
	bubble.settingsC.SetShowPagination(false)

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.resize(w, h)
	}

	return &bubble
}
