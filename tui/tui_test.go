package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeControls struct {
	mu    sync.Mutex
	calls []string
	state playback.State
	fns   []func(playback.State)

	volume   float64
	audio    int
	subtitle mo.Option[int]
	quality  mo.Option[int]
	seekBy   float64
}

func (f *fakeControls) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeControls) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeControls) Subscribe(fn func(playback.State)) *playback.Subscription {
	f.record("subscribe")
	f.mu.Lock()
	f.fns = append(f.fns, fn)
	f.mu.Unlock()
	return player.NewSubscription(func() {})
}

func (f *fakeControls) State() playback.State { return f.state }
func (f *fakeControls) TogglePlay() { f.record("toggle") }
func (f *fakeControls) SeekBy(d float64) { f.seekBy = d; f.record("seek") }
func (f *fakeControls) SetVolume(v float64) { f.volume = v; f.record("volume") }
func (f *fakeControls) ToggleMute() { f.record("mute") }
func (f *fakeControls) ToggleFullscreen() { f.record("fullscreen") }
func (f *fakeControls) SetAudioTrack(i int) { f.audio = i; f.record("audio") }
func (f *fakeControls) SetSubtitleTrack(i mo.Option[int]) { f.subtitle = i; f.record("subtitle") }
func (f *fakeControls) SetQuality(i mo.Option[int]) { f.quality = i; f.record("quality") }
func (f *fakeControls) SkipIntro() { f.record("skip") }
func (f *fakeControls) AdvanceToNext() { f.record("next") }
func (f *fakeControls) ResetHideTimer() { f.record("reset") }
func (f *fakeControls) SetSettingsOpen(open bool) { f.record(map[bool]string{true: "open", false: "close"}[open]) }

type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
	controls []*fakeControls
	closed   int
	fail     error
	advance  func(session.Handoff)
}

func (l *fakeLauncher) Launch(_ context.Context, itemID string, onAdvance func(session.Handoff)) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launched = append(l.launched, itemID)
	l.advance = onAdvance
	if l.fail != nil {
		return nil, l.fail
	}

	c := &fakeControls{state: playingSnapshot(itemID)}
	l.controls = append(l.controls, c)
	return NewSession(c, func() {
		l.mu.Lock()
		l.closed++
		l.mu.Unlock()
	}), nil
}

func playingSnapshot(itemID string) playback.State {
	return playback.State{
		ItemID:      itemID,
		Title:       "Show S01E01",
		Phase:       playback.Playing,
		CurrentTime: 30,
		Duration:    1400,
		Volume:      0.5,
		Mode:        adaptive.ModeAdaptive,
		Tracks: session.Tracks{
			{Index: 1, Type: session.Audio, Language: "jpn"},
			{Index: 2, Type: session.Audio, Language: "eng"},
			{Index: 3, Type: session.Subtitle, Language: "eng"},
		},
		AudioTrack:      mo.Some(1),
		QualityLevels:   []adaptive.QualityLevel{{Index: 0, Height: 1080}, {Index: 1, Height: 720}},
		ControlsVisible: true,
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// launched runs the launch command and feeds its result back.
func launched(b *statefulBubble, cmd tea.Cmd) {
	b.Update(cmd())
}

func newTestBubble(l *fakeLauncher) *statefulBubble {
	b := newBubble(&Options{ItemID: "ep1", Launch: l.Launch, SeekStep: 10})
	b.resize(100, 40)
	return b
}

func TestShell(t *testing.T) {
	Convey("Given a shell with a launched session", t, func() {
		l := &fakeLauncher{}
		b := newTestBubble(l)
		launched(b, b.start("ep1"))

		So(b.state, ShouldEqual, playingState)
		So(l.launched, ShouldResemble, []string{"ep1"})
		c := l.controls[0]
		b.playback = c.state

		Convey("Every key press resets the hide timer", func() {
			b.Update(runes("f"))
			So(c.Calls(), ShouldResemble, []string{"subscribe", "reset", "fullscreen"})
		})

		Convey("Space toggles playback", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			So(c.Calls(), ShouldContain, "toggle")
		})

		Convey("Arrows seek by the configured step", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyLeft})
			So(c.seekBy, ShouldEqual, -10)
			b.Update(tea.KeyMsg{Type: tea.KeyRight})
			So(c.seekBy, ShouldEqual, 10)
		})

		Convey("Volume steps are clamped", func() {
			b.Update(runes("+"))
			So(c.volume, ShouldAlmostEqual, 0.55)

			b.playback.Volume = 0.02
			b.Update(runes("-"))
			So(c.volume, ShouldEqual, 0)
		})

		Convey("Intro and next keys reach the controller", func() {
			b.Update(runes("i"))
			b.Update(runes("n"))
			So(c.Calls(), ShouldContain, "skip")
			So(c.Calls(), ShouldContain, "next")
		})

		Convey("The settings panel lists tracks and qualities", func() {
			b.Update(runes("s"))
			So(b.state, ShouldEqual, settingsState)
			So(c.Calls(), ShouldContain, "open")
			// 2 audio, off + 1 subtitle, auto + 2 levels
			So(b.settingsC.Items(), ShouldHaveLength, 7)

			Convey("Enter applies the selection and closes it", func() {
				b.Update(tea.KeyMsg{Type: tea.KeyDown})
				b.Update(tea.KeyMsg{Type: tea.KeyEnter})
				So(c.audio, ShouldEqual, 2)
				So(c.Calls(), ShouldContain, "close")
				So(b.state, ShouldEqual, playingState)
			})

			Convey("Esc closes it without changes", func() {
				b.Update(tea.KeyMsg{Type: tea.KeyEscape})
				So(b.state, ShouldEqual, playingState)
				So(c.Calls(), ShouldNotContain, "audio")
			})
		})

		Convey("States of the current session are rendered", func() {
			s := c.state
			s.CanSkipIntro = true
			b.Update(stateMsg{gen: b.gen, state: s})
			view := b.View()
			So(view, ShouldContainSubstring, "Show S01E01")
			So(view, ShouldContainSubstring, "0:30 / 23:20")
			So(view, ShouldContainSubstring, "press i to skip")
		})

		Convey("States of a replaced session are dropped", func() {
			s := c.state
			s.Title = "stale"
			b.Update(stateMsg{gen: b.gen - 1, state: s})
			So(b.playback.Title, ShouldNotEqual, "stale")
		})

		Convey("A failed state shows the error view", func() {
			s := c.state
			s.Phase = playback.Failed
			s.Failure = "manifest unavailable"
			b.Update(stateMsg{gen: b.gen, state: s})
			So(b.state, ShouldEqual, errorState)
			So(b.View(), ShouldContainSubstring, "manifest unavailable")

			Convey("r rebuilds the session from scratch", func() {
				_, cmd := b.Update(runes("r"))
				So(l.closed, ShouldEqual, 1)
				launched(b, cmd)
				So(l.launched, ShouldResemble, []string{"ep1", "ep1"})
				So(b.state, ShouldEqual, playingState)
			})
		})

		Convey("A closed player window quits", func() {
			s := c.state
			s.Phase = playback.Failed
			s.Failure = playback.ErrSurfaceClosed.Error()
			_, cmd := b.Update(stateMsg{gen: b.gen, state: s})
			So(cmd, ShouldNotBeNil)
			So(l.closed, ShouldEqual, 1)
		})

		Convey("Advancing launches the next item in place", func() {
			l.advance(session.Handoff{ItemID: "ep2", Title: "Show S01E02"})
			msg := <-b.advancesChannel
			_, cmd := b.Update(msg)
			So(l.closed, ShouldEqual, 1)
			So(b.state, ShouldEqual, loadingState)
			So(b.View(), ShouldContainSubstring, "Show S01E02")

			// the batch holds the wait and the launch, run the launch directly
			launched(b, b.start("ep2"))
			So(l.launched, ShouldResemble, []string{"ep1", "ep2"})
			So(cmd, ShouldNotBeNil)
		})

		Convey("q closes the session and quits", func() {
			_, cmd := b.Update(runes("q"))
			So(cmd, ShouldNotBeNil)
			So(l.closed, ShouldEqual, 1)
		})
	})

	Convey("A failed launch shows the error view", t, func() {
		l := &fakeLauncher{fail: errors.New("item not found")}
		b := newTestBubble(l)
		launched(b, b.start("ep1"))

		So(b.state, ShouldEqual, errorState)
		So(b.View(), ShouldContainSubstring, "item not found")
	})

	Convey("A launch that finishes after a newer one is discarded", t, func() {
		l := &fakeLauncher{}
		b := newTestBubble(l)
		stale := b.start("ep1")
		fresh := b.start("ep1")

		launched(b, stale)
		So(l.closed, ShouldEqual, 1)
		So(b.state, ShouldEqual, loadingState)

		launched(b, fresh)
		So(b.state, ShouldEqual, playingState)
	})
}
