package playback

import (
	"context"
	"sync"
	"time"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
)

type load struct {
	URL   string
	Start float64
}

// fakeSurface records commands. Events only flow when a test calls Emit.
type fakeSurface struct {
	mu        sync.Mutex
	native    bool
	loadErrs  []error
	loads     []load
	seeks     []float64
	subtitles []string
	removed   int
	plays     int
	pauses    int
	volume    float64
	muted     bool
	listeners map[int]func(player.Event)
	next      int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{listeners: make(map[int]func(player.Event))}
}

func (s *fakeSurface) Load(url string, start float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.loadErrs) > 0 {
		err := s.loadErrs[0]
		s.loadErrs = s.loadErrs[1:]
		if err != nil {
			return err
		}
	}
	s.loads = append(s.loads, load{url, start})
	return nil
}

func (s *fakeSurface) Position() (float64, error) { return 0, nil }

func (s *fakeSurface) CanPlayType(mime string) bool {
	return s.native && mime == constant.MimeHLS
}

func (s *fakeSurface) SetTitle(string) error { return nil }

func (s *fakeSurface) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return nil
}

func (s *fakeSurface) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
	return nil
}

func (s *fakeSurface) Seek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, t)
	return nil
}

func (s *fakeSurface) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

func (s *fakeSurface) SetMute(m bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = m
	return nil
}

func (s *fakeSurface) SetFullscreen(bool) error { return nil }

func (s *fakeSurface) AddSubtitle(url, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subtitles = append(s.subtitles, url)
	return nil
}

func (s *fakeSurface) RemoveSubtitle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed++
	return nil
}

func (s *fakeSurface) Subscribe(fn func(player.Event)) *player.Subscription {
	s.mu.Lock()
	id := s.next
	s.next++
	s.listeners[id] = fn
	s.mu.Unlock()

	return player.NewSubscription(func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	})
}

func (s *fakeSurface) Emit(ev player.Event) {
	s.mu.Lock()
	fns := make([]func(player.Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *fakeSurface) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *fakeSurface) Plays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

func (s *fakeSurface) Loads() []load {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]load(nil), s.loads...)
}

type fakeInstance struct {
	mu       sync.Mutex
	manifest string
	start    float64
	listener adaptive.Listener
	levels   []int
	destroys int
}

func (i *fakeInstance) SetLevel(index int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.levels = append(i.levels, index)
}

func (i *fakeInstance) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroys++
}

func (i *fakeInstance) Destroys() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroys
}

func (i *fakeInstance) Levels() []int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]int(nil), i.levels...)
}

// fakeEngine hands out instances whose events the test fires by hand.
type fakeEngine struct {
	mu          sync.Mutex
	unsupported bool
	instances   []*fakeInstance
}

func (e *fakeEngine) Supported() bool { return !e.unsupported }

func (e *fakeEngine) Attach(_ adaptive.Surface, manifest string, start float64, l adaptive.Listener) adaptive.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst := &fakeInstance{manifest: manifest, start: start, listener: l}
	e.instances = append(e.instances, inst)
	return inst
}

func (e *fakeEngine) Instances() []*fakeInstance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakeInstance(nil), e.instances...)
}

func (e *fakeEngine) Last() *fakeInstance {
	all := e.Instances()
	return all[len(all)-1]
}

// fakeScheduler fires timers only when the test advances it.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	s       *fakeScheduler
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, at: s.now + d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []func()
	for _, t := range s.timers {
		if !t.stopped && !t.fired && t.at <= s.now {
			t.fired = true
			due = append(due, t.f)
		}
	}
	s.mu.Unlock()

	for _, f := range due {
		f()
	}
}

func (s *fakeScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeCatalog answers once gate is closed, regardless of cancellation.
type fakeCatalog struct {
	intro  mo.Option[session.IntroWindow]
	tracks session.Tracks
	err    error
	gate   chan struct{}
}

func (f *fakeCatalog) wait() {
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeCatalog) IntroWindow(context.Context, string) (mo.Option[session.IntroWindow], error) {
	f.wait()
	return f.intro, f.err
}

func (f *fakeCatalog) Tracks(context.Context, string) (session.Tracks, error) {
	f.wait()
	return f.tracks, f.err
}
