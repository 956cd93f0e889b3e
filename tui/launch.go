package tui

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/scrobble"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/stream"
	"github.com/samber/mo"
)

// Controls is what the shell drives. *playback.Controller implements it.
type Controls interface {
	Subscribe(fn func(playback.State)) *playback.Subscription
	State() playback.State

	TogglePlay()
	SeekBy(delta float64)
	SetVolume(v float64)
	ToggleMute()
	ToggleFullscreen()
	SetAudioTrack(index int)
	SetSubtitleTrack(index mo.Option[int])
	SetQuality(index mo.Option[int])
	SkipIntro()
	AdvanceToNext()
	ResetHideTimer()
	SetSettingsOpen(open bool)
}

// Session is one running controller and whatever was attached to it.
type Session struct {
	Controls Controls
	close    func()
}

// NewSession wraps controls with a cleanup func.
func NewSession(controls Controls, close func()) *Session {
	return &Session{Controls: controls, close: close}
}

// Close tears the session down. Nil-safe.
func (s *Session) Close() {
	if s == nil || s.close == nil {
		return
	}
	s.close()
	s.close = nil
}

// LaunchFunc starts playing itemID. onAdvance is called when the session hands
// over to the next item.
type LaunchFunc func(ctx context.Context, itemID string, onAdvance func(session.Handoff)) (*Session, error)

// Preferences pick initial tracks by name or language.
type Preferences struct {
	Audio    string
	Subtitle string
}

// Launcher builds sessions against one catalog and one mpv window. The window
// is reused across items.
type Launcher struct {
	Catalog *catalog.Client
	Surface *player.MPV
	Engine  adaptive.Engine
	Profile stream.Profile

	Resume          bool
	FetchIntro      bool
	AutoAdvance     bool
	SaveHistory     bool
	Volume          mo.Option[float64]
	ControlsTimeout time.Duration
	Preferences     Preferences
}

// Launch implements LaunchFunc.
func (l *Launcher) Launch(ctx context.Context, itemID string, onAdvance func(session.Handoff)) (*Session, error) {
	desc, err := l.Catalog.Descriptor(ctx, itemID, l.Resume)
	if err != nil {
		return nil, err
	}

	next := mo.None[session.Handoff]()
	if item, err := l.Catalog.Item(ctx, itemID); err == nil {
		if next, err = l.Catalog.NextEpisode(ctx, item); err != nil {
			log.Warnf("next episode of %s: %s", itemID, err)
		}
	}

	ctrl := playback.New(playback.Options{
		Descriptor:      desc,
		Resolver:        l.Catalog.Resolver(l.Profile),
		Surface:         l.Surface,
		Engine:          l.Engine,
		Catalog:         l.Catalog,
		SkipIntro:       !l.FetchIntro,
		ControlsTimeout: l.ControlsTimeout,
		Volume:          l.Volume,
		Next:            next,
		AutoAdvance:     l.AutoAdvance,
		OnAdvance:       onAdvance,
	})

	reporter := scrobble.New(l.Catalog, scrobble.Options{
		MediaSourceID: desc.MediaSourceOrItem(),
		SaveHistory:   l.SaveHistory,
	})
	reporter.Attach(ctrl)

	var marked atomic.Bool
	chapters := ctrl.Subscribe(func(s playback.State) {
		w, ok := s.Intro.Get()
		if !ok || !marked.CompareAndSwap(false, true) {
			return
		}
		if err := l.Surface.MarkIntro(w); err != nil {
			log.Warnf("mark intro: %s", err)
		}
	})

	ctrl.Start()
	l.applyPreferences(ctrl, desc.Tracks.OrEmpty())

	return NewSession(ctrl, func() {
		chapters.Unsubscribe()
		reporter.Stop()
		ctrl.Close()
	}), nil
}

func (l *Launcher) applyPreferences(ctrl Controls, tracks session.Tracks) {
	if audio, ok := tracks.Match(session.Audio, l.Preferences.Audio).Get(); ok {
		ctrl.SetAudioTrack(audio.Index)
	}

	if sub, ok := tracks.Match(session.Subtitle, l.Preferences.Subtitle).Get(); ok {
		ctrl.SetSubtitleTrack(mo.Some(sub.Index))
	}
}
