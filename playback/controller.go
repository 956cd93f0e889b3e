// Package playback runs one playback session: it picks how the stream reaches
// the surface, reconciles surface and engine events into a single State, and
// applies user commands against it.
package playback

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/stream"
	"github.com/kinema-cli/kinema/util"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// OfferNextWindow is how close to the end the next episode is offered.
const OfferNextWindow = 10.0

// ErrSurfaceClosed is the failure of a session whose surface went away.
var ErrSurfaceClosed = errors.New("player closed")

// Surface is the rendering target a controller owns for its lifetime.
type Surface interface {
	adaptive.Surface
	SetTitle(title string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(v float64) error
	SetMute(muted bool) error
	SetFullscreen(on bool) error
	AddSubtitle(url, title, lang string) error
	RemoveSubtitle() error
	Subscribe(fn func(player.Event)) *player.Subscription
}

// Catalog supplies the metadata that may arrive after playback starts.
type Catalog interface {
	IntroWindow(ctx context.Context, itemID string) (mo.Option[session.IntroWindow], error)
	Tracks(ctx context.Context, itemID string) (session.Tracks, error)
}

// Options configure a controller. Descriptor, Resolver and Surface are required.
type Options struct {
	Descriptor session.Descriptor
	Resolver   *stream.Resolver
	Surface    Surface

	// Engine is nil when adaptive playback is off.
	Engine adaptive.Engine

	// Catalog is nil when nothing should be fetched.
	Catalog   Catalog
	SkipIntro bool

	Scheduler       Scheduler
	ControlsTimeout time.Duration

	Volume mo.Option[float64]

	Next        mo.Option[session.Handoff]
	AutoAdvance bool
	OnAdvance   func(session.Handoff)
}

var sessions atomic.Uint64

// Controller owns one playback session. All methods are safe for concurrent use;
// commands that do not apply in the current state are ignored.
type Controller struct {
	mu sync.Mutex

	opts   Options
	desc   session.Descriptor
	tracks session.Tracks
	state  State
	store  *store
	idle   *IdleTimer
	logger *logrus.Entry

	// session identifies this controller to catalog fetches; zero once closed
	session uint64
	// generation identifies the live adapter to its events
	generation uint64

	adapter      *adaptive.Adapter
	fallbackUsed bool
	loaded       bool
	lastVolume   float64

	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	surfaceSub *player.Subscription
}

// New builds a controller. Nothing touches the surface until Start.
func New(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	volume := util.Clamp(opts.Volume.OrElse(1), 0, 1)
	desc := opts.Descriptor

	c := &Controller{
		opts:       opts,
		desc:       desc,
		tracks:     desc.Tracks.OrEmpty(),
		session:    sessions.Add(1),
		lastVolume: 1,
		ctx:        ctx,
		cancel:     cancel,
		logger:     log.With("item", desc.ItemID),
	}

	if volume > 0 {
		c.lastVolume = volume
	}

	c.state = State{
		ItemID:          desc.ItemID,
		Title:           desc.Title,
		Subtitle:        desc.Subtitle,
		Phase:           Initializing,
		CurrentTime:     math.Max(desc.StartPosition, 0),
		Volume:          volume,
		Muted:           volume == 0,
		Tracks:          c.tracks,
		ControlsVisible: true,
		Next:            opts.Next,
	}

	c.store = newStore(c.state.clone())
	c.idle = NewIdleTimer(opts.Scheduler, opts.ControlsTimeout, c.onIdle)

	return c
}

// Start attaches the session to the surface and begins loading.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.closed {
		return
	}
	c.started = true

	surface := c.opts.Surface
	c.surfaceSub = surface.Subscribe(c.onSurfaceEvent)

	c.call("set title", surface.SetTitle(c.desc.Title))
	c.call("set volume", surface.SetVolume(c.state.Volume))
	c.call("set mute", surface.SetMute(c.state.Muted))

	c.state.Mode = adaptive.Plan(c.opts.Engine, surface)
	c.logger.WithField("mode", c.state.Mode.String()).Info("starting playback")

	if c.desc.Tracks.IsPresent() {
		c.applyDefaultTracksLocked()
	} else if c.opts.Catalog != nil {
		c.spawn(c.fetchTracks)
	}

	if c.opts.Catalog != nil && !c.opts.SkipIntro {
		c.spawn(c.fetchIntro)
	}

	c.loadLocked(c.state.CurrentTime)
	c.idle.Reset()
	c.publishLocked()
}

// Subscribe calls fn with the current state and then with every later change.
// fn runs on its own goroutine; a slow fn only ever misses intermediate states.
func (c *Controller) Subscribe(fn func(State)) *Subscription {
	return c.store.subscribe(fn)
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Close ends the session. It can be called any number of times.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.session = 0
	c.generation++

	c.cancel()
	c.idle.Cancel()

	if c.adapter != nil {
		c.adapter.Destroy()
	}

	c.surfaceSub.Unsubscribe()
	c.store.close()

	c.logger.Debug("session closed")
}

// loadLocked points the surface at the stream for the current mode.
// The previous adapter, if any, is gone before the new one attaches.
func (c *Controller) loadLocked(start float64) {
	surface := c.opts.Surface

	if c.adapter != nil {
		c.adapter.Destroy()
		c.adapter = nil
	}
	c.generation++
	c.loaded = false
	c.state.QualityLevels = nil
	c.state.Quality = mo.None[int]()

	switch c.state.Mode {
	case adaptive.ModeAdaptive:
		manifest := c.opts.Resolver.AdaptiveManifestURL(c.desc, stream.Selection{Audio: c.state.AudioTrack})
		gen := c.generation
		c.state.Source = manifest
		c.adapter = adaptive.Attach(c.opts.Engine, surface, manifest, start, adaptive.Events{
			OnManifestParsed: func(levels []adaptive.QualityLevel) { c.onManifestParsed(gen, levels) },
			OnFatal:          func(err error) { c.onAdapterFatal(gen, err) },
		})
	case adaptive.ModeNative:
		manifest := c.opts.Resolver.AdaptiveManifestURL(c.desc, stream.Selection{Audio: c.state.AudioTrack})
		c.state.Source = manifest
		if err := surface.Load(manifest, start); err != nil {
			c.fallbackLocked(err)
		}
	case adaptive.ModeDirect:
		direct := c.opts.Resolver.DirectStreamURL(c.desc)
		c.state.Source = direct
		if err := surface.Load(direct, start); err != nil {
			c.failLocked(err)
		}
	}
}

// fallbackLocked switches to the direct stream once. A second failure is final.
func (c *Controller) fallbackLocked(cause error) {
	if c.fallbackUsed || c.state.Mode == adaptive.ModeDirect {
		c.failLocked(cause)
		return
	}
	c.fallbackUsed = true

	c.logger.WithError(cause).Warn("falling back to direct stream")

	c.state.Mode = adaptive.ModeDirect
	c.state.Phase = Buffering
	c.loadLocked(c.state.CurrentTime)
}

func (c *Controller) failLocked(cause error) {
	if c.state.Phase == Failed {
		return
	}

	c.logger.WithError(cause).Error("playback failed")

	if c.adapter != nil {
		c.adapter.Destroy()
	}
	c.generation++

	c.state.Phase = Failed
	c.state.Failure = cause.Error()
	c.state.ControlsVisible = true
	c.idle.Cancel()
	c.deriveLocked()
}

func (c *Controller) onManifestParsed(gen uint64, levels []adaptive.QualityLevel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		return
	}

	c.state.QualityLevels = levels
	if c.state.Phase == Initializing || c.state.Phase == Buffering {
		c.enterPlayingLocked()
		c.call("play", c.opts.Surface.Play())
	}

	c.publishLocked()
}

func (c *Controller) onAdapterFatal(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		return
	}

	c.fallbackLocked(err)
	c.publishLocked()
}

func (c *Controller) onSurfaceEvent(ev player.Event) {
	var advance mo.Option[session.Handoff]

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case player.EventTime:
		if c.state.Phase != Failed && !math.IsNaN(ev.Value) {
			c.state.CurrentTime = c.clampTime(ev.Value)
		}
	case player.EventDuration:
		if !math.IsInf(ev.Value, 0) && !math.IsNaN(ev.Value) && ev.Value > c.state.Duration {
			c.state.Duration = ev.Value
			c.state.CurrentTime = c.clampTime(c.state.CurrentTime)
		}
	case player.EventBuffered:
		c.state.BufferedUpTo = ev.Value
	case player.EventBuffering:
		switch {
		case ev.Flag && c.state.Phase == Playing:
			c.state.Phase = Buffering
		case !ev.Flag && c.state.Phase == Buffering && c.loaded:
			c.enterPlayingLocked()
		}
	case player.EventPause:
		switch {
		case ev.Flag && (c.state.Phase == Playing || c.state.Phase == Buffering):
			c.state.Phase = Paused
			c.showControlsLocked()
		case !ev.Flag && c.state.Phase == Paused:
			c.enterPlayingLocked()
		}
	case player.EventLoaded:
		c.loaded = true
		c.attachSubtitleLocked()
	case player.EventReady:
		// a reused window keeps the pause flag of the previous file
		if c.state.Phase == Initializing || c.state.Phase == Buffering {
			c.call("play", c.opts.Surface.Play())
			c.enterPlayingLocked()
		}
	case player.EventEnded:
		if !c.state.Phase.Terminal() && c.state.Phase != Initializing {
			c.state.Phase = Ended
			if c.state.Duration > 0 {
				c.state.CurrentTime = c.state.Duration
			}
			c.showControlsLocked()
			if c.opts.AutoAdvance {
				advance = c.state.Next
			}
		}
	case player.EventFailed:
		if !c.state.Phase.Terminal() {
			c.fallbackLocked(ev.Err)
		}
	case player.EventClosed:
		if !c.state.Phase.Terminal() {
			c.failLocked(ErrSurfaceClosed)
		}
	case player.EventVolume:
		c.state.Volume = util.Clamp(ev.Value, 0, 1)
		if c.state.Volume > 0 {
			c.lastVolume = c.state.Volume
		}
	case player.EventMute:
		c.state.Muted = ev.Flag
	case player.EventFullscreen:
		c.state.Fullscreen = ev.Flag
	}

	c.deriveLocked()
	c.publishLocked()

	if next, ok := advance.Get(); ok {
		c.closeLocked()
		c.mu.Unlock()
		c.notifyAdvance(next)
		return
	}
	c.mu.Unlock()
}

func (c *Controller) onIdle(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.idle.IsCurrent(seq) {
		return
	}
	c.idle.Cancel()

	if c.state.Phase != Playing || c.state.SettingsOpen {
		return
	}

	c.state.ControlsVisible = false
	c.publishLocked()
}

func (c *Controller) fetchIntro(ctx context.Context, token uint64) {
	window, err := c.opts.Catalog.IntroWindow(ctx, c.desc.ItemID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != token {
		c.logger.Debug("discarding intro window for a finished session")
		return
	}

	if err != nil {
		c.logger.WithError(err).Warn("intro window lookup failed")
		return
	}

	w, ok := window.Get()
	if !ok || !w.Valid() {
		return
	}

	c.state.Intro = window
	c.deriveLocked()
	c.publishLocked()
}

func (c *Controller) fetchTracks(ctx context.Context, token uint64) {
	tracks, err := c.opts.Catalog.Tracks(ctx, c.desc.ItemID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != token {
		c.logger.Debug("discarding tracks for a finished session")
		return
	}

	if err != nil {
		c.logger.WithError(err).Warn("track lookup failed")
		return
	}

	c.tracks = tracks
	c.state.Tracks = tracks
	c.applyDefaultTracksLocked()
	c.publishLocked()
}

// spawn runs fn with this session's token. Must be called with mu held.
func (c *Controller) spawn(fn func(ctx context.Context, token uint64)) {
	token := c.session
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		fn(c.ctx, token)
	}()
}

// applyDefaultTracksLocked reflects the source's default audio track and turns
// on a subtitle track flagged as default. Explicit choices are kept.
func (c *Controller) applyDefaultTracksLocked() {
	if c.state.AudioTrack.IsAbsent() {
		if t, ok := c.tracks.Default(session.Audio).Get(); ok {
			c.state.AudioTrack = mo.Some(t.Index)
		}
	}

	if c.state.SubtitleTrack.IsAbsent() {
		for _, t := range c.tracks.OfType(session.Subtitle) {
			if t.IsDefault {
				c.state.SubtitleTrack = mo.Some(t.Index)
				c.attachSubtitleLocked()
				break
			}
		}
	}
}

// attachSubtitleLocked loads the selected text track once the surface has a file.
func (c *Controller) attachSubtitleLocked() {
	index, ok := c.state.SubtitleTrack.Get()
	if !ok || !c.loaded {
		return
	}

	track, ok := c.tracks.Find(session.Subtitle, index).Get()
	if !ok {
		return
	}

	url := c.opts.Resolver.SubtitleURL(c.desc, index, "")
	c.call("add subtitle", c.opts.Surface.AddSubtitle(url, track.String(), track.Language))
}

// enterPlayingLocked moves to Playing and arms the idle timer if the controls
// are up with nothing counting down.
func (c *Controller) enterPlayingLocked() {
	c.state.Phase = Playing
	if c.state.ControlsVisible && !c.idle.Pending() {
		c.idle.Reset()
	}
}

func (c *Controller) showControlsLocked() {
	c.idle.Cancel()
	c.state.ControlsVisible = true
}

// deriveLocked recomputes the flags that depend on time.
func (c *Controller) deriveLocked() {
	s := &c.state

	s.CanSkipIntro = false
	if w, ok := s.Intro.Get(); ok && !s.Phase.Terminal() {
		s.CanSkipIntro = w.Contains(s.CurrentTime)
	}

	s.OfferNext = s.Next.IsPresent() &&
		s.Duration > 0 &&
		s.CurrentTime < s.Duration &&
		s.Duration-s.CurrentTime <= OfferNextWindow
}

func (c *Controller) publishLocked() {
	c.store.publish(c.state.clone())
}

func (c *Controller) clampTime(t float64) float64 {
	if c.state.Duration > 0 {
		return util.Clamp(t, 0, c.state.Duration)
	}
	return util.Max(t, 0)
}

func (c *Controller) notifyAdvance(next session.Handoff) {
	c.logger.WithField("next", next.ItemID).Info("advancing to next item")
	if c.opts.OnAdvance != nil {
		c.opts.OnAdvance(next)
	}
}

func (c *Controller) call(what string, err error) {
	if err != nil {
		c.logger.WithError(err).Warnf("surface %s", what)
	}
}
