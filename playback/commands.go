package playback

import (
	"math"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
)

// active reports whether commands may change the session. Must be called with mu held.
func (c *Controller) active() bool {
	return c.started && !c.closed && !c.state.Phase.Terminal()
}

// Play resumes playback.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || c.state.Phase == Playing {
		return
	}

	if err := c.opts.Surface.Play(); err != nil {
		c.call("play", err)
		return
	}

	if c.state.Phase == Paused {
		c.enterPlayingLocked()
	}
	c.publishLocked()
}

// Pause holds playback.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || (c.state.Phase != Playing && c.state.Phase != Buffering) {
		return
	}

	if err := c.opts.Surface.Pause(); err != nil {
		c.call("pause", err)
		return
	}

	c.state.Phase = Paused
	c.showControlsLocked()
	c.publishLocked()
}

// TogglePlay pauses a running session and resumes a paused one.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	phase := c.state.Phase
	c.mu.Unlock()

	if phase == Paused {
		c.Play()
	} else {
		c.Pause()
	}
}

// Seek jumps to t seconds, clamped to the known duration. It does nothing
// while the duration is unknown.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || c.state.Duration <= 0 || math.IsNaN(t) {
		return
	}

	c.seekLocked(t)
	c.publishLocked()
}

// SeekBy moves the position by delta seconds.
func (c *Controller) SeekBy(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || c.state.Duration <= 0 || math.IsNaN(delta) {
		return
	}

	c.seekLocked(c.state.CurrentTime + delta)
	c.publishLocked()
}

func (c *Controller) seekLocked(t float64) {
	t = c.clampTime(t)

	if err := c.opts.Surface.Seek(t); err != nil {
		c.call("seek", err)
		return
	}

	c.state.CurrentTime = t
	if c.state.Phase == Playing {
		c.state.Phase = Buffering
	}
	c.deriveLocked()
}

// SetVolume sets the volume in [0,1]. Zero mutes, anything louder unmutes.
func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || math.IsNaN(v) || v < 0 || v > 1 {
		return
	}

	if err := c.opts.Surface.SetVolume(v); err != nil {
		c.call("set volume", err)
		return
	}
	c.state.Volume = v

	switch {
	case v == 0 && !c.state.Muted:
		c.state.Muted = true
		c.call("set mute", c.opts.Surface.SetMute(true))
	case v > 0:
		c.lastVolume = v
		if c.state.Muted {
			c.state.Muted = false
			c.call("set mute", c.opts.Surface.SetMute(false))
		}
	}

	c.publishLocked()
}

// ToggleMute flips the mute state. Unmuting at zero volume restores the last
// audible volume.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if !c.state.Muted {
		if err := c.opts.Surface.SetMute(true); err != nil {
			c.call("set mute", err)
			return
		}
		c.state.Muted = true
		c.publishLocked()
		return
	}

	if err := c.opts.Surface.SetMute(false); err != nil {
		c.call("set mute", err)
		return
	}
	c.state.Muted = false

	if c.state.Volume == 0 {
		c.state.Volume = c.lastVolume
		c.call("set volume", c.opts.Surface.SetVolume(c.lastVolume))
	}

	c.publishLocked()
}

// SetAudioTrack reloads the stream with another audio track, resuming at the
// current position. Unknown tracks and direct playback are ignored.
func (c *Controller) SetAudioTrack(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || c.state.Mode == adaptive.ModeDirect {
		return
	}

	if c.tracks.Find(session.Audio, index).IsAbsent() {
		return
	}

	if current, ok := c.state.AudioTrack.Get(); ok && current == index {
		return
	}

	c.state.AudioTrack = mo.Some(index)
	if c.state.Phase == Playing {
		c.state.Phase = Buffering
	}

	c.logger.WithField("audio", index).Info("reloading for audio track")
	c.loadLocked(c.state.CurrentTime)
	c.publishLocked()
}

// SetSubtitleTrack shows the given text track, or none.
func (c *Controller) SetSubtitleTrack(index mo.Option[int]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state.Phase == Failed {
		return
	}

	i, on := index.Get()
	if on && c.tracks.Find(session.Subtitle, i).IsAbsent() {
		return
	}

	if c.state.SubtitleTrack.IsPresent() && c.loaded {
		c.call("remove subtitle", c.opts.Surface.RemoveSubtitle())
	}

	c.state.SubtitleTrack = index
	c.attachSubtitleLocked()
	c.publishLocked()
}

// SetQuality pins a quality level, or returns to automatic selection on None.
// It does nothing without a live adaptive engine.
func (c *Controller) SetQuality(index mo.Option[int]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || c.adapter == nil {
		return
	}

	if i, ok := index.Get(); ok && !c.hasLevel(i) {
		return
	}

	if !c.adapter.SetQuality(index) {
		return
	}

	c.state.Quality = index
	c.publishLocked()
}

func (c *Controller) hasLevel(index int) bool {
	for _, l := range c.state.QualityLevels {
		if l.Index == index {
			return true
		}
	}
	return false
}

// SkipIntro jumps to the end of the intro while inside it.
func (c *Controller) SkipIntro() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active() || !c.state.CanSkipIntro {
		return
	}

	w := c.state.Intro.MustGet()
	c.seekLocked(w.End)
	c.publishLocked()
}

// AdvanceToNext ends this session and hands the next item to OnAdvance.
func (c *Controller) AdvanceToNext() {
	c.mu.Lock()

	next, ok := c.state.Next.Get()
	if c.closed || !ok {
		c.mu.Unlock()
		return
	}

	c.closeLocked()
	c.mu.Unlock()

	c.notifyAdvance(next)
}

// ToggleFullscreen flips the surface between window and fullscreen.
func (c *Controller) ToggleFullscreen() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	want := !c.state.Fullscreen
	if err := c.opts.Surface.SetFullscreen(want); err != nil {
		c.call("set fullscreen", err)
		return
	}

	c.state.Fullscreen = want
	c.publishLocked()
}

// ResetHideTimer shows the controls and restarts the idle countdown.
func (c *Controller) ResetHideTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if !c.state.Phase.Terminal() {
		c.idle.Reset()
	}

	if !c.state.ControlsVisible {
		c.state.ControlsVisible = true
		c.publishLocked()
	}
}

// SetSettingsOpen records whether a settings panel is showing. Controls stay
// up while it is.
func (c *Controller) SetSettingsOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state.SettingsOpen == open {
		return
	}

	c.state.SettingsOpen = open
	c.state.ControlsVisible = true
	if !open && !c.state.Phase.Terminal() {
		c.idle.Reset()
	}

	c.publishLocked()
}

// SetHandoff sets or clears the item offered after this one.
func (c *Controller) SetHandoff(next mo.Option[session.Handoff]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.state.Next = next
	c.deriveLocked()
	c.publishLocked()
}
