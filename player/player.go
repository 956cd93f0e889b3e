// Package player drives an mpv process over its JSON-IPC socket and exposes it
// as a rendering surface: commands go out on short-lived connections, property
// changes come back on one persistent connection as Events.
package player

import (
	"sync"
)

// EventKind identifies what changed on the surface.
type EventKind int

const (
	// EventTime carries the playback position in Value.
	EventTime EventKind = iota
	// EventDuration carries the media duration in Value.
	EventDuration
	// EventBuffered carries the end of the buffered range in Value.
	EventBuffered
	// EventBuffering reports in Flag whether playback stalls on the cache.
	EventBuffering
	// EventPause reports the pause state in Flag.
	EventPause
	// EventLoaded fires once a file is opened.
	EventLoaded
	// EventReady fires when playback (re)starts after a load or seek.
	EventReady
	// EventEnded fires on end of stream.
	EventEnded
	// EventFailed carries a load or decode failure in Err.
	EventFailed
	// EventVolume carries the volume in [0,1] in Value.
	EventVolume
	// EventMute reports the mute state in Flag.
	EventMute
	// EventFullscreen reports the fullscreen state in Flag.
	EventFullscreen
	// EventClosed fires when the surface goes away.
	EventClosed
)

var eventNames = map[EventKind]string{
	EventTime:       "time",
	EventDuration:   "duration",
	EventBuffered:   "buffered",
	EventBuffering:  "buffering",
	EventPause:      "pause",
	EventLoaded:     "loaded",
	EventReady:      "ready",
	EventEnded:      "ended",
	EventFailed:     "failed",
	EventVolume:     "volume",
	EventMute:       "mute",
	EventFullscreen: "fullscreen",
	EventClosed:     "closed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one surface notification.
type Event struct {
	Kind  EventKind
	Value float64
	Flag  bool
	Err   error
}

// Subscription detaches a listener. Unsubscribe may be called any number of times.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel so that it runs at most once.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// hub fans events out to subscribers. Listeners run outside the lock.
type hub struct {
	mu        sync.Mutex
	next      int
	listeners map[int]func(Event)
}

func (h *hub) subscribe(fn func(Event)) *Subscription {
	h.mu.Lock()
	if h.listeners == nil {
		h.listeners = make(map[int]func(Event))
	}
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()

	return NewSubscription(func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	})
}

func (h *hub) emit(ev Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
