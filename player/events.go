package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/kinema-cli/kinema/log"
)

// observed lists the properties mpv pushes to the listener.
var observed = []string{
	"time-pos",
	"duration",
	"pause",
	"paused-for-cache",
	"demuxer-cache-time",
	"eof-reached",
	"volume",
	"mute",
	"fullscreen",
}

// EventListener keeps one connection open to mpv, registers the property
// observers on it and translates everything mpv pushes back into Events.
type EventListener struct {
	socketPath string
	emit       func(Event)

	mu        sync.Mutex
	conn      net.Conn
	listening bool
	done      chan struct{}
}

// NewEventListener creates a listener for socketPath. emit is called from the read loop.
func NewEventListener(socketPath string, emit func(Event)) *EventListener {
	return &EventListener{
		socketPath: socketPath,
		emit:       emit,
	}
}

// Start connects and begins observing. It is a no-op while already listening.
func (el *EventListener) Start() error {
	el.mu.Lock()
	defer el.mu.Unlock()

	if el.listening {
		return nil
	}

	conn, err := net.Dial("unix", el.socketPath)
	if err != nil {
		return fmt.Errorf("event listener connect: %w", err)
	}

	// observers are bound to the connection that registers them
	for i, name := range observed {
		if err := writeCommand(conn, 0, []any{"observe_property", i + 1, name}); err != nil {
			conn.Close()
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	el.conn = conn
	el.listening = true
	el.done = make(chan struct{})

	go el.readLoop(conn, el.done)

	log.Infof("mpv event listener started on %s", el.socketPath)
	return nil
}

// Stop closes the connection and waits for the read loop to finish.
func (el *EventListener) Stop() {
	el.mu.Lock()
	if !el.listening {
		el.mu.Unlock()
		return
	}
	el.listening = false
	conn, done := el.conn, el.done
	el.mu.Unlock()

	_ = conn.Close()
	<-done
}

func (el *EventListener) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	scanner := newScanner(conn)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}

		if ev, ok := translate(msg); ok {
			el.emit(ev)
		}
	}

	el.mu.Lock()
	stopped := !el.listening
	el.listening = false
	el.mu.Unlock()

	if stopped {
		return
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warnf("event listener read error: %v", err)
	}

	el.emit(Event{Kind: EventClosed})
}

// translate maps one mpv message onto an Event. Replies and unknown events are dropped.
func translate(msg ipcMessage) (Event, bool) {
	switch msg.Event {
	case "property-change":
		return translateProperty(msg.Name, msg.Data)
	case "file-loaded":
		return Event{Kind: EventLoaded}, true
	case "playback-restart":
		return Event{Kind: EventReady}, true
	case "end-file":
		if msg.Reason != "error" {
			return Event{}, false
		}
		reason := msg.FileError
		if reason == "" {
			reason = "unknown error"
		}
		return Event{Kind: EventFailed, Err: fmt.Errorf("playback failed: %s", reason)}, true
	case "shutdown":
		return Event{Kind: EventClosed}, true
	default:
		return Event{}, false
	}
}

func translateProperty(name string, data any) (Event, bool) {
	switch name {
	case "time-pos":
		return floatEvent(EventTime, data, 1)
	case "duration":
		return floatEvent(EventDuration, data, 1)
	case "demuxer-cache-time":
		return floatEvent(EventBuffered, data, 1)
	case "volume":
		return floatEvent(EventVolume, data, 100)
	case "pause":
		return flagEvent(EventPause, data)
	case "paused-for-cache":
		return flagEvent(EventBuffering, data)
	case "mute":
		return flagEvent(EventMute, data)
	case "fullscreen":
		return flagEvent(EventFullscreen, data)
	case "eof-reached":
		if reached, ok := data.(bool); ok && reached {
			return Event{Kind: EventEnded}, true
		}
	}

	return Event{}, false
}

func floatEvent(kind EventKind, data any, scale float64) (Event, bool) {
	v, ok := data.(float64)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: kind, Value: v / scale}, true
}

func flagEvent(kind EventKind, data any) (Event, bool) {
	v, ok := data.(bool)
	if !ok {
		return Event{}, false
	}
	return Event{Kind: kind, Flag: v}, true
}
