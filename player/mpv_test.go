package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kinema-cli/kinema/session"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeMPV speaks enough of the JSON-IPC protocol for the player to talk to.
type fakeMPV struct {
	ln        net.Listener
	mu        sync.Mutex
	commands  [][]any
	props     map[string]any
	observers chan net.Conn
}

func newFakeMPV(t *testing.T) *fakeMPV {
	path := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}

	f := &fakeMPV{
		ln:        ln,
		props:     map[string]any{"time-pos": 12.5, "pid": 1.0},
		observers: make(chan net.Conn, 1),
	}
	go f.serve()
	return f
}

func (f *fakeMPV) path() string { return f.ln.Addr().String() }

func (f *fakeMPV) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	observing := false
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		var cmd ipcCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil || len(cmd.Command) == 0 {
			continue
		}

		f.mu.Lock()
		f.commands = append(f.commands, cmd.Command)
		f.mu.Unlock()

		reply := map[string]any{"request_id": cmd.RequestID, "error": "success"}

		switch cmd.Command[0] {
		case "observe_property":
			if !observing {
				observing = true
				f.observers <- conn
			}
			continue
		case "get_property":
			f.mu.Lock()
			v, ok := f.props[cmd.Command[1].(string)]
			f.mu.Unlock()
			if ok {
				reply["data"] = v
			} else {
				reply["error"] = "property unavailable"
			}
		}

		// an unrelated broadcast ahead of the reply
		_, _ = conn.Write([]byte(`{"event":"audio-reconfig"}` + "\n"))

		payload, _ := json.Marshal(reply)
		_, _ = conn.Write(append(payload, '\n'))
	}
}

func (f *fakeMPV) Commands() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]any(nil), f.commands...)
}

func (f *fakeMPV) last() []any {
	cmds := f.Commands()
	return cmds[len(cmds)-1]
}

func TestMPVCommands(t *testing.T) {
	Convey("Given a player connected to a fake mpv", t, func() {
		f := newFakeMPV(t)
		defer f.ln.Close()

		m := NewMPV()
		m.socketPath = f.path()

		Convey("Load sets the start offset then replaces the file", func() {
			So(m.Load("https://media.example.org/Videos/1/master.m3u8", 42), ShouldBeNil)

			cmds := f.Commands()
			So(cmds, ShouldHaveLength, 2)
			So(cmds[0], ShouldResemble, []any{"set_property", "start", "42.000"})
			So(cmds[1], ShouldResemble, []any{"loadfile", "https://media.example.org/Videos/1/master.m3u8", "replace"})
		})

		Convey("Flag-like targets are refused before reaching mpv", func() {
			So(m.Load("--script=evil.lua", 0), ShouldNotBeNil)
			So(m.Load("file:///etc/passwd", 0), ShouldNotBeNil)
			So(f.Commands(), ShouldBeEmpty)
		})

		Convey("Position reads time-pos past interleaved events", func() {
			pos, err := m.Position()
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 12.5)
		})

		Convey("An unavailable property is reported as such", func() {
			_, err := m.Duration()
			So(errors.Is(err, errPropertyUnavailable), ShouldBeTrue)
		})

		Convey("Volume is scaled to mpv's percent", func() {
			So(m.SetVolume(0.5), ShouldBeNil)
			So(f.last(), ShouldResemble, []any{"set_property", "volume", 50.0})
		})

		Convey("Subtitles are added selected and removed by turning sid off", func() {
			So(m.AddSubtitle("https://media.example.org/sub.vtt", "English", "eng"), ShouldBeNil)
			So(f.last(), ShouldResemble, []any{"sub-add", "https://media.example.org/sub.vtt", "select", "English", "eng"})

			So(m.RemoveSubtitle(), ShouldBeNil)
			So(f.last(), ShouldResemble, []any{"set_property", "sid", "no"})
		})

		Convey("The intro window becomes chapters", func() {
			So(m.MarkIntro(session.IntroWindow{Start: 30, End: 90}), ShouldBeNil)
			cmd := f.last()
			So(cmd[1], ShouldEqual, "chapter-list")
			So(cmd[2], ShouldHaveLength, 3)
		})

		Convey("It answers as running", func() {
			So(m.IsRunning(), ShouldBeTrue)
		})
	})
}

func TestEventListener(t *testing.T) {
	Convey("Given a listening player", t, func() {
		f := newFakeMPV(t)
		defer f.ln.Close()

		m := NewMPV()
		m.socketPath = f.path()

		events := make(chan Event, 16)
		sub := m.Subscribe(func(ev Event) { events <- ev })
		defer sub.Unsubscribe()

		So(m.Listen(), ShouldBeNil)
		defer m.listener.Stop()

		var conn net.Conn
		select {
		case conn = <-f.observers:
		case <-time.After(2 * time.Second):
			t.Fatal("listener never observed")
		}

		next := func() Event {
			select {
			case ev := <-events:
				return ev
			case <-time.After(2 * time.Second):
				return Event{Kind: -1}
			}
		}

		Convey("Observers are registered on the listening connection", func() {
			time.Sleep(50 * time.Millisecond)
			observes := 0
			for _, c := range f.Commands() {
				if c[0] == "observe_property" {
					observes++
				}
			}
			So(observes, ShouldEqual, len(observed))
		})

		Convey("Pushed messages are translated", func() {
			_, err := conn.Write([]byte(
				`{"event":"property-change","id":1,"name":"time-pos","data":3.5}` + "\n" +
					`{"event":"property-change","id":7,"name":"volume","data":40}` + "\n" +
					`{"event":"property-change","id":1,"name":"time-pos","data":null}` + "\n" +
					`{"event":"property-change","id":4,"name":"paused-for-cache","data":true}` + "\n" +
					`{"event":"playback-restart"}` + "\n" +
					`{"event":"end-file","reason":"error","file_error":"loading failed"}` + "\n" +
					`{"event":"end-file","reason":"stop"}` + "\n" +
					`{"event":"property-change","id":6,"name":"eof-reached","data":true}` + "\n",
			))
			So(err, ShouldBeNil)

			So(next(), ShouldResemble, Event{Kind: EventTime, Value: 3.5})
			So(next(), ShouldResemble, Event{Kind: EventVolume, Value: 0.4})
			So(next(), ShouldResemble, Event{Kind: EventBuffering, Flag: true})
			So(next().Kind, ShouldEqual, EventReady)

			failed := next()
			So(failed.Kind, ShouldEqual, EventFailed)
			So(failed.Err.Error(), ShouldContainSubstring, "loading failed")

			So(next().Kind, ShouldEqual, EventEnded)
		})

		Convey("Unsubscribed listeners hear nothing", func() {
			sub.Unsubscribe()
			sub.Unsubscribe()

			_, _ = conn.Write([]byte(`{"event":"playback-restart"}` + "\n"))

			delivered := false
			select {
			case <-events:
				delivered = true
			case <-time.After(100 * time.Millisecond):
			}
			So(delivered, ShouldBeFalse)
		})

		Convey("A dropped connection is reported as closed", func() {
			_ = conn.Close()
			So(next().Kind, ShouldEqual, EventClosed)
		})
	})
}

func TestSanitize(t *testing.T) {
	Convey("Titles lose control characters", t, func() {
		So(sanitizeTitle(" Ep 1\n\tPilot\x00 "), ShouldEqual, "Ep 1  Pilot")
	})

	Convey("Local paths are cleaned", t, func() {
		p, err := sanitizeMediaTarget("/videos/../videos/a.mkv")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, "/videos/a.mkv")
	})
}
