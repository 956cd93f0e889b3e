package scrobble

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/player"
	. "github.com/smartystreets/goconvey/convey"
)

type call struct {
	kind   string
	report catalog.PlaybackReport
}

type fakeClient struct {
	mu    sync.Mutex
	calls []call
	fail  bool
}

func (f *fakeClient) record(kind string, r catalog.PlaybackReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind, r})
	if f.fail {
		return errors.New("offline")
	}
	return nil
}

func (f *fakeClient) ReportStart(_ context.Context, r catalog.PlaybackReport) error {
	return f.record("start", r)
}

func (f *fakeClient) ReportProgress(_ context.Context, r catalog.PlaybackReport) error {
	return f.record("progress", r)
}

func (f *fakeClient) ReportStopped(_ context.Context, r catalog.PlaybackReport) error {
	return f.record("stopped", r)
}

func (f *fakeClient) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]string, len(f.calls))
	for i, c := range f.calls {
		kinds[i] = c.kind
	}
	return kinds
}

func (f *fakeClient) last() catalog.PlaybackReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1].report
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// lateSource hands the listener one more state while unsubscribing, the way
// a closing controller flushes its final snapshot.
type lateSource struct {
	fn    func(playback.State)
	final playback.State
}

func (s *lateSource) Subscribe(fn func(playback.State)) *playback.Subscription {
	s.fn = fn
	return player.NewSubscription(func() { fn(s.final) })
}

func state(phase playback.Phase, at float64) playback.State {
	return playback.State{
		ItemID:      "ep1",
		Title:       "Show S01E01",
		Phase:       phase,
		CurrentTime: at,
		Duration:    1400,
		Mode:        adaptive.ModeAdaptive,
	}
}

func TestReporter(t *testing.T) {
	Convey("Given a reporter with a manual clock", t, func() {
		filesystem.SetMemMapFs()
		client := &fakeClient{}
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		r := New(client, Options{MediaSourceID: "src", Now: clock.Now})

		Convey("Nothing is reported before playback starts", func() {
			r.Observe(state(playback.Initializing, 0))
			r.Stop()
			So(client.kinds(), ShouldBeEmpty)
		})

		Convey("The first playing state reports start", func() {
			r.Observe(state(playback.Playing, 300))
			So(client.kinds(), ShouldResemble, []string{"start"})

			report := client.last()
			So(report.PositionTicks, ShouldEqual, 3_000_000_000)
			So(report.PlaySessionID, ShouldEqual, r.SessionID())
			So(report.MediaSourceID, ShouldEqual, "src")
			So(report.PlayMethod, ShouldEqual, "Transcode")
		})

		Convey("Progress is throttled", func() {
			r.Observe(state(playback.Playing, 1))
			clock.Advance(3 * time.Second)
			r.Observe(state(playback.Playing, 4))
			So(client.kinds(), ShouldResemble, []string{"start"})

			clock.Advance(ProgressInterval)
			r.Observe(state(playback.Playing, 14))
			So(client.kinds(), ShouldResemble, []string{"start", "progress"})
		})

		Convey("Pause toggles are reported immediately", func() {
			r.Observe(state(playback.Playing, 1))
			r.Observe(state(playback.Paused, 2))
			So(client.kinds(), ShouldResemble, []string{"start", "progress"})
			So(client.last().IsPaused, ShouldBeTrue)

			r.Observe(state(playback.Playing, 2))
			So(client.kinds(), ShouldResemble, []string{"start", "progress", "progress"})
		})

		Convey("The end of the media reports stopped once", func() {
			r.Observe(state(playback.Playing, 1))
			r.Observe(state(playback.Ended, 1400))
			r.Stop()
			So(client.kinds(), ShouldResemble, []string{"start", "stopped"})
		})

		Convey("Stop reports the last position and saves history", func() {
			r = New(client, Options{SaveHistory: true, Now: clock.Now})
			r.Observe(state(playback.Playing, 1))
			r.Observe(state(playback.Playing, 600))
			r.Stop()

			So(client.last().PositionTicks, ShouldEqual, catalog.Ticks(600))

			pos, err := history.Resume("ep1")
			So(err, ShouldBeNil)
			So(pos.MustGet(), ShouldEqual, 600)
		})

		Convey("A final state flushed while stopping is reported", func() {
			r = New(client, Options{SaveHistory: true, Now: clock.Now})
			src := &lateSource{final: state(playback.Ended, 1400)}
			r.Attach(src)

			src.fn(state(playback.Playing, 1390))
			r.Stop()

			So(client.kinds(), ShouldResemble, []string{"start", "stopped"})
			So(client.last().PositionTicks, ShouldEqual, catalog.Ticks(1400))

			entries, err := history.List()
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 1)
			So(entries[0].Position, ShouldEqual, 1400)
		})

		Convey("Undelivered stopped reports are queued", func() {
			r.Observe(state(playback.Playing, 42))
			client.fail = true
			r.Stop()

			queued, err := Queued()
			So(err, ShouldBeNil)
			So(queued, ShouldHaveLength, 1)
			So(queued[0].PositionTicks, ShouldEqual, catalog.Ticks(42))
		})

		Convey("States after Stop are ignored", func() {
			r.Observe(state(playback.Playing, 1))
			r.Stop()
			r.Observe(state(playback.Paused, 2))
			So(client.kinds(), ShouldResemble, []string{"start", "stopped"})
		})
	})
}

func TestReconcile(t *testing.T) {
	Convey("Given a queue with two reports", t, func() {
		filesystem.SetMemMapFs()
		So(Enqueue(catalog.PlaybackReport{ItemID: "a"}), ShouldBeNil)
		So(Enqueue(catalog.PlaybackReport{ItemID: "b"}), ShouldBeNil)

		Convey("A successful replay empties it", func() {
			client := &fakeClient{}
			n, err := Reconcile(context.Background(), client)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(client.kinds(), ShouldResemble, []string{"stopped", "stopped"})

			queued, err := Queued()
			So(err, ShouldBeNil)
			So(queued, ShouldBeEmpty)
		})

		Convey("A failed replay keeps everything", func() {
			client := &fakeClient{fail: true}
			n, err := Reconcile(context.Background(), client)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			queued, _ := Queued()
			So(queued, ShouldHaveLength, 2)
		})
	})

	Convey("An empty queue is a no-op", t, func() {
		filesystem.SetMemMapFs()
		n, err := Reconcile(context.Background(), &fakeClient{})
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)
	})
}
