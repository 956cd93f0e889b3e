package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kinema-cli/kinema/aniskip"
	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/session"
	. "github.com/smartystreets/goconvey/convey"
)

const episodeJSON = `{
	"Id": "ep2", "Name": "The Return", "Type": "Episode",
	"SeriesId": "show", "SeriesName": "Show", "IndexNumber": 2, "ParentIndexNumber": 1,
	"RunTimeTicks": 14000000000,
	"ProviderIds": {"MyAnimeList": "1535"},
	"UserData": {"PlaybackPositionTicks": 3000000000, "Played": false},
	"MediaSources": [{"Id": "src", "MediaStreams": [
		{"Index": 0, "Type": "Video", "Codec": "hevc"},
		{"Index": 1, "Type": "Audio", "Language": "jpn", "IsDefault": true},
		{"Index": 2, "Type": "Audio", "Language": "eng"},
		{"Index": 3, "Type": "Subtitle", "Language": "eng", "DisplayTitle": "English", "IsExternal": true},
		{"Index": 4, "Type": "Attachment"}
	]}]
}`

type fakeServer struct {
	*httptest.Server

	mu      sync.Mutex
	hits    map[string]int
	auth    []string
	bodies  map[string]string
	intro   int
	introOK string
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		hits:    make(map[string]int),
		bodies:  make(map[string]string),
		intro:   http.StatusOK,
		introOK: `{"Valid": true, "IntroStart": 30, "IntroEnd": 90}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/Users/u1/Items/ep2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(episodeJSON))
	})
	mux.HandleFunc("/Episode/ep2/IntroTimestamps/v1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.intro)
		_, _ = w.Write([]byte(f.introOK))
	})
	mux.HandleFunc("/Shows/show/Episodes", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Items": [{"Id": "ep2", "Type": "Episode"}, {"Id": "ep3", "Name": "Finale", "Type": "Episode", "SeriesId": "show", "SeriesName": "Show", "IndexNumber": 3, "ParentIndexNumber": 1}]}`))
	})
	mux.HandleFunc("/Sessions/Playing/Stopped", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies[r.URL.Path] = string(body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))

	return f
}

func (f *fakeServer) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func TestClient(t *testing.T) {
	Convey("Given a client against a fake server", t, func() {
		filesystem.SetMemMapFs()
		srv := newFakeServer()
		defer srv.Close()

		c := New(srv.URL+"/", "u1", "tok", "dev-1")

		Convey("Items are fetched once and cached", func() {
			item, err := c.Item(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(item.SeriesName, ShouldEqual, "Show")
			So(item.Runtime(), ShouldEqual, 1400)

			_, err = c.Item(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(srv.Hits("/Users/u1/Items/ep2"), ShouldEqual, 1)
		})

		Convey("Requests carry the client identity and token", func() {
			_, _ = c.Item(context.Background(), "ep2")
			So(srv.auth[0], ShouldStartWith, `MediaBrowser Client="kinema-cli"`)
			So(srv.auth[0], ShouldContainSubstring, `DeviceId="dev-1"`)
			So(srv.auth[0], ShouldContainSubstring, `Token="tok"`)
		})

		Convey("Unknown items are ErrNotFound", func() {
			_, err := c.Item(context.Background(), "nope")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Tracks skip stream types kinema does not know", func() {
			tracks, err := c.Tracks(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(tracks, ShouldHaveLength, 4)
			So(tracks.Default(session.Audio).MustGet().Language, ShouldEqual, "jpn")
			So(tracks.Find(session.Subtitle, 3).MustGet().IsExternal, ShouldBeTrue)
		})

		Convey("The descriptor formats the episode and resumes from the server", func() {
			d, err := c.Descriptor(context.Background(), "ep2", true)
			So(err, ShouldBeNil)
			So(d.Title, ShouldEqual, "Show S01E02")
			So(d.Subtitle, ShouldEqual, "The Return")
			So(d.MediaSourceID.MustGet(), ShouldEqual, "src")
			So(d.AccessToken, ShouldEqual, "tok")
			So(d.StartPosition, ShouldEqual, 300)
			So(d.Tracks.MustGet(), ShouldHaveLength, 4)
		})

		Convey("Without resume the descriptor starts at zero", func() {
			d, err := c.Descriptor(context.Background(), "ep2", false)
			So(err, ShouldBeNil)
			So(d.StartPosition, ShouldEqual, 0)
		})

		Convey("The server's intro window is used and cached", func() {
			w, err := c.IntroWindow(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(w.MustGet(), ShouldResemble, session.IntroWindow{Start: 30, End: 90})

			_, _ = c.IntroWindow(context.Background(), "ep2")
			So(srv.Hits("/Episode/ep2/IntroTimestamps/v1"), ShouldEqual, 1)
		})

		Convey("Without server intro data AniSkip is asked", func() {
			srv.intro = http.StatusNotFound
			skip := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"found":true,"results":[{"interval":{"start_time":10,"end_time":100},"skip_type":"op"}]}`))
			}))
			defer skip.Close()
			c.AniSkip = &aniskip.Client{BaseURL: skip.URL, HTTP: skip.Client()}

			w, err := c.IntroWindow(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(w.MustGet(), ShouldResemble, session.IntroWindow{Start: 10, End: 100})
		})

		Convey("Without any intro data the miss is remembered", func() {
			srv.intro = http.StatusNotFound

			w, err := c.IntroWindow(context.Background(), "ep2")
			So(err, ShouldBeNil)
			So(w.IsAbsent(), ShouldBeTrue)

			_, _ = c.IntroWindow(context.Background(), "ep2")
			So(srv.Hits("/Episode/ep2/IntroTimestamps/v1"), ShouldEqual, 1)
		})

		Convey("The next episode follows the current one", func() {
			item, _ := c.Item(context.Background(), "ep2")
			next, err := c.NextEpisode(context.Background(), item)
			So(err, ShouldBeNil)
			So(next.MustGet(), ShouldResemble, session.Handoff{ItemID: "ep3", Title: "Show S01E03"})
		})

		Convey("Movies have no next episode", func() {
			next, err := c.NextEpisode(context.Background(), Item{ID: "m", Type: "Movie"})
			So(err, ShouldBeNil)
			So(next.IsAbsent(), ShouldBeTrue)
		})

		Convey("Stopped reports carry ticks", func() {
			err := c.ReportStopped(context.Background(), PlaybackReport{ItemID: "ep2", PositionTicks: Ticks(12.5)})
			So(err, ShouldBeNil)

			var body PlaybackReport
			So(json.Unmarshal([]byte(srv.bodies["/Sessions/Playing/Stopped"]), &body), ShouldBeNil)
			So(body.PositionTicks, ShouldEqual, 125_000_000)
		})

		Convey("Other failures carry the status", func() {
			err := c.ReportProgress(context.Background(), PlaybackReport{ItemID: "ep2"})
			var se *StatusError
			So(errors.As(err, &se) || errors.Is(err, ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Local history fills in a missing server position", t, func() {
		filesystem.SetMemMapFs()
		So(history.Save(history.Entry{ItemID: "ep2", Position: 120, Duration: 1400}), ShouldBeNil)

		c := New("http://unused", "u1", "tok", "dev")
		So(c.resumePosition(Item{ID: "ep2"}), ShouldEqual, 120)
	})
}
