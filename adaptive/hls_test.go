package adaptive

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const master = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=3000000,RESOLUTION=1280x720
v720.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=8000000,RESOLUTION=1920x1080
v1080.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=4000000,RESOLUTION=1280x720
v720b.m3u8
`

type chanListener struct {
	parsed chan []QualityLevel
	errs   chan ErrorEvent
}

func newChanListener() *chanListener {
	return &chanListener{
		parsed: make(chan []QualityLevel, 4),
		errs:   make(chan ErrorEvent, 16),
	}
}

func (l *chanListener) ManifestParsed(levels []QualityLevel) { l.parsed <- levels }
func (l *chanListener) Error(ev ErrorEvent)                 { l.errs <- ev }

func waitFatal(l *chanListener) (ErrorEvent, bool) {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.errs:
			if ev.Fatal {
				return ev, true
			}
		case <-timeout:
			return ErrorEvent{}, false
		}
	}
}

func TestHLS(t *testing.T) {
	Convey("Given a server with a master playlist", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			_, _ = w.Write([]byte(master))
		}))
		defer srv.Close()

		engine := &HLS{Client: srv.Client(), Retries: 2, RetryDelay: time.Millisecond}
		surface := newFakeSurface()
		l := newChanListener()

		inst := engine.Attach(surface, srv.URL+"/Videos/1/master.m3u8", 42, l)
		defer inst.Destroy()

		Convey("The master is loaded into the surface and the ladder reported", func() {
			var levels []QualityLevel
			So(func() {
				select {
				case levels = <-l.parsed:
				case <-time.After(2 * time.Second):
					panic("no manifest")
				}
			}, ShouldNotPanic)

			So(levels, ShouldHaveLength, 3)
			So(NormalizeLevels(levels), ShouldHaveLength, 2)

			loads := surface.Loads()
			So(loads, ShouldHaveLength, 1)
			So(loads[0].URL, ShouldEqual, srv.URL+"/Videos/1/master.m3u8")
			So(loads[0].Start, ShouldEqual, 42)

			Convey("Pinning a level loads its variant at the current position", func() {
				surface.mu.Lock()
				surface.position = 100
				surface.mu.Unlock()

				inst.SetLevel(1)
				loads := surface.Loads()
				So(loads, ShouldHaveLength, 2)
				So(loads[1].URL, ShouldEqual, srv.URL+"/Videos/1/v1080.m3u8")
				So(loads[1].Start, ShouldEqual, 100)

				Convey("And auto returns to the master", func() {
					inst.SetLevel(AutoLevel)
					So(surface.Loads()[2].URL, ShouldEqual, srv.URL+"/Videos/1/master.m3u8")
				})
			})

			Convey("Nothing loads after destroy", func() {
				inst.Destroy()
				inst.SetLevel(0)
				So(surface.Loads(), ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a server that keeps failing", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		engine := &HLS{Client: srv.Client(), Retries: 3, RetryDelay: time.Millisecond}
		l := newChanListener()
		inst := engine.Attach(newFakeSurface(), srv.URL+"/master.m3u8", 0, l)
		defer inst.Destroy()

		Convey("It retries and then reports a fatal manifest error", func() {
			ev, ok := waitFatal(l)
			So(ok, ShouldBeTrue)
			So(ev.Kind, ShouldEqual, KindManifest)
			So(hits.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given a server that refuses the request", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		engine := &HLS{Client: srv.Client(), Retries: 3, RetryDelay: time.Millisecond}
		l := newChanListener()
		inst := engine.Attach(newFakeSurface(), srv.URL+"/master.m3u8", 0, l)
		defer inst.Destroy()

		Convey("It fails at once", func() {
			_, ok := waitFatal(l)
			So(ok, ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 1)
		})
	})

	Convey("A disabled engine is unsupported", t, func() {
		So((&HLS{Disabled: true}).Supported(), ShouldBeFalse)
		So(NewHLS(2).Supported(), ShouldBeTrue)
	})
}

func TestParseHeight(t *testing.T) {
	Convey("Resolutions yield heights", t, func() {
		So(parseHeight("1920x1080"), ShouldEqual, 1080)
		So(parseHeight(""), ShouldEqual, 0)
		So(parseHeight("wide"), ShouldEqual, 0)
	})
}
