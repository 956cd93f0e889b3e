package stream

import (
	"net/url"
	"testing"

	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolver(t *testing.T) {
	Convey("Given a resolver and a descriptor", t, func() {
		r := NewResolver("https://media.example.org/", DefaultProfile("dev-1"))
		d := session.Descriptor{ItemID: "abc", AccessToken: "tok"}

		Convey("The manifest URL forces the transcoding target", func() {
			u, err := url.Parse(r.AdaptiveManifestURL(d, Selection{}))
			So(err, ShouldBeNil)
			So(u.Path, ShouldEqual, "/Videos/abc/master.m3u8")

			q := u.Query()
			So(q.Get("api_key"), ShouldEqual, "tok")
			So(q.Get("DeviceId"), ShouldEqual, "dev-1")
			So(q.Get("MediaSourceId"), ShouldEqual, "abc")
			So(q.Get("VideoCodec"), ShouldEqual, "h264")
			So(q.Get("AudioCodec"), ShouldEqual, "aac")
			So(q.Get("MaxAudioChannels"), ShouldEqual, "2")
			So(q.Get("MaxStreamingBitrate"), ShouldEqual, "20000000")
			So(q.Has("AudioStreamIndex"), ShouldBeFalse)
			So(q.Has("SubtitleStreamIndex"), ShouldBeFalse)
		})

		Convey("A selected audio track yields a different manifest", func() {
			plain := r.AdaptiveManifestURL(d, Selection{})
			withAudio := r.AdaptiveManifestURL(d, Selection{Audio: mo.Some(2)})
			So(withAudio, ShouldNotEqual, plain)

			u, _ := url.Parse(withAudio)
			So(u.Query().Get("AudioStreamIndex"), ShouldEqual, "2")
		})

		Convey("A selected subtitle is requested as external", func() {
			u, _ := url.Parse(r.AdaptiveManifestURL(d, Selection{Subtitle: mo.Some(4)}))
			So(u.Query().Get("SubtitleStreamIndex"), ShouldEqual, "4")
			So(u.Query().Get("SubtitleMethod"), ShouldEqual, "External")
		})

		Convey("URLs are deterministic", func() {
			sel := Selection{Audio: mo.Some(1), Subtitle: mo.Some(3)}
			So(r.AdaptiveManifestURL(d, sel), ShouldEqual, r.AdaptiveManifestURL(d, sel))
		})

		Convey("The direct stream is static", func() {
			u, _ := url.Parse(r.DirectStreamURL(d))
			So(u.Path, ShouldEqual, "/Videos/abc/stream")
			So(u.Query().Get("Static"), ShouldEqual, "true")
			So(u.Query().Get("api_key"), ShouldEqual, "tok")
		})

		Convey("Subtitle URLs use the media source", func() {
			d.MediaSourceID = mo.Some("src")
			u, _ := url.Parse(r.SubtitleURL(d, 3, "srt"))
			So(u.Path, ShouldEqual, "/Videos/abc/src/Subtitles/3/Stream.srt")

			u, _ = url.Parse(r.SubtitleURL(d, 3, ""))
			So(u.Path, ShouldEqual, "/Videos/abc/src/Subtitles/3/Stream.vtt")
		})
	})

	Convey("AuthorizationHeader", t, func() {
		h := AuthorizationHeader("kinema-cli", "laptop", "dev-1", "0.3.0", "")
		So(h, ShouldEqual, `MediaBrowser Client="kinema-cli", Device="laptop", DeviceId="dev-1", Version="0.3.0"`)

		h = AuthorizationHeader("kinema-cli", "laptop", "dev-1", "0.3.0", "tok")
		So(h, ShouldEndWith, `Token="tok"`)
	})
}
