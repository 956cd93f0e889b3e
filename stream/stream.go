// Package stream builds the three URL families the media server exposes for an item:
// the adaptive (HLS) manifest, the static direct stream and per-track subtitles.
// Every function here is pure; malformed descriptors produce URLs the server rejects.
package stream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
)

// Profile is the transcoding target requested with every manifest.
type Profile struct {
	DeviceID         string
	VideoCodec       string
	AudioCodec       string
	MaxAudioChannels int
	MaxBitrate       int
	SegmentContainer string
	SubtitleFormat   string
}

// DefaultProfile forces H.264 video and stereo AAC audio under a 20 Mbit/s ceiling.
func DefaultProfile(deviceID string) Profile {
	return Profile{
		DeviceID:         deviceID,
		VideoCodec:       "h264",
		AudioCodec:       "aac",
		MaxAudioChannels: 2,
		MaxBitrate:       20_000_000,
		SegmentContainer: "ts",
		SubtitleFormat:   "vtt",
	}
}

// Selection carries the track choices that change the manifest.
type Selection struct {
	Audio    mo.Option[int]
	Subtitle mo.Option[int]
}

// Resolver turns descriptors into URLs for one server.
type Resolver struct {
	BaseURL string
	Profile Profile
}

// NewResolver trims trailing slashes from baseURL.
func NewResolver(baseURL string, profile Profile) *Resolver {
	return &Resolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Profile: profile,
	}
}

// AdaptiveManifestURL is the HLS master playlist for d. Changing the audio track
// requires a new manifest; subtitles are delivered out-of-band.
func (r *Resolver) AdaptiveManifestURL(d session.Descriptor, sel Selection) string {
	q := r.baseQuery(d)
	q.Set("VideoCodec", r.Profile.VideoCodec)
	q.Set("AudioCodec", r.Profile.AudioCodec)
	q.Set("MaxAudioChannels", strconv.Itoa(r.Profile.MaxAudioChannels))
	q.Set("TranscodingMaxAudioChannels", strconv.Itoa(r.Profile.MaxAudioChannels))
	q.Set("MaxStreamingBitrate", strconv.Itoa(r.Profile.MaxBitrate))
	q.Set("VideoBitrate", strconv.Itoa(r.Profile.MaxBitrate))
	q.Set("SegmentContainer", r.Profile.SegmentContainer)

	if audio, ok := sel.Audio.Get(); ok {
		q.Set("AudioStreamIndex", strconv.Itoa(audio))
	}

	if sub, ok := sel.Subtitle.Get(); ok {
		q.Set("SubtitleStreamIndex", strconv.Itoa(sub))
		q.Set("SubtitleMethod", "External")
	}

	return r.build(fmt.Sprintf("/Videos/%s/master.m3u8", url.PathEscape(d.ItemID)), q)
}

// DirectStreamURL is the original file, served without transcoding.
func (r *Resolver) DirectStreamURL(d session.Descriptor) string {
	q := r.baseQuery(d)
	q.Set("Static", "true")

	return r.build(fmt.Sprintf("/Videos/%s/stream", url.PathEscape(d.ItemID)), q)
}

// SubtitleURL is one subtitle track converted to format. An empty format uses the profile's.
func (r *Resolver) SubtitleURL(d session.Descriptor, trackIndex int, format string) string {
	if format == "" {
		format = r.Profile.SubtitleFormat
	}

	q := url.Values{}
	q.Set("api_key", d.AccessToken)

	path := fmt.Sprintf(
		"/Videos/%s/%s/Subtitles/%d/Stream.%s",
		url.PathEscape(d.ItemID),
		url.PathEscape(d.MediaSourceOrItem()),
		trackIndex,
		format,
	)

	return r.build(path, q)
}

func (r *Resolver) baseQuery(d session.Descriptor) url.Values {
	q := url.Values{}
	q.Set("api_key", d.AccessToken)
	q.Set("DeviceId", r.Profile.DeviceID)
	q.Set("MediaSourceId", d.MediaSourceOrItem())
	return q
}

// build joins base, path and query; url.Values.Encode sorts keys, so URLs are deterministic.
func (r *Resolver) build(path string, q url.Values) string {
	return r.BaseURL + path + "?" + q.Encode()
}

// AuthorizationHeader is the MediaBrowser authorization value identifying this client.
// token may be empty for unauthenticated calls.
func AuthorizationHeader(client, device, deviceID, version, token string) string {
	fields := []string{
		fmt.Sprintf("Client=%q", client),
		fmt.Sprintf("Device=%q", device),
		fmt.Sprintf("DeviceId=%q", deviceID),
		fmt.Sprintf("Version=%q", version),
	}

	if token != "" {
		fields = append(fields, fmt.Sprintf("Token=%q", token))
	}

	return "MediaBrowser " + strings.Join(fields, ", ")
}
