package session

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// TrackType is the kind of elementary stream a Track describes.
type TrackType int

const (
	Audio TrackType = iota
	Subtitle
	Video
)

func (t TrackType) String() string {
	switch t {
	case Audio:
		return "Audio"
	case Subtitle:
		return "Subtitle"
	case Video:
		return "Video"
	default:
		return "Unknown"
	}
}

// ParseTrackType maps the server's stream type names. Unknown names report false.
func ParseTrackType(s string) (TrackType, bool) {
	switch strings.ToLower(s) {
	case "audio":
		return Audio, true
	case "subtitle":
		return Subtitle, true
	case "video":
		return Video, true
	default:
		return 0, false
	}
}

// Track is one audio, subtitle or video stream of an item.
// Index is unique within its Type only.
type Track struct {
	Index        int       `json:"index"`
	Type         TrackType `json:"type"`
	DisplayTitle string    `json:"display_title,omitempty"`
	Language     string    `json:"language,omitempty"`
	Codec        string    `json:"codec,omitempty"`
	IsDefault    bool      `json:"is_default"`
	IsExternal   bool      `json:"is_external"`
}

// String is the label shown in track pickers.
func (t Track) String() string {
	switch {
	case t.DisplayTitle != "":
		return t.DisplayTitle
	case t.Language != "":
		return fmt.Sprintf("%s (%s)", strings.ToUpper(t.Language), t.Type)
	default:
		return fmt.Sprintf("%s #%d", t.Type, t.Index)
	}
}

// Tracks is the track list of one media source.
type Tracks []Track

// OfType keeps the tracks of type t, in source order.
func (ts Tracks) OfType(t TrackType) Tracks {
	return lo.Filter(ts, func(tr Track, _ int) bool {
		return tr.Type == t
	})
}

// Find looks a track up by type and index.
func (ts Tracks) Find(t TrackType, index int) mo.Option[Track] {
	found, ok := lo.Find(ts, func(tr Track) bool {
		return tr.Type == t && tr.Index == index
	})
	if !ok {
		return mo.None[Track]()
	}
	return mo.Some(found)
}

// Default returns the default track of type t. Audio falls back to the first
// audio track; subtitles have no fallback since "off" is a valid default.
func (ts Tracks) Default(t TrackType) mo.Option[Track] {
	ofType := ts.OfType(t)

	if found, ok := lo.Find(ofType, func(tr Track) bool { return tr.IsDefault }); ok {
		return mo.Some(found)
	}

	if t == Audio && len(ofType) > 0 {
		return mo.Some(ofType[0])
	}

	return mo.None[Track]()
}
