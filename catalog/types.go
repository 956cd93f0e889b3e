package catalog

import (
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/session"
)

// Item is the subset of a server item kinema reads.
type Item struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	Type              string            `json:"Type"`
	SeriesID          string            `json:"SeriesId,omitempty"`
	SeriesName        string            `json:"SeriesName,omitempty"`
	SeasonID          string            `json:"SeasonId,omitempty"`
	IndexNumber       int               `json:"IndexNumber,omitempty"`
	ParentIndexNumber int               `json:"ParentIndexNumber,omitempty"`
	RunTimeTicks      int64             `json:"RunTimeTicks,omitempty"`
	ProviderIDs       map[string]string `json:"ProviderIds,omitempty"`
	MediaSources      []MediaSource     `json:"MediaSources,omitempty"`
	UserData          UserData          `json:"UserData"`
}

// MediaSource is one physical file of an item.
type MediaSource struct {
	ID           string        `json:"Id"`
	Name         string        `json:"Name,omitempty"`
	Container    string        `json:"Container,omitempty"`
	MediaStreams []MediaStream `json:"MediaStreams,omitempty"`
}

// MediaStream is one elementary stream of a media source.
type MediaStream struct {
	Index        int    `json:"Index"`
	Type         string `json:"Type"`
	Codec        string `json:"Codec,omitempty"`
	Language     string `json:"Language,omitempty"`
	DisplayTitle string `json:"DisplayTitle,omitempty"`
	IsDefault    bool   `json:"IsDefault"`
	IsExternal   bool   `json:"IsExternal"`
}

// UserData is the calling user's state for an item.
type UserData struct {
	PlaybackPositionTicks int64 `json:"PlaybackPositionTicks"`
	Played                bool  `json:"Played"`
}

// IsEpisode reports whether the item belongs to a series.
func (i Item) IsEpisode() bool {
	return i.Type == "Episode" && i.SeriesID != ""
}

// Runtime is the item length in seconds.
func (i Item) Runtime() float64 {
	return Seconds(i.RunTimeTicks)
}

// Tracks converts the streams of the first media source.
func (i Item) Tracks() session.Tracks {
	if len(i.MediaSources) == 0 {
		return nil
	}

	var tracks session.Tracks
	for _, s := range i.MediaSources[0].MediaStreams {
		t, ok := session.ParseTrackType(s.Type)
		if !ok {
			continue
		}

		tracks = append(tracks, session.Track{
			Index:        s.Index,
			Type:         t,
			DisplayTitle: s.DisplayTitle,
			Language:     s.Language,
			Codec:        s.Codec,
			IsDefault:    s.IsDefault,
			IsExternal:   s.IsExternal,
		})
	}

	return tracks
}

// Ticks converts seconds to server ticks.
func Ticks(seconds float64) int64 {
	return int64(seconds * constant.TicksPerSecond)
}

// Seconds converts server ticks to seconds.
func Seconds(ticks int64) float64 {
	return float64(ticks) / constant.TicksPerSecond
}

type itemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

type introResponse struct {
	Valid      bool    `json:"Valid"`
	IntroStart float64 `json:"IntroStart"`
	IntroEnd   float64 `json:"IntroEnd"`
}

// introRecord caches lookups that found nothing as well.
type introRecord struct {
	Found bool                `json:"found"`
	Intro session.IntroWindow `json:"intro"`
}

// PlaybackReport is the body of the session reporting endpoints.
type PlaybackReport struct {
	ItemID        string `json:"ItemId"`
	MediaSourceID string `json:"MediaSourceId,omitempty"`
	PlaySessionID string `json:"PlaySessionId,omitempty"`
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	IsMuted       bool   `json:"IsMuted"`
	PlayMethod    string `json:"PlayMethod,omitempty"`
	CanSeek       bool   `json:"CanSeek"`
}

// AuthResult is a successful login.
type AuthResult struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"User"`
}
