package playback

import (
	"net/url"

	"github.com/kinema-cli/kinema/adaptive"
	"github.com/kinema-cli/kinema/session"
	"github.com/samber/mo"
)

// Phase is where a session is in its lifecycle.
type Phase int

const (
	Initializing Phase = iota
	Buffering
	Playing
	Paused
	Ended
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether the session can no longer change phase.
func (p Phase) Terminal() bool {
	return p == Ended || p == Failed
}

// State is a snapshot of one playback session.
type State struct {
	ItemID   string
	Title    string
	Subtitle string

	Phase        Phase
	CurrentTime  float64
	Duration     float64
	BufferedUpTo float64

	Volume float64
	Muted  bool

	AudioTrack    mo.Option[int]
	SubtitleTrack mo.Option[int]
	Quality       mo.Option[int]
	QualityLevels []adaptive.QualityLevel
	Tracks        session.Tracks

	Mode   adaptive.Mode
	Source string

	Fullscreen      bool
	ControlsVisible bool
	SettingsOpen    bool

	Intro        mo.Option[session.IntroWindow]
	CanSkipIntro bool

	Next      mo.Option[session.Handoff]
	OfferNext bool

	Failure string
}

func (s State) clone() State {
	s.QualityLevels = append([]adaptive.QualityLevel(nil), s.QualityLevels...)
	s.Tracks = append(session.Tracks(nil), s.Tracks...)
	return s
}

// Report is the serializable form of State.
type Report struct {
	ItemID        string                  `json:"item_id"`
	Title         string                  `json:"title"`
	Subtitle      string                  `json:"subtitle,omitempty"`
	Phase         string                  `json:"phase" jsonschema:"enum=initializing,enum=buffering,enum=playing,enum=paused,enum=ended,enum=failed"`
	CurrentTime   float64                 `json:"current_time"`
	Duration      float64                 `json:"duration"`
	BufferedUpTo  float64                 `json:"buffered_up_to"`
	Volume        float64                 `json:"volume" jsonschema:"minimum=0,maximum=1"`
	Muted         bool                    `json:"muted"`
	AudioTrack    *int                    `json:"audio_track,omitempty"`
	SubtitleTrack *int                    `json:"subtitle_track,omitempty"`
	Quality       *int                    `json:"quality,omitempty"`
	QualityLevels []adaptive.QualityLevel `json:"quality_levels,omitempty"`
	Tracks        session.Tracks          `json:"tracks,omitempty"`
	Mode          string                  `json:"mode" jsonschema:"enum=adaptive,enum=native,enum=direct"`
	Source        string                  `json:"source"`
	Fullscreen    bool                    `json:"fullscreen"`
	Controls      bool                    `json:"controls_visible"`
	SettingsOpen  bool                    `json:"settings_open"`
	Intro         *session.IntroWindow    `json:"intro,omitempty"`
	CanSkipIntro  bool                    `json:"can_skip_intro"`
	Next          *session.Handoff        `json:"next,omitempty"`
	OfferNext     bool                    `json:"offer_next"`
	Failure       string                  `json:"failure,omitempty"`
}

// Report converts the snapshot. Access tokens are stripped from the source URL.
func (s State) Report() Report {
	return Report{
		ItemID:        s.ItemID,
		Title:         s.Title,
		Subtitle:      s.Subtitle,
		Phase:         s.Phase.String(),
		CurrentTime:   s.CurrentTime,
		Duration:      s.Duration,
		BufferedUpTo:  s.BufferedUpTo,
		Volume:        s.Volume,
		Muted:         s.Muted,
		AudioTrack:    s.AudioTrack.ToPointer(),
		SubtitleTrack: s.SubtitleTrack.ToPointer(),
		Quality:       s.Quality.ToPointer(),
		QualityLevels: s.QualityLevels,
		Tracks:        s.Tracks,
		Mode:          s.Mode.String(),
		Source:        redact(s.Source),
		Fullscreen:    s.Fullscreen,
		Controls:      s.ControlsVisible,
		SettingsOpen:  s.SettingsOpen,
		Intro:         s.Intro.ToPointer(),
		CanSkipIntro:  s.CanSkipIntro,
		Next:          s.Next.ToPointer(),
		OfferNext:     s.OfferNext,
		Failure:       s.Failure,
	}
}

func redact(source string) string {
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}

	q := u.Query()
	if !q.Has("api_key") {
		return source
	}

	q.Del("api_key")
	u.RawQuery = q.Encode()
	return u.String()
}
