// Package session holds the immutable inputs of one playback session: the
// descriptor handed to the controller, its tracks, and the optional intro
// window and next-episode handoff that arrive alongside it.
package session

import "github.com/samber/mo"

// Descriptor is everything needed to start playing one catalog item.
// It is passed by value and never mutated once built.
type Descriptor struct {
	ItemID      string
	AccessToken string
	Title       string
	Subtitle    string

	// MediaSourceID selects among several physical sources of the same item.
	MediaSourceID mo.Option[string]

	// Tracks is absent when the track list is not known yet.
	Tracks mo.Option[Tracks]

	// StartPosition is the resume offset in seconds.
	StartPosition float64
}

// MediaSourceOrItem returns the media source id, or the item id when none was chosen.
func (d Descriptor) MediaSourceOrItem() string {
	return d.MediaSourceID.OrElse(d.ItemID)
}

// IntroWindow is the [Start, End) range of an episode's opening, in seconds.
type IntroWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies inside the window.
func (w IntroWindow) Contains(t float64) bool {
	return t >= w.Start && t < w.End
}

// Valid rejects empty and inverted windows.
func (w IntroWindow) Valid() bool {
	return w.Start >= 0 && w.End > w.Start
}

// Handoff names the episode queued to play after the current one.
type Handoff struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title"`
}
