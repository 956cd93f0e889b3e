package history

import (
	"fmt"
	"time"
)

// Entry is the last known position in one item.
type Entry struct {
	ItemID    string    `json:"item_id"`
	Title     string    `json:"title"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress is the watched share in percent, zero when the duration is unknown.
func (e *Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return e.Position / e.Duration * 100
}

// Resumable reports whether the position is past the start and short of the end.
func (e *Entry) Resumable() bool {
	if e.Position <= MinResume {
		return false
	}
	if e.Duration > 0 && e.Position >= e.Duration*MaxResumeRatio {
		return false
	}
	return true
}

func (e *Entry) String() string {
	return fmt.Sprintf("%s : %.0f%%", e.Title, e.Progress())
}
