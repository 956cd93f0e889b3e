package adaptive

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// AutoLevel lets the engine pick the rung.
const AutoLevel = -1

// QualityLevel is one selectable rung of the adaptive ladder.
// Index is assigned by the engine and stays stable for the instance's lifetime.
type QualityLevel struct {
	Index   int `json:"index"`
	Height  int `json:"height"`
	Bitrate int `json:"bitrate,omitempty"`
}

// Label is the human name of the rung.
func (q QualityLevel) Label() string {
	return fmt.Sprintf("%dp", q.Height)
}

// NormalizeLevels keeps the first level of every height and sorts the result by descending height.
func NormalizeLevels(levels []QualityLevel) []QualityLevel {
	out := lo.UniqBy(levels, func(l QualityLevel) int {
		return l.Height
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Height > out[j].Height
	})

	return out
}
