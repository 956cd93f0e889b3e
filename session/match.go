package session

import (
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Match picks the track of type t that best fits a user query such as "jpn",
// "english" or "Commentary". A language code that matches exactly wins;
// otherwise the closest fuzzy match on the label.
func (ts Tracks) Match(t TrackType, query string) mo.Option[Track] {
	query = strings.TrimSpace(strings.ToLower(query))
	candidates := ts.OfType(t)
	if query == "" || len(candidates) == 0 {
		return mo.None[Track]()
	}

	if exact, ok := lo.Find(candidates, func(tr Track) bool {
		return strings.EqualFold(tr.Language, query)
	}); ok {
		return mo.Some(exact)
	}

	label := func(tr Track) string {
		return strings.ToLower(tr.String() + " " + tr.Language)
	}

	matching := lo.Filter(candidates, func(tr Track, _ int) bool {
		return fuzzy.MatchFold(query, label(tr))
	})
	if len(matching) == 0 {
		return mo.None[Track]()
	}

	return mo.Some(lo.MinBy(matching, func(a, b Track) bool {
		return levenshtein.Distance(query, label(a)) < levenshtein.Distance(query, label(b))
	}))
}
