// Package search filters episode lists for the picker.
package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/strandmedia/strand/internal/domain"
)

// Match pairs an episode entry with its rank for sorting.
type Match struct {
	Entry domain.EpisodeListEntry
	Rank  int // lower is better
}

// FilterEpisodes ranks episodes against a query. An empty query returns
// all entries in episode order. Titles are matched case- and
// accent-insensitively; an exact episode-number match always wins.
func FilterEpisodes(query string, entries []domain.EpisodeListEntry) []domain.EpisodeListEntry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	var matches []Match
	for _, e := range entries {
		// "12" should find episode 12 even when the title doesn't.
		if query == strconv.Itoa(e.Number) {
			matches = append(matches, Match{Entry: e, Rank: -1})
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(query, e.Title)
		if rank < 0 {
			continue
		}
		matches = append(matches, Match{Entry: e, Rank: rank})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Rank < matches[j].Rank
	})

	result := make([]domain.EpisodeListEntry, len(matches))
	for i, m := range matches {
		result[i] = m.Entry
	}
	return result
}
