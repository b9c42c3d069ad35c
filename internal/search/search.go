// Package search filters listed catalog entries locally.
package search

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"github.com/mmcdole/appshelf/internal/domain"
)

// Result is a matched entry with the title positions that matched
type Result struct {
	Software       domain.Software
	MatchedIndexes []int // Byte offsets into the searchable text
	Score          int   // Higher is better
}

// Index implements sahilm/fuzzy.Source over a set of entries
type Index struct {
	items []domain.Software
	texts []string // Pre-computed lowercase searchable text
}

// NewIndex builds an index. The searchable text is the display title,
// followed by the entry key when the title does not already contain it.
func NewIndex(items []domain.Software) *Index {
	texts := make([]string, len(items))
	for i, sw := range items {
		text := strings.ToLower(sw.Title())
		if name := strings.ToLower(sw.Name); !strings.Contains(text, name) {
			text += " " + name
		}
		texts[i] = text
	}
	return &Index{items: items, texts: texts}
}

// String returns the searchable text at index i (implements fuzzy.Source)
func (idx *Index) String(i int) string { return idx.texts[i] }

// Len returns the number of entries (implements fuzzy.Source)
func (idx *Index) Len() int { return len(idx.items) }

// Filter returns entries matching query, best first. An empty query returns
// every entry in index order.
func (idx *Index) Filter(query string) []Result {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		results := make([]Result, len(idx.items))
		for i, sw := range idx.items {
			results[i] = Result{Software: sw}
		}
		return results
	}

	matches := sfuzzy.FindFrom(query, idx)
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Software:       idx.items[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// Filter fuzzy-matches entries by title and name
func Filter(items []domain.Software, query string) []Result {
	return NewIndex(items).Filter(query)
}

// MatchTag keeps entries with a tag fuzzily matching tag, closest tags first.
// Entries with equally close tags keep their input order.
func MatchTag(items []domain.Software, tag string) []domain.Software {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return items
	}

	type ranked struct {
		sw       domain.Software
		distance int
	}
	var hits []ranked
	for _, sw := range items {
		ranks := fuzzy.RankFindFold(tag, sw.Info.Tags)
		if len(ranks) == 0 {
			continue
		}
		best := ranks[0].Distance
		for _, r := range ranks[1:] {
			best = min(best, r.Distance)
		}
		hits = append(hits, ranked{sw: sw, distance: best})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].distance < hits[b].distance
	})

	out := make([]domain.Software, len(hits))
	for i, h := range hits {
		out[i] = h.sw
	}
	return out
}

// Suggest returns the known tag closest to input by edit distance, or "" when
// nothing is within maxDistance.
func Suggest(input string, tags []string, maxDistance int) string {
	input = strings.ToLower(input)
	best, bestDist := "", maxDistance+1
	for _, t := range tags {
		if d := fuzzy.LevenshteinDistance(input, strings.ToLower(t)); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}
