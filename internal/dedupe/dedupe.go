// Package dedupe folds listings that resolved to the same film into single
// movie records, unioning venues and source tags.
package dedupe

import (
	"strings"

	"github.com/jonathan/movie-finder/internal/slug"
	"github.com/jonathan/movie-finder/internal/types"
)

// Merge collapses listings sharing a canonical identifier into one
// MergedMovie each. The first-seen title (and ticketing URL) wins; venues
// are comma-joined without repeats; sources are de-duplicated. Output keeps
// first-seen insertion order.
func Merge(listings []types.Listing) []types.MergedMovie {
	index := make(map[string]int, len(listings))
	var merged []types.MergedMovie

	for _, l := range listings {
		key := l.LetterboxdURL
		if key == "" {
			// Unresolved listings still merge when their titles
			// normalize identically.
			key = slug.FilmURL(l.Title)
		}

		i, seen := index[key]
		if !seen {
			index[key] = len(merged)
			merged = append(merged, types.MergedMovie{
				Title:          l.Title,
				Venue:          l.Venue,
				Sources:        []string{l.Source},
				URL:            l.URL,
				LetterboxdURL:  l.LetterboxdURL,
				Rating:         l.Rating,
				RatingCount:    l.RatingCount,
				RatingComputed: l.RatingComputed,
				Year:           l.Year,
			})
			continue
		}

		m := &merged[i]
		if l.Venue != "" && !strings.Contains(m.Venue, l.Venue) {
			if m.Venue == "" {
				m.Venue = l.Venue
			} else {
				m.Venue += ", " + l.Venue
			}
		}
		if !containsString(m.Sources, l.Source) {
			m.Sources = append(m.Sources, l.Source)
		}
		if m.URL == "" {
			m.URL = l.URL
		}
	}

	return merged
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
