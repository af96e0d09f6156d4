// Package ratings resolves movie titles to Letterboxd rating records: it
// fetches film pages, reads their structured metadata, degrades through the
// histogram and visible-HTML fallbacks, and walks the fallback chain of
// title transformations until a candidate resolves.
package ratings

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed film_jsonld_schema.json
var filmSchemaJSON string

// filmSchema validates JSON-LD payloads before we trust their fields; the
// page content is external and occasionally malformed.
var filmSchema = gojsonschema.NewStringLoader(filmSchemaJSON)

// Letterboxd wraps its JSON-LD in CDATA comment guards.
var (
	cdataOpenRe  = regexp.MustCompile(`/\*\s*<!\[CDATA\[\s*\*/\s*`)
	cdataCloseRe = regexp.MustCompile(`\s*/\*\s*\]\]>\s*\*/`)
)

// filmJSONLD is the subset of the film page's structured data the engine
// reads.
type filmJSONLD struct {
	Type            string `json:"@type"`
	DateCreated     string `json:"dateCreated"`
	AggregateRating *struct {
		RatingValue float64 `json:"ratingValue"`
		RatingCount int     `json:"ratingCount"`
	} `json:"aggregateRating"`
}

// isMovie reports whether the structured data's type marker confirms the
// work exists on the rating service.
func (f *filmJSONLD) isMovie() bool {
	return strings.EqualFold(f.Type, "Movie")
}

// extractFilmJSONLD finds the first schema-valid JSON-LD block describing a
// movie in the document. Malformed blocks are skipped, not fatal: the caller
// falls back to parsing visible page text.
func extractFilmJSONLD(doc *goquery.Document) *filmJSONLD {
	var film *filmJSONLD

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content := cdataOpenRe.ReplaceAllString(sel.Text(), "")
		content = cdataCloseRe.ReplaceAllString(content, "")
		content = strings.TrimSpace(content)
		if content == "" {
			return true
		}

		result, err := gojsonschema.Validate(filmSchema, gojsonschema.NewStringLoader(content))
		if err != nil || !result.Valid() {
			return true
		}

		var candidate filmJSONLD
		if err := json.Unmarshal([]byte(content), &candidate); err != nil {
			return true
		}
		if !candidate.isMovie() {
			return true
		}
		film = &candidate
		return false
	})

	return film
}

var yearRe = regexp.MustCompile(`\d{4}`)

// yearFrom pulls the first 4-digit year out of a date string like
// "2025-10-17", empty when none is present.
func yearFrom(date string) string {
	return yearRe.FindString(date)
}
