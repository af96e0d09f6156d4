// Package types provides type definitions for listings, ratings, and merged
// movie records shared across the movie-finder system.
package types

// Listing is a single screening scraped from one venue. The scraper fields
// are immutable once produced; the rating fields are filled in later by the
// batch coordinator.
type Listing struct {
	Title  string `json:"title"`
	Venue  string `json:"venue"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"` // ticketing link

	// Resolved rating fields.
	LetterboxdURL  string   `json:"letterboxd_url,omitempty"`
	Rating         *float64 `json:"letterboxd_rating,omitempty"`
	RatingCount    *int     `json:"rating_count,omitempty"`
	RatingComputed bool     `json:"rating_computed,omitempty"`
	Year           string   `json:"year,omitempty"`
}

// Found reports whether the listing resolved to a confirmed film page.
func (l Listing) Found() bool {
	return l.LetterboxdURL != ""
}

// ApplyRating copies the resolved fields of a RatingRecord onto the listing.
func (l *Listing) ApplyRating(rec RatingRecord) {
	l.LetterboxdURL = rec.URL
	l.Rating = rec.Rating
	l.RatingCount = rec.RatingCount
	l.RatingComputed = rec.Computed
	l.Year = rec.Year
}

// RatingRecord is the outcome of resolving one title against Letterboxd.
// URL is the canonical film URL that was confirmed to exist, empty when the
// lookup failed entirely. A record is never rated but not found: URL == ""
// implies Rating == nil.
type RatingRecord struct {
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`
	Computed    bool     `json:"computed,omitempty"` // count derived from the vote histogram
	URL         string   `json:"url,omitempty"`
	Year        string   `json:"year,omitempty"`
}

// Found reports whether the lookup confirmed a film page.
func (r RatingRecord) Found() bool {
	return r.URL != ""
}

// HistogramBucket is one bar of a film page's per-star vote histogram,
// recovered by the dynamic render capability. Stars supports half-star
// buckets (0.5 through 5.0).
type HistogramBucket struct {
	Count int     `json:"count"`
	Stars float64 `json:"stars"`
}

// MergedMovie is one deduplicated film: all listings that share a canonical
// identifier folded into a single record. Venue is the comma-joined union of
// distinct venue names; Sources is the de-duplicated set of source tags.
type MergedMovie struct {
	Title          string   `json:"title"`
	Venue          string   `json:"venue"`
	Sources        []string `json:"sources"`
	URL            string   `json:"url,omitempty"`
	LetterboxdURL  string   `json:"letterboxd_url,omitempty"`
	Rating         *float64 `json:"letterboxd_rating,omitempty"`
	RatingCount    *int     `json:"rating_count,omitempty"`
	RatingComputed bool     `json:"rating_computed,omitempty"`
	Year           string   `json:"year,omitempty"`
}
