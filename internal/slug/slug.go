// Package slug derives canonical Letterboxd identifiers from noisy listing
// titles. The transformation is pure and deterministic: the same title always
// produces the same identifier, which downstream code relies on for caching
// and deduplication.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FilmBaseURL is the template the canonical identifier is embedded into.
const FilmBaseURL = "https://letterboxd.com/film/"

// noiseRules strip event framing that venues attach to titles. Order
// matters: later rules assume earlier noise is already gone.
var noiseRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^.*?\s+presents:\s*`),
	regexp.MustCompile(`(?i)\s*\(subtitled\)$`),
	regexp.MustCompile(`(?i)\s*\(dubbed\)$`),
	regexp.MustCompile(`(?i)\s*remastered$`),
	regexp.MustCompile(`(?i)\s*movie party$`),
	regexp.MustCompile(`(?i):?\s*\d+(?:st|nd|rd|th)\s*anniversary$`),
	regexp.MustCompile(`(?i)\s*early access$`),
	regexp.MustCompile(`(?i)\s*with live q&a$`),
	regexp.MustCompile(`(?i)\s*re-?release$`),
	regexp.MustCompile(`(?i)\s*a sing-along event$`),
	regexp.MustCompile(`(?i)\s*\(\d{4}\s+reconstruction\)$`),
	regexp.MustCompile(`(?i)\s*\(\d{4}\s+restoration\)$`),
	regexp.MustCompile(`(?i)\s*\[[^\]]+\]$`),
	regexp.MustCompile(`(?i)\s*in\s+\d+mm$`),
	regexp.MustCompile(`(?i)\s*:\s*the director'?s cut$`),
}

var (
	yearExtractRe = regexp.MustCompile(`\((\d{4})\)`)
	yearRemoveRe  = regexp.MustCompile(`\s*\(\d{4}\)`)

	// Apostrophe variants (straight, curly left/right, backtick) followed by
	// a contraction tail. Must run before general punctuation stripping so
	// "Can't" becomes "Cant", not "Can-t".
	contractionRe = regexp.MustCompile("['‘’`](s|d|t|ll|re|ve)\\b")

	// Arithmetic expressions inside titles: keep adjacent digits together
	// instead of splitting on the operator.
	mathPlusRe = regexp.MustCompile(`(\d)\+(\d)`)
	mathEqRe   = regexp.MustCompile(`(\d)=(\d)`)

	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// apostropheStripper removes apostrophe-like characters and periods left
// after contraction handling, and spells out ampersands.
var apostropheStripper = strings.NewReplacer(
	"'", "", "‘", "", "’", "", "`", "",
	"ʼ", "", "ˈ", "",
	".", "",
	"&", "and",
)

// stripMarks decomposes accented characters and drops the combining marks,
// so accented letters degrade to their base Latin letter.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Parts returns the slug and the 4-digit year (possibly empty) derived from
// a raw listing title.
func Parts(title string) (string, string) {
	clean := title
	for _, rule := range noiseRules {
		clean = rule.ReplaceAllString(clean, "")
	}

	year := ""
	if m := yearExtractRe.FindStringSubmatch(clean); m != nil {
		year = m[1]
		clean = yearRemoveRe.ReplaceAllString(clean, "")
	}

	clean = contractionRe.ReplaceAllString(clean, "$1")
	clean = apostropheStripper.Replace(clean)

	if decomposed, _, err := transform.String(stripMarks, clean); err == nil {
		clean = decomposed
	}

	clean = mathPlusRe.ReplaceAllString(clean, "$1$2")
	clean = mathEqRe.ReplaceAllString(clean, "$1-$2")

	s := nonAlnumRe.ReplaceAllString(strings.ToLower(clean), "-")
	s = strings.Trim(s, "-")

	return s, year
}

// Canonical returns the canonical identifier for a title: the slug, suffixed
// with the extracted year when one was present.
func Canonical(title string) string {
	s, year := Parts(title)
	if year != "" {
		return s + "-" + year
	}
	return s
}

// FilmURL embeds the canonical identifier for a title into the base URL
// template, yielding the fetchable film-page URL.
func FilmURL(title string) string {
	return URLFor(Canonical(title))
}

// URLFor turns an already-canonical identifier into a film-page URL.
func URLFor(identifier string) string {
	return FilmBaseURL + identifier + "/"
}
