package ratings

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/slug"
	"github.com/jonathan/movie-finder/internal/types"
)

var (
	titleYearRe = regexp.MustCompile(`\s*\(\d{4}\)`)
	withRe      = regexp.MustCompile(`(?i)\s*\bwith\b.*$`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

// Resolver walks the fallback chain for one title: an ordered list of
// candidate transformations, terminal as soon as a candidate's film page is
// confirmed to exist. Results are memoized by the exact requested title for
// the lifetime of the resolver, independent of cache freshness.
type Resolver struct {
	fetcher *Fetcher
	store   *cache.Store // nil when caching is disabled
	verbose bool

	mu   sync.Mutex
	memo map[string]types.RatingRecord
}

// NewResolver creates a Resolver. store may be nil to disable the persisted
// cache.
func NewResolver(fetcher *Fetcher, store *cache.Store, verbose bool) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		store:   store,
		verbose: verbose,
		memo:    make(map[string]types.RatingRecord),
	}
}

// candidates builds the ordered fallback chain for a title. Cheaper, more
// specific transformations come first, and each builds on the previous
// stripping, so the ampersand candidate is also year- and suffix-stripped.
func candidates(title string) []string {
	out := []string{title}
	seen := map[string]struct{}{title: {}}
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	work := title
	if titleYearRe.MatchString(work) {
		work = strings.TrimSpace(titleYearRe.ReplaceAllString(work, ""))
		add(work)
	}
	if withRe.MatchString(work) {
		work = strings.TrimSpace(withRe.ReplaceAllString(work, ""))
		add(work)
	}
	if strings.Contains(work, "&") {
		work = spaceRunRe.ReplaceAllString(strings.ReplaceAll(work, "&", " "), " ")
		add(strings.TrimSpace(work))
	}
	return out
}

// Resolve runs the fallback chain for a title. Exhaustion is a legitimate
// terminal outcome: the zero record (identifier absent) is returned, never
// an error.
func (r *Resolver) Resolve(ctx context.Context, title string) types.RatingRecord {
	r.mu.Lock()
	if rec, ok := r.memo[title]; ok {
		r.mu.Unlock()
		return rec
	}
	r.mu.Unlock()

	rec := r.resolve(ctx, title)

	r.mu.Lock()
	r.memo[title] = rec
	r.mu.Unlock()
	return rec
}

func (r *Resolver) resolve(ctx context.Context, title string) types.RatingRecord {
	for _, candidate := range candidates(title) {
		filmURL := slug.FilmURL(candidate)

		if r.store != nil {
			if entry, ok := r.store.Lookup(filmURL); ok {
				return entry.Record()
			}
		}

		rec := r.fetcher.Fetch(ctx, filmURL)
		if !rec.Found() {
			continue
		}

		if rec.Rating != nil && r.store != nil {
			entry, err := cache.FromRecord(title, rec)
			if err == nil {
				if err := r.store.Put(entry); err != nil && r.verbose {
					log.Printf("cache put %s: %v", filmURL, err)
				}
			}
		}
		return rec
	}
	return types.RatingRecord{}
}
