// Package scrape collects current movie listings from NYC repertory and
// first-run venues. Venues with server-rendered pages are parsed directly;
// venues that render client-side go through the headless browser.
package scrape

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/movie-finder/internal/fetch"
	"github.com/jonathan/movie-finder/internal/observability"
	"github.com/jonathan/movie-finder/internal/types"
)

// Scraper produces listings for one venue.
type Scraper interface {
	// Name is the human-readable venue name.
	Name() string
	// Source is the stable tag attached to every listing from this venue.
	Source() string
	Scrape(ctx context.Context) ([]types.Listing, error)
}

// Registry holds the known venue scrapers, keyed by source tag.
type Registry struct {
	scrapers map[string]Scraper
	order    []string
}

// NewRegistry creates a registry populated with every supported venue.
func NewRegistry(client *fetch.Client, renderer *fetch.Renderer) *Registry {
	r := &Registry{scrapers: make(map[string]Scraper)}
	for _, s := range allScrapers(client, renderer) {
		r.register(s)
	}
	return r
}

func (r *Registry) register(s Scraper) {
	r.scrapers[s.Source()] = s
	r.order = append(r.order, s.Source())
}

// Sources returns every registered source tag in registration order.
func (r *Registry) Sources() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Select returns the scrapers for the given source tags, or every scraper
// when sources is empty. Unknown tags are ignored.
func (r *Registry) Select(sources []string) []Scraper {
	if len(sources) == 0 {
		sources = r.order
	}
	var out []Scraper
	for _, src := range sources {
		if s, ok := r.scrapers[strings.ToLower(strings.TrimSpace(src))]; ok {
			out = append(out, s)
		}
	}
	return out
}

// All runs the selected scrapers concurrently and returns their combined
// listings. A venue that fails is logged and contributes nothing; it never
// aborts the others. Listings with empty titles are dropped. Output is
// grouped by venue in registration order so runs are reproducible.
func (r *Registry) All(ctx context.Context, sources []string, status *observability.StatusLog) []types.Listing {
	scrapers := r.Select(sources)

	var mu sync.Mutex
	byVenue := make(map[string][]types.Listing, len(scrapers))

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range scrapers {
		g.Go(func() error {
			if status != nil {
				status.Logf("Scraping %s...", s.Name())
			}
			listings, err := s.Scrape(gctx)
			if err != nil {
				if status != nil {
					status.Logf("Error scraping %s: %v", s.Name(), err)
				}
				return nil
			}

			var kept []types.Listing
			for _, l := range listings {
				if strings.TrimSpace(l.Title) == "" {
					continue
				}
				kept = append(kept, l)
			}

			mu.Lock()
			byVenue[s.Source()] = kept
			mu.Unlock()
			if status != nil {
				status.Logf("Found %d movies at %s", len(kept), s.Name())
			}
			return nil
		})
	}
	_ = g.Wait()

	rank := make(map[string]int, len(r.order))
	for i, src := range r.order {
		rank[src] = i
	}
	srcs := make([]string, 0, len(byVenue))
	for src := range byVenue {
		srcs = append(srcs, src)
	}
	sort.Slice(srcs, func(i, j int) bool { return rank[srcs[i]] < rank[srcs[j]] })

	var all []types.Listing
	for _, src := range srcs {
		all = append(all, byVenue[src]...)
	}
	return all
}

// dedupeTitles drops repeated titles from one venue's listings,
// case-insensitively, keeping the first occurrence. Venue pages frequently
// repeat a film once per showtime block.
func dedupeTitles(listings []types.Listing) []types.Listing {
	seen := make(map[string]struct{}, len(listings))
	var out []types.Listing
	for _, l := range listings {
		key := strings.ToLower(strings.TrimSpace(l.Title))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
