// Package pipeline provides the high-level orchestration for one scrape and
// resolve run: collect listings from the venues, resolve each against
// Letterboxd, and fold the results into a deduplicated movie list.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/movie-finder/internal/batch"
	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/dedupe"
	"github.com/jonathan/movie-finder/internal/fetch"
	"github.com/jonathan/movie-finder/internal/observability"
	"github.com/jonathan/movie-finder/internal/ratings"
	"github.com/jonathan/movie-finder/internal/scrape"
	"github.com/jonathan/movie-finder/internal/types"
)

// RunOptions holds configuration for one pipeline run.
type RunOptions struct {
	// Venues limits scraping to these source tags; empty scrapes everything.
	Venues []string
	// DisableCache skips the persisted ratings cache for this run.
	DisableCache bool
	Concurrency  int
	Verbose      bool
	// Status receives progress messages; nil runs silently.
	Status *observability.StatusLog
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Movies   []types.MergedMovie `json:"movies"`
	NotFound []types.Listing     `json:"movies_not_found"`
	NoRating []types.Listing     `json:"movies_found_no_rating"`
	// Listings is the raw enriched listing set before merging.
	Listings []types.Listing `json:"-"`
}

// Runner wires the pipeline's collaborators together once so the CLI and the
// dashboard server share identical runs.
type Runner struct {
	cfg      *config.Config
	registry *scrape.Registry
	client   *fetch.Client
	renderer *fetch.Renderer
}

// NewRunner builds a Runner from configuration.
func NewRunner(cfg *config.Config) *Runner {
	client := fetch.NewClient(&fetch.Options{Timeout: cfg.FetchTimeout, UserAgent: fetch.DefaultUserAgent})
	renderer := fetch.NewRenderer(0, cfg.Verbose)
	return &Runner{
		cfg:      cfg,
		registry: scrape.NewRegistry(client, renderer),
		client:   client,
		renderer: renderer,
	}
}

// Sources returns the registered venue source tags.
func (r *Runner) Sources() []string {
	return r.registry.Sources()
}

// Run executes one scrape and resolve pass. It never fails outright: a venue
// error, a cache problem, or an unresolvable title each degrade to less data.
func (r *Runner) Run(ctx context.Context, opts RunOptions) RunResult {
	status := opts.Status
	logf := func(format string, args ...interface{}) {
		if status != nil {
			status.Logf(format, args...)
		}
	}

	logf("Starting movie scraping...")
	if len(opts.Venues) > 0 {
		logf("Scraping selected theaters: %s", strings.Join(opts.Venues, ", "))
	} else {
		logf("Scraping all movie theaters...")
	}

	listings := r.registry.All(ctx, opts.Venues, status)
	logf("Found %d movies from selected theaters", len(listings))

	// Cache trouble is never fatal: run against the network alone.
	var store *cache.Store
	if !opts.DisableCache {
		var err error
		store, err = cache.Open(r.cfg.CachePath)
		if err != nil {
			logf("Warning: ratings cache unavailable (%v), continuing without it", err)
			store = nil
		}
	}

	logf("Looking up Letterboxd ratings...")
	fetcher := ratings.NewFetcher(r.client, r.renderer, opts.Verbose)
	resolver := ratings.NewResolver(fetcher, store, opts.Verbose)
	coordinator := batch.NewCoordinator(resolver, store)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = r.cfg.Concurrency
	}
	result := coordinator.Process(ctx, listings, batch.Options{
		Concurrency: concurrency,
		OnProgress: func(done, total int) {
			logf("Resolved %d/%d movies", done, total)
		},
	})

	rated := 0
	for _, l := range result.Listings {
		if l.Rating != nil {
			rated++
		}
	}
	logf("Found ratings for %d movies", rated)
	logf("%d movies found on Letterboxd but no ratings yet", len(result.NoRating))
	logf("%d movies not found on Letterboxd", len(result.NotFound))

	movies := dedupe.Merge(result.Listings)
	logf("Scraping completed: %d unique movies", len(movies))

	return RunResult{
		Movies:   movies,
		NotFound: result.NotFound,
		NoRating: result.NoRating,
		Listings: result.Listings,
	}
}

// Describe returns a short human-readable summary of a run, used by the CLI.
func (res RunResult) Describe() string {
	return fmt.Sprintf("%d movies (%d unmatched, %d unrated)",
		len(res.Movies), len(res.NotFound), len(res.NoRating))
}
