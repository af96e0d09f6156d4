// Package batch coordinates resolving many listings at once: cache hits are
// enriched synchronously, the rest fan out to a bounded worker pool running
// the fallback chain, and shared accumulators collect the misses.
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/ratings"
	"github.com/jonathan/movie-finder/internal/slug"
	"github.com/jonathan/movie-finder/internal/types"
)

// DefaultConcurrency is the worker-pool width when none is configured.
const DefaultConcurrency = 15

// ProgressFunc reports completed work. Invocations reflect completion
// order, not submission order, and done is monotonically increasing.
type ProgressFunc func(done, total int)

// Options configures one batch run.
type Options struct {
	Concurrency int
	OnProgress  ProgressFunc
}

// Result is the outcome of a batch: every input listing enriched (possibly
// with all-absent rating fields), plus the two tracking lists.
type Result struct {
	Listings []types.Listing
	NotFound []types.Listing
	NoRating []types.Listing
}

// Coordinator runs batches against a resolver and the shared cache store.
type Coordinator struct {
	resolver *ratings.Resolver
	store    *cache.Store // nil when caching is disabled
}

// NewCoordinator creates a Coordinator. store may be nil.
func NewCoordinator(resolver *ratings.Resolver, store *cache.Store) *Coordinator {
	return &Coordinator{resolver: resolver, store: store}
}

// Process resolves ratings for every listing. One listing's failure never
// affects its siblings; the batch always runs to completion.
func (c *Coordinator) Process(ctx context.Context, listings []types.Listing, opts Options) Result {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	total := len(listings)
	step := total / 10
	if step < 1 {
		step = 1
	}

	var mu sync.Mutex
	var notFound, noRating []types.Listing
	done := 0

	// complete must be called with mu held.
	complete := func(l types.Listing) {
		done++
		if !l.Found() {
			notFound = append(notFound, l)
		} else if l.Rating == nil {
			noRating = append(noRating, l)
		}
		if opts.OnProgress != nil && (done%step == 0 || done == total) {
			opts.OnProgress(done, total)
		}
	}

	// Partition: fresh cache hits are enriched with no network access.
	var cached, pending []types.Listing
	for _, l := range listings {
		if c.store != nil {
			if entry, ok := c.store.Lookup(slug.FilmURL(l.Title)); ok {
				l.ApplyRating(entry.Record())
				cached = append(cached, l)
				continue
			}
		}
		pending = append(pending, l)
	}

	mu.Lock()
	for _, l := range cached {
		complete(l)
	}
	mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range pending {
		g.Go(func() error {
			rec := c.resolver.Resolve(gctx, pending[i].Title)
			// Each worker owns its own slice element; only the
			// accumulators and the counter are shared.
			pending[i].ApplyRating(rec)

			mu.Lock()
			complete(pending[i])
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return Result{
		Listings: append(cached, pending...),
		NotFound: notFound,
		NoRating: noRating,
	}
}
