package ratings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/fetch"
)

// chainServer serves canned film pages and records the order of requested
// paths so tests can assert on the fallback chain.
type chainServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
}

func newChainServer(t *testing.T, pages map[string]string) *chainServer {
	t.Helper()
	cs := &chainServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.paths = append(cs.paths, r.URL.Path)
		cs.mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *chainServer) requested() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.paths...)
}

// testResolver wires a resolver whose slug URLs are rewritten onto the test
// server by a proxying fetcher.
type rewritingFetcher struct {
	client *fetch.Client
	base   string
}

func (r *rewritingFetcher) FetchPage(ctx context.Context, url string) (int, string, error) {
	const prefix = "https://letterboxd.com"
	return r.client.FetchPage(ctx, r.base+url[len(prefix):])
}

func newTestResolver(t *testing.T, cs *chainServer, store *cache.Store) *Resolver {
	t.Helper()
	pages := &rewritingFetcher{client: fetch.NewClient(nil), base: cs.URL}
	return NewResolver(NewFetcher(pages, nil, false), store, false)
}

func TestResolve_FirstCandidateWins(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/heat-1995/": ratedFilmPage})
	r := newTestResolver(t, cs, nil)

	rec := r.Resolve(context.Background(), "Heat (1995)")
	require.True(t, rec.Found())
	assert.Equal(t, []string{"/film/heat-1995/"}, cs.requested())
}

func TestResolve_YearStrippedFallback(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/heat/": ratedFilmPage})
	r := newTestResolver(t, cs, nil)

	rec := r.Resolve(context.Background(), "Heat (1996)")
	require.True(t, rec.Found())
	assert.Equal(t, []string{"/film/heat-1996/", "/film/heat/"}, cs.requested())
}

func TestResolve_ChainOrdering(t *testing.T) {
	// Only the ampersand candidate resolves; the chain must have tried the
	// year-stripped candidate before it.
	cs := newChainServer(t, map[string]string{"/film/stiller-meara/": ratedFilmPage})
	r := newTestResolver(t, cs, nil)

	rec := r.Resolve(context.Background(), "Stiller & Meara (2024)")
	require.True(t, rec.Found())
	assert.Equal(t, []string{
		"/film/stiller-and-meara-2024/",
		"/film/stiller-and-meara/",
		"/film/stiller-meara/",
	}, cs.requested())
}

func TestResolve_WithSuffixFallback(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/the-big-lebowski/": ratedFilmPage})
	r := newTestResolver(t, cs, nil)

	rec := r.Resolve(context.Background(), "The Big Lebowski with Jeff Bridges")
	require.True(t, rec.Found())
	paths := cs.requested()
	assert.Equal(t, "/film/the-big-lebowski/", paths[len(paths)-1])
}

func TestResolve_ExhaustedChainReturnsAbsent(t *testing.T) {
	cs := newChainServer(t, nil)
	r := newTestResolver(t, cs, nil)

	rec := r.Resolve(context.Background(), "Totally Unknown Film (1899)")
	assert.False(t, rec.Found())
	assert.Nil(t, rec.Rating)
}

func TestResolve_TitleMemoShortCircuits(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/heat-1995/": ratedFilmPage})
	r := newTestResolver(t, cs, nil)

	first := r.Resolve(context.Background(), "Heat (1995)")
	second := r.Resolve(context.Background(), "Heat (1995)")
	assert.Equal(t, first, second)
	assert.Len(t, cs.requested(), 1)
}

func TestResolve_NotFoundAlsoMemoized(t *testing.T) {
	cs := newChainServer(t, nil)
	r := newTestResolver(t, cs, nil)

	_ = r.Resolve(context.Background(), "Unknown")
	requests := len(cs.requested())
	_ = r.Resolve(context.Background(), "Unknown")
	assert.Len(t, cs.requested(), requests)
}

func TestResolve_SuccessWritesThroughToCache(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/heat-1995/": ratedFilmPage})
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.csv"))
	require.NoError(t, err)
	r := newTestResolver(t, cs, store)

	rec := r.Resolve(context.Background(), "Heat (1995)")
	require.True(t, rec.Found())

	entry, ok := store.Lookup("https://letterboxd.com/film/heat-1995/")
	require.True(t, ok)
	assert.Equal(t, 4.28, entry.Rating)
	assert.Equal(t, "Heat (1995)", entry.Title)
}

func TestResolve_FoundNoRatingNotPersisted(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/obscure/": unratedFilmPage})
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.csv"))
	require.NoError(t, err)
	r := newTestResolver(t, cs, store)

	rec := r.Resolve(context.Background(), "Obscure")
	require.True(t, rec.Found())
	assert.Nil(t, rec.Rating)
	assert.Equal(t, 0, store.Stats().Entries)
}

func TestResolve_CacheHitSkipsNetwork(t *testing.T) {
	cs := newChainServer(t, map[string]string{"/film/heat-1995/": ratedFilmPage})
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.csv"))
	require.NoError(t, err)

	first := newTestResolver(t, cs, store)
	_ = first.Resolve(context.Background(), "Heat (1995)")
	require.Len(t, cs.requested(), 1)

	// Fresh resolver, same store: no new network traffic.
	second := newTestResolver(t, cs, store)
	rec := second.Resolve(context.Background(), "Heat (1995)")
	require.True(t, rec.Found())
	assert.Len(t, cs.requested(), 1)
}

func TestCandidates_Order(t *testing.T) {
	got := candidates("Stiller & Meara (2024) with Friends")
	assert.Equal(t, []string{
		"Stiller & Meara (2024) with Friends",
		"Stiller & Meara with Friends",
		"Stiller & Meara",
		"Stiller Meara",
	}, got)
}
