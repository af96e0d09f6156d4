package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/observability"
	"github.com/jonathan/movie-finder/internal/pipeline"
	"github.com/jonathan/movie-finder/internal/types"
)

// newTestServer builds a server around a stubbed pipeline run.
func newTestServer(t *testing.T, run runnerFunc) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.csv")
	s := &Server{
		cfg:       &cfg,
		status:    observability.NewStatusLog(false),
		run:       run,
		threshold: cfg.RatingThreshold,
	}
	return s
}

func stubResult() pipeline.RunResult {
	rating := 4.28
	return pipeline.RunResult{
		Movies: []types.MergedMovie{{
			Title:         "Heat",
			Venue:         "Film Forum",
			Sources:       []string{"film_forum"},
			LetterboxdURL: "https://letterboxd.com/film/heat-1995/",
			Rating:        &rating,
		}},
		NotFound: []types.Listing{{Title: "Mystery Event", Venue: "Moving Image", Source: "moving_image"}},
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleMovies_EmptyThenPopulated(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/movies", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MoviesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Movies)
	assert.False(t, resp.IsScraping)
	assert.Equal(t, 4.0, resp.RatingThreshold)

	s.mu.Lock()
	s.data = stubResult()
	s.lastUpdated = time.Now()
	s.mu.Unlock()

	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/movies", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Movies, 1)
	assert.Equal(t, "Heat", resp.Movies[0].Title)
	assert.NotEmpty(t, resp.LastUpdated)
}

func TestHandleRefresh_StartsRun(t *testing.T) {
	started := make(chan pipeline.RunOptions, 1)
	s := newTestServer(t, func(ctx context.Context, opts pipeline.RunOptions) pipeline.RunResult {
		started <- opts
		return stubResult()
	})

	body := bytes.NewBufferString(`{"theaters":["metrograph"],"disable_cache":true,"rating_threshold":3.5}`)
	req := httptest.NewRequest("POST", "/api/refresh", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp.Status)
	assert.NotEmpty(t, resp.RunID)

	select {
	case opts := <-started:
		assert.Equal(t, []string{"metrograph"}, opts.Venues)
		assert.True(t, opts.DisableCache)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline run never started")
	}

	s.mu.Lock()
	assert.Equal(t, 3.5, s.threshold)
	s.mu.Unlock()
}

func TestHandleRefresh_RefusedWhileRunning(t *testing.T) {
	block := make(chan struct{})
	s := newTestServer(t, func(ctx context.Context, opts pipeline.RunOptions) pipeline.RunResult {
		<-block
		return pipeline.RunResult{}
	})
	defer close(block)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/api/refresh", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Second refresh while the first still holds the running flag.
	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/api/refresh", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_running")
}

func TestHandleRefresh_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/refresh", bytes.NewBufferString(`{not json`))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRefresh_ThresholdOutOfRange(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/api/refresh", bytes.NewBufferString(`{"rating_threshold": 9.5}`))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t, nil)
	s.status.Logf("Scraping Metrograph...")

	s.mu.Lock()
	s.data = stubResult()
	s.running = true
	s.runID = "test-run"
	s.mu.Unlock()

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsScraping)
	assert.Equal(t, "test-run", resp.RunID)
	assert.Equal(t, 1, resp.TotalMovies)
	assert.Equal(t, 1, resp.MoviesNotFound)
	require.Len(t, resp.StatusMessages, 1)
	assert.Contains(t, resp.StatusMessages[0], "Scraping Metrograph...")
}

func TestHandleStatusStream_ReplaysRecent(t *testing.T) {
	s := newTestServer(t, nil)
	s.status.Logf("first message")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/status/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.routes().ServeHTTP(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not exit on context cancellation")
	}

	body := rec.Body.String()
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, "first message")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestWithCORS_Preflight(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.withCORS(s.routes())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/movies", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
