package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/pipeline"
	"github.com/jonathan/movie-finder/internal/types"
)

var validate = validator.New()

// RefreshRequest is the body for POST /api/refresh. All fields are optional.
type RefreshRequest struct {
	Theaters        []string `json:"theaters,omitempty"`
	DisableCache    bool     `json:"disable_cache,omitempty"`
	RatingThreshold *float64 `json:"rating_threshold,omitempty" validate:"omitempty,min=0,max=5"`
}

// RefreshResponse is returned when a refresh is accepted.
type RefreshResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// MoviesResponse is the dashboard's data payload.
type MoviesResponse struct {
	Movies          []types.MergedMovie `json:"movies"`
	MoviesNotFound  []types.Listing     `json:"movies_not_found"`
	MoviesNoRating  []types.Listing     `json:"movies_found_no_rating"`
	LastUpdated     string              `json:"last_updated,omitempty"`
	IsScraping      bool                `json:"is_scraping"`
	RatingThreshold float64             `json:"rating_threshold"`
}

// StatusResponse is the payload for GET /api/status.
type StatusResponse struct {
	IsScraping     bool         `json:"is_scraping"`
	RunID          string       `json:"run_id,omitempty"`
	LastUpdated    string       `json:"last_updated,omitempty"`
	TotalMovies    int          `json:"total_movies"`
	MoviesNotFound int          `json:"movies_not_found"`
	MoviesNoRating int          `json:"movies_no_rating"`
	StatusMessages []string     `json:"status_messages"`
	CacheStatus    *cache.Stats `json:"cache_status,omitempty"`
}

// handleMovies returns the data from the most recent completed run.
func (s *Server) handleMovies(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := MoviesResponse{
		Movies:          s.data.Movies,
		MoviesNotFound:  s.data.NotFound,
		MoviesNoRating:  s.data.NoRating,
		IsScraping:      s.running,
		RatingThreshold: s.threshold,
	}
	if !s.lastUpdated.IsZero() {
		resp.LastUpdated = s.lastUpdated.Format(time.RFC3339)
	}
	s.mu.Unlock()

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleRefresh kicks a background scrape+resolve run. A second refresh while
// one is running is refused.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if err := validate.Struct(&req); err != nil {
			s.errorResponse(w, HTTPStatus(&ErrValidation{Message: err.Error()}), err.Error())
			return
		}
	}

	s.mu.Lock()
	if s.running {
		runID := s.runID
		s.mu.Unlock()
		s.jsonResponse(w, http.StatusConflict, map[string]string{
			"status":  "already_running",
			"message": "Scraping already in progress",
			"run_id":  runID,
		})
		return
	}
	s.running = true
	s.runID = uuid.New().String()
	if req.RatingThreshold != nil {
		s.threshold = *req.RatingThreshold
	}
	runID := s.runID
	s.mu.Unlock()

	go s.startRun(pipeline.RunOptions{
		Venues:       req.Theaters,
		DisableCache: req.DisableCache,
		Verbose:      s.cfg.Verbose,
	})

	log.Printf("Starting refresh run %s", runID)
	s.jsonResponse(w, http.StatusAccepted, RefreshResponse{RunID: runID, Status: "started"})
}

// startRun executes one pipeline run and publishes its result. It owns the
// running flag: callers that already claimed it (handleRefresh) are fine, the
// initial scrape claims it here.
func (s *Server) startRun(opts pipeline.RunOptions) {
	s.mu.Lock()
	if s.runID == "" {
		s.running = true
		s.runID = uuid.New().String()
	}
	s.mu.Unlock()

	opts.Status = s.status
	result := s.run(context.Background(), opts)

	s.mu.Lock()
	s.data = result
	s.lastUpdated = time.Now()
	s.running = false
	s.runID = ""
	s.mu.Unlock()
}

// handleStatus reports run state, counts, and recent log lines.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		IsScraping:     s.running,
		RunID:          s.runID,
		TotalMovies:    len(s.data.Movies),
		MoviesNotFound: len(s.data.NotFound),
		MoviesNoRating: len(s.data.NoRating),
		StatusMessages: s.status.Recent(10),
	}
	if !s.lastUpdated.IsZero() {
		resp.LastUpdated = s.lastUpdated.Format(time.RFC3339)
	}
	s.mu.Unlock()

	resp.CacheStatus = s.cacheStats()
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleStatusStream pushes status messages over SSE until the client
// disconnects.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Replay recent history so a freshly opened dashboard has context.
	for _, msg := range s.status.Recent(10) {
		if err := sse.WriteEvent("status", map[string]string{"message": msg}); err != nil {
			return
		}
	}

	ch, cancel := s.status.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := sse.WriteEvent("status", map[string]string{"message": msg}); err != nil {
				return
			}
		}
	}
}
