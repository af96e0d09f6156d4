// Package server provides the HTTP API behind the movie dashboard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonathan/movie-finder/internal/cache"
	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/observability"
	"github.com/jonathan/movie-finder/internal/pipeline"
)

// runnerFunc runs one pipeline pass. Indirected so tests can substitute the
// real pipeline.
type runnerFunc func(ctx context.Context, opts pipeline.RunOptions) pipeline.RunResult

// Server represents the dashboard HTTP server.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	status     *observability.StatusLog
	run        runnerFunc
	sources    []string

	mu          sync.Mutex
	running     bool
	runID       string
	lastUpdated time.Time
	data        pipeline.RunResult
	threshold   float64
}

// New creates a server around a pipeline runner.
func New(cfg *config.Config, runner *pipeline.Runner) *Server {
	s := &Server{
		cfg:       cfg,
		status:    observability.NewStatusLog(cfg.Verbose),
		run:       runner.Run,
		sources:   runner.Sources(),
		threshold: cfg.RatingThreshold,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the SSE stream stays open indefinitely
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/movies", s.handleMovies)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/status/stream", s.handleStatusStream)
	return mux
}

// Start begins listening and kicks an initial scrape in the background, then
// blocks until SIGINT/SIGTERM.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// The dashboard has data to show as soon as the first run finishes.
	go s.startRun(pipeline.RunOptions{Verbose: s.cfg.Verbose})

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// cacheStats reads the persisted cache without keeping it open.
func (s *Server) cacheStats() *cache.Stats {
	store, err := cache.Open(s.cfg.CachePath)
	if err != nil {
		return nil
	}
	stats := store.Stats()
	return &stats
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
