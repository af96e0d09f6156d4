// Package cache persists resolved ratings in an append-only CSV ledger with
// an in-memory index in front of it. Entries older than the freshness window
// are treated as misses but never physically removed; re-fetching appends a
// new row and repoints the index at it.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/movie-finder/internal/types"
)

// FreshnessWindow is how long a cached rating is served before a lookup
// falls through to a fresh fetch. An entry exactly this old is still fresh.
const FreshnessWindow = 24 * time.Hour

// computedMarker suffixes a persisted rating count that was derived from the
// vote histogram rather than read from the page.
const computedMarker = "*"

var header = []string{"letterboxd_url", "title", "rating", "rating_count", "year", "updated_at"}

// Entry is one persisted rating keyed by canonical film URL.
type Entry struct {
	URL         string
	Title       string
	Rating      float64
	RatingCount *int
	Computed    bool
	Year        string
	UpdatedAt   time.Time
}

// ErrNoRating is returned when converting a rating-less result for
// persistence. Found-but-unrated results are tracked per run and retried,
// never persisted.
var ErrNoRating = errors.New("cache: refusing to persist entry without a rating")

// FromRecord builds a persistable Entry from a resolved rating record.
// Records without a rating are rejected with ErrNoRating; records without a
// confirmed URL cannot be keyed and are rejected too.
func FromRecord(title string, rec types.RatingRecord) (Entry, error) {
	if !rec.Found() {
		return Entry{}, errors.New("cache: record has no canonical URL")
	}
	if rec.Rating == nil {
		return Entry{}, ErrNoRating
	}
	return Entry{
		URL:         rec.URL,
		Title:       title,
		Rating:      *rec.Rating,
		RatingCount: rec.RatingCount,
		Computed:    rec.Computed,
		Year:        rec.Year,
	}, nil
}

// Record converts a cached entry back into a rating record.
func (e Entry) Record() types.RatingRecord {
	rating := e.Rating
	return types.RatingRecord{
		Rating:      &rating,
		RatingCount: e.RatingCount,
		Computed:    e.Computed,
		URL:         e.URL,
		Year:        e.Year,
	}
}

// Store is the persisted cache: an append-only CSV file plus an in-memory
// index of the latest row per canonical URL.
type Store struct {
	path string

	mu    sync.Mutex
	index map[string]Entry

	now func() time.Time // overridable in tests
}

// Open loads the ledger at path (which need not exist yet) and indexes the
// latest parseable row per URL. Corrupt rows and rows without a rating are
// skipped so they never shadow a future real fetch.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		index: make(map[string]Entry),
		now:   time.Now,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open cache file %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate truncated or malformed rows from an interrupted
			// write; every parseable row stands.
			continue
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == header[0] {
				continue
			}
		}
		entry, ok := parseRow(row)
		if !ok {
			continue
		}
		// Later rows win: the ledger is append-only and the newest
		// row for a URL is authoritative.
		s.index[entry.URL] = entry
	}
	return nil
}

func parseRow(row []string) (Entry, bool) {
	if len(row) < 6 {
		return Entry{}, false
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		// Missing or unparseable rating: drop the row, fail open to a
		// fresh network fetch.
		return Entry{}, false
	}
	updatedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(row[5]))
	if err != nil {
		return Entry{}, false
	}

	entry := Entry{
		URL:       row[0],
		Title:     row[1],
		Rating:    rating,
		Year:      row[4],
		UpdatedAt: updatedAt,
	}

	countField := strings.TrimSpace(row[3])
	if strings.HasSuffix(countField, computedMarker) {
		entry.Computed = true
		countField = strings.TrimSuffix(countField, computedMarker)
	}
	if countField != "" {
		if count, err := strconv.Atoi(countField); err == nil {
			entry.RatingCount = &count
		}
	}

	return entry, true
}

// Lookup returns the cached entry for a canonical URL if one exists and is
// still fresh. Stale entries are reported as misses.
func (s *Store) Lookup(url string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[url]
	if !ok || !s.isFresh(entry) {
		return Entry{}, false
	}
	return entry, true
}

func (s *Store) isFresh(entry Entry) bool {
	return s.now().Sub(entry.UpdatedAt) <= FreshnessWindow
}

// Put appends a new row to the ledger and repoints the in-memory index.
// Entries without a rating are rejected with ErrNoRating. Writes are
// serialized: the ledger is shared by all workers in a batch.
func (s *Store) Put(entry Entry) error {
	if entry.URL == "" {
		return errors.New("cache: entry has no canonical URL")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = s.now()
	}

	if err := s.append(entry); err != nil {
		return err
	}
	s.index[entry.URL] = entry
	return nil
}

func (s *Store) append(entry Entry) error {
	newFile := false
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open cache file %s for append: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write cache header: %w", err)
		}
	}

	countField := ""
	if entry.RatingCount != nil {
		countField = strconv.Itoa(*entry.RatingCount)
		if entry.Computed {
			countField += computedMarker
		}
	}

	row := []string{
		entry.URL,
		entry.Title,
		strconv.FormatFloat(entry.Rating, 'f', -1, 64),
		countField,
		entry.Year,
		entry.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append cache row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Entries returns a snapshot of the indexed entries, most recently updated
// first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.index))
	for _, entry := range s.index {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Stats describes the cache for status reporting.
type Stats struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Fresh   int    `json:"fresh"`
}

// Stats returns entry counts for the dashboard and CLI.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Path: s.path, Entries: len(s.index)}
	for _, entry := range s.index {
		if s.isFresh(entry) {
			stats.Fresh++
		}
	}
	return stats
}
