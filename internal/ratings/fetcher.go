package ratings

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/movie-finder/internal/types"
)

// PageFetcher is the injected page-fetch capability. A non-success status is
// returned as data, not an error; errors surface only for transport failure.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (status int, body string, err error)
}

// HistogramRenderer is the injected dynamic-render capability, used only
// when a film page exists but carries no aggregate rating.
type HistogramRenderer interface {
	RenderHistogram(ctx context.Context, url string) ([]types.HistogramBucket, error)
}

// Fetcher retrieves rating data for one canonical film URL. Every failure
// mode degrades to "not found" for that attempt; nothing propagates.
type Fetcher struct {
	pages    PageFetcher
	renderer HistogramRenderer // optional; nil disables histogram recovery
	verbose  bool
}

// NewFetcher creates a Fetcher. renderer may be nil.
func NewFetcher(pages PageFetcher, renderer HistogramRenderer, verbose bool) *Fetcher {
	return &Fetcher{pages: pages, renderer: renderer, verbose: verbose}
}

// Fetch performs one fetch of the canonical URL and classifies the outcome:
// found with a rating, found without one, or not found (zero record).
func (f *Fetcher) Fetch(ctx context.Context, filmURL string) types.RatingRecord {
	status, body, err := f.pages.FetchPage(ctx, filmURL)
	if err != nil {
		if f.verbose {
			log.Printf("fetch %s: %v", filmURL, err)
		}
		return types.RatingRecord{}
	}
	if status != http.StatusOK {
		return types.RatingRecord{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		// Unparseable page: treated as not found for this attempt.
		return types.RatingRecord{}
	}

	if film := extractFilmJSONLD(doc); film != nil {
		rec := types.RatingRecord{
			URL:  filmURL,
			Year: yearFrom(film.DateCreated),
		}
		if film.AggregateRating != nil {
			rating := film.AggregateRating.RatingValue
			count := film.AggregateRating.RatingCount
			rec.Rating = &rating
			rec.RatingCount = &count
			return rec
		}
		// The page confirms the film exists but reports no aggregate:
		// try to recover a rating from the vote histogram.
		return f.fromHistogram(ctx, rec)
	}

	// No structured data at all: fall back to the visible page text.
	return ratingFromHTML(doc, filmURL)
}

func (f *Fetcher) fromHistogram(ctx context.Context, rec types.RatingRecord) types.RatingRecord {
	if f.renderer == nil {
		return rec
	}
	buckets, err := f.renderer.RenderHistogram(ctx, rec.URL)
	if err != nil {
		if f.verbose {
			log.Printf("histogram render %s: %v", rec.URL, err)
		}
		return rec
	}
	rating, total, ok := WeightedRating(buckets)
	if !ok {
		return rec
	}
	rec.Rating = &rating
	rec.RatingCount = &total
	rec.Computed = true
	return rec
}

// ratingFromHTML scrapes the rating and year out of the rendered markup.
// The film counts as found only when a rating value is actually present.
func ratingFromHTML(doc *goquery.Document, filmURL string) types.RatingRecord {
	text := strings.TrimSpace(doc.Find(".average-rating").First().Text())
	if text == "" {
		return types.RatingRecord{}
	}
	rating, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return types.RatingRecord{}
	}

	rec := types.RatingRecord{URL: filmURL, Rating: &rating}
	if yearText := doc.Find(".film-title-wrapper a").First().Text(); yearText != "" {
		rec.Year = yearFrom(yearText)
	}
	return rec
}
