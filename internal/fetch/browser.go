// Package fetch - browser.go provides headless browser rendering for pages
// whose content only exists after JavaScript runs.
package fetch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/movie-finder/internal/types"
)

// DefaultRenderTimeout bounds a single browser render. Rendering is slow
// (seconds); callers treat it as one opaque blocking call.
const DefaultRenderTimeout = 60 * time.Second

// Renderer is the dynamic render capability. It drives a headless browser to
// evaluate JavaScript on a page, used for the rating histogram and for venue
// sites that render their listings client-side.
// Requires Chrome/Chromium to be installed on the system.
type Renderer struct {
	timeout time.Duration
	verbose bool
}

// NewRenderer creates a Renderer with the given per-render timeout
// (0 uses DefaultRenderTimeout).
func NewRenderer(timeout time.Duration, verbose bool) *Renderer {
	if timeout == 0 {
		timeout = DefaultRenderTimeout
	}
	return &Renderer{timeout: timeout, verbose: verbose}
}

// histogramJS reads the per-star vote histogram from a rendered Letterboxd
// film page. Each bar links to /rated/<stars>/ and titles itself with the
// vote count; half-star buckets use the fraction character.
const histogramJS = `
() => {
	const out = [];
	const bars = document.querySelectorAll('.rating-histogram-chart .rating-histogram-bar a, section.ratings-histogram-chart .rating-histogram-bar a');
	bars.forEach(a => {
		const href = a.getAttribute('href') || '';
		const starMatch = href.replace(/½/g, '.5').match(/rated\/([0-9.]+)\//);
		const title = a.getAttribute('title') || a.textContent || '';
		const countMatch = title.replace(/,/g, '').match(/(\d+)/);
		if (starMatch && countMatch) {
			out.push({ stars: parseFloat(starMatch[1]), count: parseInt(countMatch[1], 10) });
		}
	});
	return out;
}`

// RenderHistogram renders a film page and extracts its vote histogram.
// An empty histogram is not an error; the caller degrades to "found, no
// rating".
func (r *Renderer) RenderHistogram(ctx context.Context, url string) ([]types.HistogramBucket, error) {
	var buckets []types.HistogramBucket
	if err := r.Evaluate(ctx, url, histogramJS, &buckets); err != nil {
		return nil, err
	}
	if r.verbose {
		log.Printf("[BROWSER] Extracted %d histogram buckets from %s", len(buckets), url)
	}
	return buckets, nil
}

// Evaluate navigates to a URL in a headless browser, runs the optional
// pre-extraction actions (clicks, waits), then invokes js (a zero-argument
// function literal) and unmarshals its return value into out.
func (r *Renderer) Evaluate(ctx context.Context, url, js string, out any, actions ...chromedp.Action) error {
	if r.verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", url)
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering a moment to settle.
		chromedp.Sleep(3 * time.Second),
	}
	tasks = append(tasks, actions...)
	tasks = append(tasks, chromedp.Evaluate("("+js+")()", out))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("browser rendering failed: %w", err)
	}
	return nil
}

// ClickIfPresent returns an action that clicks the first element matching
// sel and waits, ignoring a missing element. Venue pages hide listings
// behind "show more" style buttons that may or may not be present.
func ClickIfPresent(sel string, settle time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := chromedp.Click(sel, chromedp.NodeVisible).Do(clickCtx); err != nil {
			return nil
		}
		return chromedp.Sleep(settle).Do(ctx)
	})
}
