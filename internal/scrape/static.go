package scrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/movie-finder/internal/fetch"
	"github.com/jonathan/movie-finder/internal/types"
)

// staticVenue scrapes a server-rendered venue page with a CSS extraction
// function.
type staticVenue struct {
	name    string
	source  string
	url     string
	client  *fetch.Client
	extract func(v *staticVenue, doc *goquery.Document) []types.Listing
}

func (v *staticVenue) Name() string   { return v.name }
func (v *staticVenue) Source() string { return v.source }

func (v *staticVenue) Scrape(ctx context.Context) ([]types.Listing, error) {
	status, html, err := v.client.FetchPage(ctx, v.url)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%s returned status %d", v.url, status)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", v.url, err)
	}
	return dedupeTitles(v.extract(v, doc)), nil
}

func newMetrograph(client *fetch.Client) Scraper {
	return &staticVenue{
		name:   "Metrograph",
		source: "metrograph",
		url:    "https://metrograph.com/film/",
		client: client,
		extract: func(v *staticVenue, doc *goquery.Document) []types.Listing {
			var listings []types.Listing
			doc.Find("h3.movie_title a").Each(func(_ int, sel *goquery.Selection) {
				title := strings.TrimSpace(sel.Text())
				if title == "" {
					return
				}
				href, _ := sel.Attr("href")
				listings = append(listings, types.Listing{
					Title:  title,
					Venue:  v.name,
					Source: v.source,
					URL:    absoluteURL("https://metrograph.com", href),
				})
			})
			return listings
		},
	}
}

func newIFCCenter(client *fetch.Client) Scraper {
	return &staticVenue{
		name:   "IFC Center",
		source: "ifc",
		url:    "https://www.ifccenter.com/",
		client: client,
		extract: func(v *staticVenue, doc *goquery.Document) []types.Listing {
			var listings []types.Listing
			// Only the "Now Playing" section; the page also lists
			// coming-soon titles in identical markup.
			doc.Find(".ifc-now-playing .ifc-grid-item").Each(func(_ int, item *goquery.Selection) {
				title := strings.TrimSpace(item.Find(".ifc-grid-info h2").First().Text())
				if title == "" {
					return
				}
				href, _ := item.Find("a[href]").First().Attr("href")
				listings = append(listings, types.Listing{
					Title:  title,
					Venue:  v.name,
					Source: v.source,
					URL:    absoluteURL("https://www.ifccenter.com", href),
				})
			})
			return listings
		},
	}
}

// absoluteURL prefixes base onto site-relative hrefs; already-absolute and
// empty hrefs pass through.
func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
