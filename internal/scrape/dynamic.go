package scrape

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jonathan/movie-finder/internal/fetch"
	"github.com/jonathan/movie-finder/internal/types"
)

// scrapedItem is what the in-page extraction functions hand back.
type scrapedItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// browserVenue scrapes a venue whose listings only exist after client-side
// rendering. actions run before extraction (consent banners, "show more"
// buttons); clean normalizes venue-specific title decoration.
type browserVenue struct {
	name     string
	source   string
	url      string
	baseURL  string
	js       string
	actions  []chromedp.Action
	clean    func(string) string
	renderer *fetch.Renderer
}

func (v *browserVenue) Name() string   { return v.name }
func (v *browserVenue) Source() string { return v.source }

func (v *browserVenue) Scrape(ctx context.Context) ([]types.Listing, error) {
	var items []scrapedItem
	if err := v.renderer.Evaluate(ctx, v.url, v.js, &items, v.actions...); err != nil {
		return nil, err
	}

	var listings []types.Listing
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if !plausibleTitle(title) {
			continue
		}
		if v.clean != nil {
			title = v.clean(title)
		}
		if title == "" {
			continue
		}
		listings = append(listings, types.Listing{
			Title:  title,
			Venue:  v.name,
			Source: v.source,
			URL:    absoluteURL(v.baseURL, item.URL),
		})
	}
	return dedupeTitles(listings), nil
}

// plausibleTitle filters the navigation fragments and showtime labels that
// leak through broad in-page selectors.
func plausibleTitle(title string) bool {
	if len(title) < 3 {
		return false
	}
	if strings.HasPrefix(title, "#") {
		return false
	}
	for _, r := range title {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false // all digits
}

const alamoJS = `
() => {
	const out = [];
	document.querySelectorAll('ion-card-title div').forEach(el => {
		const card = el.closest('ion-card');
		out.push({
			title: (el.textContent || '').trim(),
			url: card?.querySelector('a')?.href || ''
		});
	});
	return out;
}`

// angelikaJS serves both Angelika locations; the chain shares one template.
const angelikaJS = `
() => {
	const out = [];
	const cards = document.querySelectorAll('.showtime-section-thumbnail .card__wrap--inner.angelika-film-center .card');
	cards.forEach(card => {
		const titleEl = card.querySelector('.card__item.flexible h3');
		const linkEl = card.querySelector('a[href*="/movies/details/"]');
		if (titleEl) {
			out.push({
				title: (titleEl.textContent || '').trim(),
				url: linkEl ? linkEl.href : ''
			});
		}
	});
	return out;
}`

const parisJS = `
() => {
	const out = [];
	const cards = document.querySelectorAll('[class*="special_engagements_all_films_grid_item_container"]');
	cards.forEach(card => {
		const titleEl = card.querySelector('[class*="special_engagements_title"] a');
		if (titleEl) {
			out.push({
				title: (titleEl.textContent || '').trim(),
				url: titleEl.href || ''
			});
		}
	});
	return out;
}`

const nitehawkJS = `
() => {
	const out = [];
	document.querySelectorAll('#buy-tickets-listview .show-container').forEach(el => {
		const titleEl = el.querySelector('.show-title');
		const linkEl = el.querySelector('.overlay-link') || el.querySelector('a[href*="/movies/"]');
		if (titleEl) {
			out.push({
				title: (titleEl.textContent || '').trim(),
				url: linkEl ? linkEl.href : ''
			});
		}
	});
	return out;
}`

const movingImageJS = `
() => {
	const out = [];
	document.querySelectorAll('.tribe-events-calendar-list__event-row .tribe-events-calendar-list__event').forEach(el => {
		const titleEl = el.querySelector('.tribe-events-calendar-list__event-title a');
		if (titleEl) {
			out.push({
				title: (titleEl.textContent || '').trim(),
				url: titleEl.href || ''
			});
		}
	});
	return out;
}`

const filmForumJS = `
() => {
	const out = [];
	document.querySelectorAll('.film-details').forEach(el => {
		const titleEl = el.querySelector('.title.style-a a');
		if (titleEl) {
			out.push({
				title: (titleEl.textContent || '').trim(),
				url: titleEl.href || ''
			});
		}
	});
	return out;
}`

var (
	monthDateRe  = regexp.MustCompile(`(?i)\s*-?\s*(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}(?:,?\s+\d{4})?`)
	clockTimeRe  = regexp.MustCompile(`(?i)\s*-?\s*(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:AM|PM)`)
	trailParenRe = regexp.MustCompile(`\s*\([^)]*\)$`)
	threeDRe     = regexp.MustCompile(`\s+3D$`)

	directorPossessiveRe = regexp.MustCompile(`^(?:[A-Z]\.?\s*)*[A-Z][a-z]+(?:\s+(?:[A-Z]\.\s*)*[A-Z][a-z]+)*['’]s\s+`)
	gaugeSuffixRe        = regexp.MustCompile(`(?i)\s*in\s+\d+mm$`)
)

// nonFilmEvents marks Moving Image calendar entries that are not screenings.
var nonFilmEvents = []string{"workshop", "discussion", "panel", "lecture", "tour", "class", "exhibition"}

// cleanMovingImageTitle strips calendar decoration from an event title:
// dates, times, trailing parentheticals, and 3D tags.
func cleanMovingImageTitle(title string) string {
	lower := strings.ToLower(title)
	for _, word := range nonFilmEvents {
		if strings.Contains(lower, word) {
			return ""
		}
	}
	title = monthDateRe.ReplaceAllString(title, "")
	title = clockTimeRe.ReplaceAllString(title, "")
	title = trailParenRe.ReplaceAllString(title, "")
	title = threeDRe.ReplaceAllString(title, "")
	return strings.Trim(title, " -")
}

// cleanFilmForumTitle strips the house style of possessive director
// prefixes ("John Schlesinger's Midnight Cowboy") and gauge suffixes.
func cleanFilmForumTitle(title string) string {
	title = directorPossessiveRe.ReplaceAllString(title, "")
	title = gaugeSuffixRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func allScrapers(client *fetch.Client, renderer *fetch.Renderer) []Scraper {
	return []Scraper{
		&browserVenue{
			name: "Alamo Drafthouse", source: "alamo",
			url: "https://drafthouse.com/nyc", baseURL: "https://drafthouse.com",
			js:       alamoJS,
			actions:  []chromedp.Action{fetch.ClickIfPresent(`ion-button`, 2*time.Second)},
			renderer: renderer,
		},
		newMetrograph(client),
		newIFCCenter(client),
		&browserVenue{
			name: "Angelika Film Center", source: "angelika",
			url: "https://angelikafilmcenter.com/nyc/now-playing", baseURL: "https://angelikafilmcenter.com",
			js: angelikaJS,
			actions: []chromedp.Action{
				fetch.ClickIfPresent(`.common-filter`, 2*time.Second),
				fetch.ClickIfPresent(`.show-more p`, 3*time.Second),
			},
			renderer: renderer,
		},
		&browserVenue{
			name: "Angelika Village East", source: "angelika_village_east",
			url: "https://angelikafilmcenter.com/villageeast/now-playing", baseURL: "https://angelikafilmcenter.com",
			js: angelikaJS,
			actions: []chromedp.Action{
				fetch.ClickIfPresent(`.common-filter`, 2*time.Second),
				fetch.ClickIfPresent(`.show-more p`, 3*time.Second),
			},
			renderer: renderer,
		},
		&browserVenue{
			name: "Paris Theater", source: "paris_theater",
			url: "https://www.paristheaternyc.com/special-engagements", baseURL: "https://www.paristheaternyc.com",
			js:       parisJS,
			renderer: renderer,
		},
		&browserVenue{
			name: "Nitehawk Cinema Williamsburg", source: "nitehawk_williamsburg",
			url: "https://nitehawkcinema.com/williamsburg", baseURL: "https://nitehawkcinema.com",
			js:       nitehawkJS,
			renderer: renderer,
		},
		&browserVenue{
			name: "Nitehawk Cinema Prospect Park", source: "nitehawk_prospect_park",
			url: "https://nitehawkcinema.com/prospectpark", baseURL: "https://nitehawkcinema.com",
			js:       nitehawkJS,
			renderer: renderer,
		},
		&browserVenue{
			name: "Museum of the Moving Image", source: "moving_image",
			url:     "https://movingimage.org/events/list/?tribe_filterbar_category_custom%5B0%5D=230",
			baseURL: "https://movingimage.org",
			js:      movingImageJS, clean: cleanMovingImageTitle,
			renderer: renderer,
		},
		&browserVenue{
			name: "Film Forum", source: "film_forum",
			url: "https://filmforum.org/now_playing", baseURL: "https://filmforum.org",
			js: filmForumJS, clean: cleanFilmForumTitle,
			renderer: renderer,
		},
	}
}
