package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/movie-finder/internal/types"
)

func resolved(title, venue, source, lbURL string, rating float64) types.Listing {
	return types.Listing{
		Title:         title,
		Venue:         venue,
		Source:        source,
		LetterboxdURL: lbURL,
		Rating:        &rating,
	}
}

func TestMerge_SameFilmTwoVenues(t *testing.T) {
	in := []types.Listing{
		resolved("Heat", "Film Forum", "film_forum", "https://letterboxd.com/film/heat-1995/", 4.28),
		resolved("Heat", "Metrograph", "metrograph", "https://letterboxd.com/film/heat-1995/", 4.28),
	}

	out := Merge(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Heat", out[0].Title)
	assert.Contains(t, out[0].Venue, "Film Forum")
	assert.Contains(t, out[0].Venue, "Metrograph")
	assert.Len(t, out[0].Sources, 2)
}

func TestMerge_DistinctFilmsStaySplit(t *testing.T) {
	in := []types.Listing{
		resolved("Heat", "Film Forum", "film_forum", "https://letterboxd.com/film/heat-1995/", 4.28),
		resolved("Eraserhead", "IFC Center", "ifc", "https://letterboxd.com/film/eraserhead/", 3.95),
	}

	out := Merge(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Heat", out[0].Title)
	assert.Equal(t, "Eraserhead", out[1].Title)
}

func TestMerge_DuplicateVenueNotRepeated(t *testing.T) {
	in := []types.Listing{
		resolved("Heat", "Film Forum", "film_forum", "https://letterboxd.com/film/heat-1995/", 4.28),
		resolved("Heat", "Film Forum", "film_forum", "https://letterboxd.com/film/heat-1995/", 4.28),
	}

	out := Merge(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Film Forum", out[0].Venue)
	assert.Equal(t, []string{"film_forum"}, out[0].Sources)
}

func TestMerge_VenueSubstringNotReappended(t *testing.T) {
	in := []types.Listing{
		resolved("Heat", "Nitehawk Cinema Williamsburg", "nitehawk", "https://letterboxd.com/film/heat-1995/", 4.28),
		resolved("Heat", "Nitehawk Cinema", "nitehawk_pp", "https://letterboxd.com/film/heat-1995/", 4.28),
	}

	out := Merge(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Nitehawk Cinema Williamsburg", out[0].Venue)
	assert.Len(t, out[0].Sources, 2)
}

func TestMerge_UnresolvedListingsMergeBySlug(t *testing.T) {
	in := []types.Listing{
		{Title: "Obscure Short (2024)", Venue: "Light Industry", Source: "light_industry"},
		{Title: "Obscure Short (2024)", Venue: "Anthology", Source: "anthology"},
	}

	out := Merge(in)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].LetterboxdURL)
	assert.Len(t, out[0].Sources, 2)
}

func TestMerge_FirstSeenOrderAndTitle(t *testing.T) {
	in := []types.Listing{
		resolved("Eraserhead", "IFC Center", "ifc", "https://letterboxd.com/film/eraserhead/", 3.95),
		resolved("HEAT (1995)", "Film Forum", "film_forum", "https://letterboxd.com/film/heat-1995/", 4.28),
		resolved("Heat", "Metrograph", "metrograph", "https://letterboxd.com/film/heat-1995/", 4.28),
	}

	out := Merge(in)
	require.Len(t, out, 2)
	assert.Equal(t, "Eraserhead", out[0].Title)
	assert.Equal(t, "HEAT (1995)", out[1].Title) // first-seen title wins
}

func TestMerge_FirstTicketingURLKept(t *testing.T) {
	in := []types.Listing{
		{Title: "Heat", Venue: "Film Forum", Source: "film_forum", LetterboxdURL: "https://letterboxd.com/film/heat-1995/"},
		{Title: "Heat", Venue: "Metrograph", Source: "metrograph", URL: "https://metrograph.com/heat", LetterboxdURL: "https://letterboxd.com/film/heat-1995/"},
	}

	out := Merge(in)
	require.Len(t, out, 1)
	assert.Equal(t, "https://metrograph.com/heat", out[0].URL)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil))
}
