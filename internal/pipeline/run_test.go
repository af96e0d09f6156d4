package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/movie-finder/internal/config"
	"github.com/jonathan/movie-finder/internal/types"
)

func TestNewRunner_RegistersAllVenues(t *testing.T) {
	cfg := config.Default()
	runner := NewRunner(&cfg)

	sources := runner.Sources()
	require.Len(t, sources, 10)
	assert.Contains(t, sources, "metrograph")
	assert.Contains(t, sources, "ifc")
	assert.Contains(t, sources, "alamo")
	assert.Contains(t, sources, "film_forum")
	assert.Contains(t, sources, "moving_image")
}

func TestRunResult_Describe(t *testing.T) {
	res := RunResult{
		Movies:   []types.MergedMovie{{Title: "Heat"}, {Title: "Eraserhead"}},
		NotFound: []types.Listing{{Title: "Mystery Event"}},
	}
	assert.Equal(t, "2 movies (1 unmatched, 0 unrated)", res.Describe())
}
