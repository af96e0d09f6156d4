package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical_Deterministic(t *testing.T) {
	first := Canonical("Frankenstein (2025)")
	second := Canonical("Frankenstein (2025)")
	assert.Equal(t, first, second)
}

func TestCanonical_YearSuffix(t *testing.T) {
	assert.Equal(t, "frankenstein-2025", Canonical("Frankenstein (2025)"))
}

func TestCanonical_Contractions(t *testing.T) {
	assert.Equal(t, "cant-stop-wont-stop", Canonical("Can't Stop Won't Stop"))
}

func TestCanonical_CurlyApostrophes(t *testing.T) {
	// Right single quotation mark (U+2019) as venues often emit it.
	assert.Equal(t, "cant-stop-wont-stop", Canonical("Can’t Stop Won’t Stop"))
}

func TestCanonical_Ampersand(t *testing.T) {
	assert.Equal(t, "stiller-and-meara", Canonical("Stiller & Meara"))
}

func TestCanonical_ArithmeticExpressions(t *testing.T) {
	// Digits joined across "+", hyphen-joined across "=".
	assert.Equal(t, "22-5", Canonical("2+2=5"))
}

func TestCanonical_NoiseRules(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"presents prefix", "ACE Presents: A Nightmare on Elm Street", "a-nightmare-on-elm-street"},
		{"subtitled", "Parasite (Subtitled)", "parasite"},
		{"anniversary", "Jaws: 50th Anniversary", "jaws"},
		{"format bracket", "Heat [35mm]", "heat"},
		{"in 35mm", "Goodfellas in 35mm", "goodfellas"},
		{"directors cut", "Blade Runner: The Director's Cut", "blade-runner"},
		{"movie party", "The Room Movie Party", "the-room"},
		{"live qa", "Anemone with Live Q&A", "anemone"},
		{"rerelease", "Interstellar Re-release", "interstellar"},
		{"restoration", "Metropolis (1927 Restoration)", "metropolis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.title))
		})
	}
}

func TestCanonical_Diacritics(t *testing.T) {
	assert.Equal(t, "amelie", Canonical("Amélie"))
	assert.Equal(t, "leon", Canonical("Léon"))
}

func TestCanonical_PeriodsAndPunctuation(t *testing.T) {
	assert.Equal(t, "ms-45", Canonical("Ms. 45"))
	assert.Equal(t, "mash", Canonical("M.A.S.H"))
}

func TestParts_YearExtraction(t *testing.T) {
	s, year := Parts("Frankenstein (2025)")
	assert.Equal(t, "frankenstein", s)
	assert.Equal(t, "2025", year)

	s, year = Parts("Frankenstein")
	assert.Equal(t, "frankenstein", s)
	assert.Empty(t, year)
}

func TestFilmURL(t *testing.T) {
	assert.Equal(t, "https://letterboxd.com/film/frankenstein-2025/", FilmURL("Frankenstein (2025)"))
}

func TestURLFor(t *testing.T) {
	assert.Equal(t, "https://letterboxd.com/film/heat/", URLFor("heat"))
}
