package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGenresFromJSONObject(t *testing.T) {
	got := ParseGenres(`{"genres": ["Fantasy", "Adventure"]}`)
	assert.Equal(t, []string{"Fantasy", "Adventure"}, got)
}

func TestParseGenresFromEmbeddedJSON(t *testing.T) {
	got := ParseGenres("Sure! Here you go:\n{\"genres\": [\"Horror\"]}\nEnjoy.")
	assert.Equal(t, []string{"Horror"}, got)
}

func TestParseGenresFromBareList(t *testing.T) {
	got := ParseGenres(`["Sci-Fi", "Thriller", "Mystery", "Extra"]`)
	assert.Equal(t, []string{"Sci-Fi", "Thriller", "Mystery"}, got)
}

func TestParseGenresFromPlainText(t *testing.T) {
	got := ParseGenres("Fantasy, Adventure; Coming of Age")
	assert.Equal(t, []string{"Fantasy", "Adventure", "Coming of Age"}, got)
}

func TestParseGenresNormalizesAndDeduplicates(t *testing.T) {
	got := ParseGenres("- Fantasy,\n* fantasy  epic.\nFantasy")
	assert.Equal(t, []string{"Fantasy", "fantasy epic"}, got)
}

func TestSetGenres(t *testing.T) {
	var meta MetaRecord
	meta.SetGenres([]string{"  Mystery, ", "Noir", "Crime", "Overflow"})
	assert.Equal(t, []string{"Mystery", "Noir", "Crime"}, meta.Genres)
	assert.Equal(t, "Mystery", meta.PrimaryGenre)

	// Empty input leaves the record untouched.
	meta.SetGenres(nil)
	assert.Equal(t, "Mystery", meta.PrimaryGenre)
}
