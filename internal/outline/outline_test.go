package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChaptersWithSections(t *testing.T) {
	chapters, err := Parse("# Chapter One\n## Section One\n# Chapter Two\n")
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	assert.Equal(t, 1, chapters[0].Number)
	assert.Equal(t, "Chapter One", chapters[0].Title)
	require.Len(t, chapters[0].Children, 1)
	assert.Equal(t, "Section One", chapters[0].Children[0].Title)
	assert.Equal(t, "Chapter One", chapters[0].Children[0].Parent)

	assert.Equal(t, 2, chapters[1].Number)
	assert.Equal(t, "Chapter Two", chapters[1].Title)
	assert.Empty(t, chapters[1].Children)
}

func TestParseNoHeadings(t *testing.T) {
	_, err := Parse("just some prose\n\nwith paragraphs\n")
	require.ErrorIs(t, err, ErrMalformedOutline)
}

func TestParsePrefixBeatsHeadingLevel(t *testing.T) {
	// Single heading level for both kinds: the prefix disambiguates.
	chapters, err := Parse("## Chapter First\n## Section Alpha\n## Chapter Second\n## Section Beta\n")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Chapter First", chapters[0].Title)
	require.Len(t, chapters[0].Children, 1)
	assert.Equal(t, "Section Alpha", chapters[0].Children[0].Title)
	require.Len(t, chapters[1].Children, 1)
	assert.Equal(t, "Section Beta", chapters[1].Children[0].Title)
}

func TestParseUnprefixedTopLevelIsChapter(t *testing.T) {
	chapters, err := Parse("# The Beginning\n## The Middle Part\n")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, KindChapter, chapters[0].Kind)
	require.Len(t, chapters[0].Children, 1)
	assert.Equal(t, KindSection, chapters[0].Children[0].Kind)
}

func TestParseSectionWithoutChapterIsPromoted(t *testing.T) {
	chapters, err := Parse("## Section Orphan\n")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, KindChapter, chapters[0].Kind)
	assert.Equal(t, 1, chapters[0].Number)
}

func TestParseChapterCountEqualsTopLevelChapters(t *testing.T) {
	chapters, err := Parse("# Chapter A\n## Section A1\n## Section A2\n# Chapter B\n# Chapter C\n## Section C1\n")
	require.NoError(t, err)
	assert.Len(t, chapters, 3)
	for i, ch := range chapters {
		assert.Equal(t, i+1, ch.Number)
	}
}

func TestParseSectionNumbersResetPerChapter(t *testing.T) {
	chapters, err := Parse("# Chapter A\n## Section A1\n## Section A2\n# Chapter B\n## Section B1\n")
	require.NoError(t, err)
	assert.Equal(t, 1, chapters[0].Children[0].Number)
	assert.Equal(t, 2, chapters[0].Children[1].Number)
	assert.Equal(t, 1, chapters[1].Children[0].Number)
}

func TestParseHeadingWithEmphasis(t *testing.T) {
	chapters, err := Parse("# Chapter *One*\n")
	require.NoError(t, err)
	assert.Equal(t, "Chapter One", chapters[0].Title)
}

func TestText(t *testing.T) {
	chapters, err := Parse("# Chapter One\n## Section One\n# Chapter Two\n")
	require.NoError(t, err)
	assert.Equal(t, "- Chapter One\n  - Section One\n- Chapter Two", Text(chapters))
}

func TestDisplayTitle(t *testing.T) {
	chapters, err := Parse("# Chapter One\n## Intrigue\n")
	require.NoError(t, err)
	assert.Equal(t, "Chapter One", chapters[0].DisplayTitle())
	assert.Equal(t, "Intrigue (in Chapter One)", chapters[0].Children[0].DisplayTitle())
}
