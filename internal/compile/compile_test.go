package compile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookforge/internal/book"
)

func newTestProject(t *testing.T) (*Compiler, book.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	c := New(store)
	c.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return c, store, dir
}

func seedBook(t *testing.T, store book.Store, dir string) {
	t.Helper()
	_, err := store.Write(1, "Chapter One", "# Chapter One\n\nFirst prose & more.\n\n---\n\nAfter the break.\n")
	require.NoError(t, err)
	_, err = store.Write(2, "Chapter Two", "# Chapter Two\n\nSecond prose with 100% effort.\n")
	require.NoError(t, err)
	require.NoError(t, book.SaveMeta(dir, &book.MetaRecord{
		Title:    "My Book",
		Author:   "An Author",
		Language: "en",
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "back-cover-synopsis.md"),
		[]byte("A tale of tests.\n"), 0o644))
}

func TestAssembleIsDeterministic(t *testing.T) {
	c, store, dir := newTestProject(t)
	seedBook(t, store, dir)

	first, err := c.Assemble()
	require.NoError(t, err)
	second, err := c.Assemble()
	require.NoError(t, err)
	assert.Equal(t, first, second, "compiling twice must be byte-identical")
}

func TestAssembleStructure(t *testing.T) {
	c, store, dir := newTestProject(t)
	seedBook(t, store, dir)

	out, err := c.Assemble()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "---\n"))
	assert.Contains(t, out, `title-meta: "My Book"`)
	assert.Contains(t, out, `author-meta: "An Author"`)
	assert.Contains(t, out, `lang: "en"`)

	// Contents link to stable number-keyed anchors.
	assert.Contains(t, out, "# Contents {.unnumbered}")
	assert.Contains(t, out, "- [Chapter One](#chapter-1)")
	assert.Contains(t, out, "- [Chapter Two](#chapter-2)")
	assert.Contains(t, out, "# Chapter One {#chapter-1}")
	assert.Contains(t, out, "# Chapter Two {#chapter-2}")

	// Unit headings are replaced, not duplicated.
	assert.Equal(t, 1, strings.Count(out, "Chapter One {#chapter-1}"))
	assert.NotContains(t, out, "\n# Chapter One\n")

	// Prose sanitization and break normalization.
	assert.Contains(t, out, `First prose \& more.`)
	assert.Contains(t, out, `100\% effort`)
	assert.Contains(t, out, "* * *")
	assert.NotContains(t, out, "\n---\n\nAfter the break.")

	assert.Contains(t, out, "Copyright © 2026 An Author")
	assert.Contains(t, out, "# Back Cover {.unnumbered}\n\nA tale of tests.")
}

func TestAssembleUsesMetaTitles(t *testing.T) {
	c, store, dir := newTestProject(t)
	seedBook(t, store, dir)
	// A retitle recorded in meta wins over the unit's own heading.
	_, err := book.SetChapterTitle(dir, 2, "The Reckoning")
	require.NoError(t, err)

	out, err := c.Assemble()
	require.NoError(t, err)
	assert.Contains(t, out, "# The Reckoning {#chapter-2}")
	assert.Contains(t, out, "- [The Reckoning](#chapter-2)")
}

func TestAssembleEmbedsCoverWhenPresent(t *testing.T) {
	c, store, dir := newTestProject(t)
	seedBook(t, store, dir)

	out, err := c.Assemble()
	require.NoError(t, err)
	assert.NotContains(t, out, "titlepage\n\\centering\n\\includegraphics")

	require.NoError(t, os.WriteFile(filepath.Join(dir, CoverFilename), []byte("png"), 0o644))
	out, err = c.Assemble()
	require.NoError(t, err)
	assert.Contains(t, out, `\includegraphics[width=\textwidth,height=\textheight,keepaspectratio]{cover.png}`)
	assert.Contains(t, out, `<figure class="cover">`)
}

func TestAssembleEmptyProjectFails(t *testing.T) {
	c, _, _ := newTestProject(t)
	_, err := c.Assemble()
	require.Error(t, err)
}

func TestWritePersistsBook(t *testing.T) {
	c, store, dir := newTestProject(t)
	seedBook(t, store, dir)

	path, err := c.Write()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BookFilename), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Contents")
}

func TestEscapeLaTeX(t *testing.T) {
	assert.Equal(t, `fish \& chips, 50\% off, \#1, snake\_case`,
		EscapeLaTeX("fish & chips, 50% off, #1, snake_case"))
	assert.Equal(t, "code `a_b & c` stays", EscapeLaTeX("code `a_b & c` stays"))
	assert.Equal(t, "math $a_1 & b$ stays", EscapeLaTeX("math $a_1 & b$ stays"))
}

func TestEscapeProseSkipsFences(t *testing.T) {
	in := "prose & text\n```\ncode & code\n```\nmore %"
	want := "prose \\& text\n```\ncode & code\n```\nmore \\%"
	assert.Equal(t, want, escapeProse(in))
}

func TestStripLeadingHeading(t *testing.T) {
	title, body := StripLeadingHeading("# The Title\n\nBody text.\n")
	assert.Equal(t, "The Title", title)
	assert.Equal(t, "Body text.\n", body)

	title, body = StripLeadingHeading("No heading here.\n")
	assert.Empty(t, title)
	assert.Equal(t, "No heading here.\n", body)
}

func TestStripFrontMatter(t *testing.T) {
	in := "---\ntitle: Stale\n---\n\n# Chapter One\n\nBody text.\n"
	assert.Equal(t, "# Chapter One\n\nBody text.\n", StripFrontMatter(in))
	assert.Equal(t, "plain body\n", StripFrontMatter("plain body\n"))
	// An unterminated block is left alone rather than eating the unit.
	assert.Equal(t, "---\nbroken", StripFrontMatter("---\nbroken"))
}

func TestStripUnsafe(t *testing.T) {
	assert.Equal(t, "clean\ttext\nline", StripUnsafe("clean\ttext\x00\x07\nline"))
}

func TestNormalizeBreaks(t *testing.T) {
	in := "para\n\n---\n\npara\n\n***\n\n- list item"
	out := normalizeBreaks(in)
	assert.NotContains(t, out, "---")
	assert.NotContains(t, out, "***")
	assert.Equal(t, 2, strings.Count(out, "* * *"))
	assert.Contains(t, out, "- list item")
}

func TestOutputBaseName(t *testing.T) {
	assert.Equal(t, "TheReckoning", OutputBaseName("The Reckoning"))
	assert.Equal(t, "Untitled", OutputBaseName("!!!"))
}
