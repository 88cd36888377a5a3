package writer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/outline"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// stubGen scripts generation responses by prompt shape and counts calls.
type stubGen struct {
	calls        int
	chapterCalls int
	chapter      string // overrides the canned chapter prose
	fail         func(prompt string, call int) error
}

func (s *stubGen) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	if s.fail != nil {
		if err := s.fail(prompt, s.calls); err != nil {
			return "", err
		}
	}
	switch {
	case strings.Contains(prompt, "Write the next part"):
		s.chapterCalls++
		if s.chapter != "" {
			return s.chapter, nil
		}
		return "Prose for the chapter.\n\nMore prose.", nil
	case strings.Contains(prompt, "context summary"):
		return "Summary of what happened.", nil
	case strings.Contains(prompt, "back cover synopsis"):
		return "A gripping tale.", nil
	case strings.Contains(prompt, "book title"):
		return `"The Generated Title"`, nil
	case strings.Contains(prompt, "tagging book genres"):
		return `{"genres": ["Fantasy", "Adventure"]}`, nil
	default:
		return "text", nil
	}
}

func testPolicy() retry.Policy {
	return retry.Policy{
		Mode:       config.RetryBackoffFixed,
		Initial:    time.Millisecond,
		Max:        time.Millisecond,
		MaxRetries: 2,
	}
}

func parseOutline(t *testing.T, text string) []*outline.Node {
	t.Helper()
	chapters, err := outline.Parse(text)
	require.NoError(t, err)
	return chapters
}

func TestRunGeneratesEveryUnit(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	gen := &stubGen{}
	w := New(store, gen, testPolicy(), Options{Title: "My Book", Author: "An Author", Language: "en"})

	result, err := w.Run(context.Background(), parseOutline(t, "# Chapter One\n## Section One\n# Chapter Two\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Empty(t, result.Failed)

	units, err := store.List()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "001-chapter-one.md", units[0].Filename)
	assert.Equal(t, "002-chapter-two.md", units[1].Filename)

	read, err := store.Read(1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(read.Content, "# Chapter One\n"))

	meta, err := book.LoadMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, "My Book", meta.Title)
	assert.Equal(t, []string{"Fantasy", "Adventure"}, meta.Genres)
	assert.Equal(t, "Fantasy", meta.PrimaryGenre)
	require.Len(t, meta.Chapters, 2)

	synopsis, err := os.ReadFile(filepath.Join(dir, SynopsisFilename))
	require.NoError(t, err)
	assert.Equal(t, "A gripping tale.\n", string(synopsis))

	progress, err := LoadProgress(dir)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, statusCompleted, progress.Status)
	assert.Equal(t, 2, progress.CompletedSteps)
}

func TestRunSecondRunMakesNoGenerationCalls(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	opts := Options{Title: "My Book", Author: "An Author", Language: "en"}
	chapters := parseOutline(t, "# Chapter One\n# Chapter Two\n")

	_, err = New(store, &stubGen{}, testPolicy(), opts).Run(context.Background(), chapters)
	require.NoError(t, err)

	second := &stubGen{}
	result, err := New(store, second, testPolicy(), opts).Run(context.Background(), chapters)
	require.NoError(t, err)
	assert.Equal(t, 0, second.calls, "rerun must not call the generation service")
	assert.Equal(t, 0, result.Generated)
	assert.Equal(t, 2, result.Skipped)
}

func TestRunOverwriteRegenerates(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	chapters := parseOutline(t, "# Chapter One\n")
	opts := Options{Title: "My Book", Language: "en"}

	_, err = New(store, &stubGen{}, testPolicy(), opts).Run(context.Background(), chapters)
	require.NoError(t, err)

	second := &stubGen{}
	opts.Overwrite = true
	result, err := New(store, second, testPolicy(), opts).Run(context.Background(), chapters)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, second.chapterCalls)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	attempts := 0
	gen := &stubGen{fail: func(prompt string, _ int) error {
		if strings.Contains(prompt, "Write the next part") {
			attempts++
			if attempts <= 2 {
				return &llm.GenerationError{Transient: true, Err: errors.New("overloaded")}
			}
		}
		return nil
	}}

	result, err := New(store, gen, testPolicy(), Options{Title: "B", Language: "en"}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, result.Generated)
}

func TestRunFailedUnitIsSkippedAndRecorded(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	gen := &stubGen{fail: func(prompt string, _ int) error {
		if strings.Contains(prompt, "Current item: Chapter One") {
			return &llm.GenerationError{Transient: true, Err: errors.New("overloaded")}
		}
		return nil
	}}

	result, err := New(store, gen, testPolicy(), Options{Title: "B", Language: "en"}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n# Chapter Two\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, result.Failed)
	assert.Equal(t, 1, result.Generated)

	exists, err := store.Exists(1)
	require.NoError(t, err)
	assert.False(t, exists, "failed unit must not produce a file")
	exists, err = store.Exists(2)
	require.NoError(t, err)
	assert.True(t, exists)

	progress, err := LoadProgress(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, progress.Failed)
}

func TestRunAbortOnFailureStopsTheRun(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	gen := &stubGen{fail: func(prompt string, _ int) error {
		if strings.Contains(prompt, "Current item: Chapter One") {
			return &llm.GenerationError{Transient: true, Err: errors.New("overloaded")}
		}
		return nil
	}}

	_, err = New(store, gen, testPolicy(), Options{Title: "B", Language: "en", AbortOnFailure: true}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n# Chapter Two\n"))
	require.Error(t, err)

	exists, err := store.Exists(2)
	require.NoError(t, err)
	assert.False(t, exists, "run must stop before later units")
}

func TestRunFatalErrorAbortsImmediately(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	gen := &stubGen{fail: func(string, int) error {
		return &llm.GenerationError{Err: errors.New("invalid api key")}
	}}

	// No AbortOnFailure: a fatal error must still stop the run after the
	// first chapter attempt instead of burning a doomed call per unit.
	_, err = New(store, gen, testPolicy(), Options{Title: "B", Language: "en"}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n# Chapter Two\n# Chapter Three\n"))
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls, "fatal errors must not be retried or carried to later units")

	progress, err := LoadProgress(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, progress.Failed)
	exists, err := store.Exists(2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunExtractsImplementationDetails(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	gen := &stubGen{chapter: "Prose before.\n\n## Implementation Details\n\nWire the gadget to the mainframe.\n\n## Aftermath\n\nProse after."}

	_, err = New(store, gen, testPolicy(), Options{Title: "B", Language: "en"}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n"))
	require.NoError(t, err)

	unit, err := store.Read(1)
	require.NoError(t, err)
	assert.NotContains(t, unit.Content, "Implementation Details")
	assert.Contains(t, unit.Content, "Prose before.")
	assert.Contains(t, unit.Content, "Prose after.")

	next, err := os.ReadFile(filepath.Join(dir, book.NextStepsFilename))
	require.NoError(t, err)
	assert.Contains(t, string(next), "Wire the gadget to the mainframe.")

	progress, err := LoadProgress(dir)
	require.NoError(t, err)
	require.Len(t, progress.NextSteps, 1)
}

func TestRunGeneratesBookTitleWhenUnset(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)

	result, err := New(store, &stubGen{}, testPolicy(), Options{Language: "en"}).
		Run(context.Background(), parseOutline(t, "# Chapter One\n"))
	require.NoError(t, err)
	assert.Equal(t, "The Generated Title", result.Meta.Title)
}

func TestOutlineChangeDiscardsCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store, err := book.NewFSStore(dir)
	require.NoError(t, err)
	opts := Options{Title: "B", Language: "en"}

	_, err = New(store, &stubGen{}, testPolicy(), opts).Run(context.Background(), parseOutline(t, "# Chapter One\n"))
	require.NoError(t, err)
	first, err := LoadProgress(dir)
	require.NoError(t, err)

	// A changed outline starts a fresh run identity; the existing unit
	// file still short-circuits regeneration of chapter one.
	gen := &stubGen{}
	_, err = New(store, gen, testPolicy(), opts).Run(context.Background(), parseOutline(t, "# Chapter One\n# Chapter Two\n"))
	require.NoError(t, err)
	second, err := LoadProgress(dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, gen.chapterCalls)
}

func TestEnsureHeading(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    string
	}{
		{"adds heading", "Chapter One", "Some prose.", "# Chapter One\n\nSome prose.\n"},
		{"dedupes identical heading", "Chapter One", "# Chapter One\n\nSome prose.", "# Chapter One\n\nSome prose.\n"},
		{"keeps different heading", "Chapter One", "## The Opening\n\nProse.", "# Chapter One\n\n## The Opening\n\nProse.\n"},
		{"empty content", "Chapter One", "", "# Chapter One\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ensureHeading(tt.title, tt.content))
		})
	}
}

func TestProgressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := &Progress{
		RunID:           "run-1",
		Status:          statusInProgress,
		OutlineHash:     OutlineHash("- Chapter One"),
		TotalSteps:      3,
		CompletedSteps:  1,
		PreviousChapter: &llm.ChapterContext{Title: "Chapter One", Content: "summary"},
		Failed:          []int{2},
	}
	require.NoError(t, SaveProgress(dir, p))

	got, err := LoadProgress(dir)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, ClearProgress(dir))
	got, err = LoadProgress(dir)
	require.NoError(t, err)
	assert.Nil(t, got)
	// Clearing twice is fine.
	require.NoError(t, ClearProgress(dir))
}
