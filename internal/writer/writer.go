// Package writer orchestrates book generation: it folds over the outline in
// strict order, produces one unit file per chapter, and checkpoints after
// every step so interrupted runs resume without regenerating finished work.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
	"git.home.luguber.info/inful/bookforge/internal/outline"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// SynopsisFilename is the back cover synopsis written after generation.
const SynopsisFilename = "back-cover-synopsis.md"

// contextFallbackLimit bounds the raw-content fallback used when a context
// summary cannot be generated.
const contextFallbackLimit = 2000

// Options controls a generation run.
type Options struct {
	Title          string // explicit book title; generated when empty and unset in meta
	Author         string
	Language       string
	Tone           string // tone preface text, already resolved
	Overwrite      bool   // regenerate units whose files already exist
	AbortOnFailure bool   // stop the run on the first failed unit
}

// Result summarizes a completed run.
type Result struct {
	Generated int
	Skipped   int
	Failed    []int
	Meta      *book.MetaRecord
}

// Writer generates a book project into a unit store.
type Writer struct {
	store  book.Store
	dir    string
	gen    llm.Generator
	policy retry.Policy
	opts   Options
	log    *slog.Logger
}

// New builds a writer over a store. Metadata, the checkpoint, and the
// synopsis live next to the unit files under the store's root directory.
func New(store book.Store, gen llm.Generator, policy retry.Policy, opts Options) *Writer {
	return &Writer{
		store:  store,
		dir:    store.Root(),
		gen:    gen,
		policy: policy,
		opts:   opts,
		log:    slog.Default().With("component", "writer"),
	}
}

// Run generates every chapter in outline order. Units whose files already
// exist are skipped without any generation call unless Overwrite is set, so
// rerunning a finished project is free. Each completed step updates the
// checkpoint; a unit that fails transiently past the retry budget is
// recorded and skipped (or aborts the run when AbortOnFailure is set) and
// never clobbers existing content. A fatal generation error aborts the run
// immediately: it would fail every remaining unit the same way.
func (w *Writer) Run(ctx context.Context, chapters []*outline.Node) (*Result, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("outline has no chapters")
	}
	outlineText := outline.Text(chapters)
	progress, err := w.openProgress(outlineText, len(chapters))
	if err != nil {
		return nil, err
	}

	result := &Result{}
	prev := progress.PreviousChapter
	for _, ch := range chapters {
		exists, err := w.store.Exists(ch.Number)
		if err != nil {
			return result, err
		}
		if exists && !w.opts.Overwrite {
			w.log.Debug("unit exists, skipping", "number", ch.Number, "title", ch.Title)
			result.Skipped++
			continue
		}

		content, err := w.generate(ctx, llm.BuildChapterPrompt(chapters, ch, prev, w.opts.Tone))
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			w.log.Error("unit generation failed", "number", ch.Number, "title", ch.Title, "error", err)
			progress.Failed = appendUnique(progress.Failed, ch.Number)
			result.Failed = append(result.Failed, ch.Number)
			if saveErr := SaveProgress(w.dir, progress); saveErr != nil {
				return result, saveErr
			}
			if !llm.IsTransient(err) || w.opts.AbortOnFailure {
				return result, fmt.Errorf("chapter %d %q: %w", ch.Number, ch.Title, err)
			}
			continue
		}

		content, sections := book.ExtractImplementationSections(content)
		if len(sections) > 0 {
			progress.NextSteps = append(progress.NextSteps, sections...)
			w.log.Debug("captured implementation details", "number", ch.Number, "sections", len(sections))
		}
		unit, err := w.store.Write(ch.Number, ch.Title, ensureHeading(ch.Title, content))
		if err != nil {
			return result, err
		}
		metrics.UnitsGenerated.Inc()
		result.Generated++
		w.log.Info("unit written", "number", unit.Number, "file", unit.Filename)

		prev = w.summarize(ctx, ch.Title, content)
		progress.PreviousChapter = prev
		progress.CompletedSteps++
		if err := SaveProgress(w.dir, progress); err != nil {
			return result, err
		}
	}

	if err := book.WriteNextSteps(w.dir, progress.NextSteps); err != nil {
		return result, err
	}

	meta, err := w.finalize(ctx, chapters, outlineText)
	if err != nil {
		return result, err
	}
	result.Meta = meta

	progress.Status = statusCompleted
	progress.BookTitle = meta.Title
	progress.Byline = meta.Author
	if err := SaveProgress(w.dir, progress); err != nil {
		return result, err
	}
	return result, nil
}

// openProgress loads an existing checkpoint when it still matches the
// outline; anything else starts fresh. Overwrite always starts fresh.
func (w *Writer) openProgress(outlineText string, total int) (*Progress, error) {
	hash := OutlineHash(outlineText)
	if !w.opts.Overwrite {
		existing, err := LoadProgress(w.dir)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.OutlineHash == hash {
				existing.Status = statusInProgress
				existing.TotalSteps = total
				return existing, nil
			}
			w.log.Warn("outline changed since last run, discarding checkpoint")
		}
	}
	return &Progress{
		RunID:       uuid.NewString(),
		Status:      statusInProgress,
		OutlineHash: hash,
		TotalSteps:  total,
	}, nil
}

func (w *Writer) generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.Do(ctx, w.policy, llm.IsTransient, func() error {
		var genErr error
		text, genErr = w.gen.Generate(ctx, prompt)
		return genErr
	})
	return text, err
}

// summarize produces the rolling context for the next chapter. Summary
// failures degrade to a truncated slice of the raw chapter rather than
// stalling the run.
func (w *Writer) summarize(ctx context.Context, title, content string) *llm.ChapterContext {
	summary, err := w.generate(ctx, llm.BuildContextSummaryPrompt(title, content, w.opts.Tone))
	if err != nil {
		w.log.Warn("context summary failed, using raw content", "title", title, "error", err)
		summary = truncate(content, contextFallbackLimit)
	}
	return &llm.ChapterContext{Title: title, Content: summary}
}

// finalize reconciles metadata and produces the run's derived texts: the
// book title (when none is set), the back cover synopsis, and genre tags.
// Each is guarded by its own existence check so reruns stay free.
func (w *Writer) finalize(ctx context.Context, chapters []*outline.Node, outlineText string) (*book.MetaRecord, error) {
	meta, err := book.LoadMeta(w.dir)
	if err != nil {
		return nil, err
	}

	title := w.opts.Title
	if title == "" && meta.Title == "" {
		title, err = w.generate(ctx, llm.BuildBookTitlePrompt(outlineText, chapters[0].Title))
		if err != nil {
			w.log.Warn("book title generation failed, falling back to first chapter", "error", err)
			title = chapters[0].Title
		}
		title = strings.Trim(strings.TrimSpace(title), `"`)
	}
	if _, err := book.EnsureIdentity(w.dir, title, w.opts.Author, w.opts.Language); err != nil {
		return nil, err
	}
	meta, err = book.EnsureChapters(w.dir, w.store)
	if err != nil {
		return nil, err
	}

	synopsis, err := w.ensureSynopsis(ctx, meta.Title, outlineText)
	if err != nil {
		w.log.Warn("synopsis generation failed", "error", err)
		return meta, nil
	}
	if len(meta.Genres) == 0 && synopsis != "" {
		raw, err := w.generate(ctx, llm.BuildGenrePrompt(synopsis))
		if err != nil {
			w.log.Warn("genre tagging failed", "error", err)
			return meta, nil
		}
		if genres := book.ParseGenres(raw); len(genres) > 0 {
			meta.SetGenres(genres)
			if err := book.SaveMeta(w.dir, meta); err != nil {
				return nil, err
			}
		}
	}
	return meta, nil
}

// ensureSynopsis returns the back cover synopsis, generating and persisting
// it only when the file is absent (or Overwrite is set).
func (w *Writer) ensureSynopsis(ctx context.Context, title, outlineText string) (string, error) {
	path := filepath.Join(w.dir, SynopsisFilename)
	if !w.opts.Overwrite {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data)), nil
		}
	}

	units, err := w.store.List()
	if err != nil {
		return "", err
	}
	var body strings.Builder
	for _, u := range units {
		read, err := w.store.Read(u.Number)
		if err != nil {
			return "", err
		}
		body.WriteString(read.Content)
		body.WriteString("\n\n")
	}
	synopsis, err := w.generate(ctx, llm.BuildSynopsisPrompt(title, outlineText, truncate(body.String(), 20000)))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(synopsis+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write synopsis: %w", err)
	}
	return synopsis, nil
}

// ensureHeading prefixes the unit with its title heading, dropping a
// model-emitted duplicate of the same title.
func ensureHeading(title, content string) string {
	content = strings.TrimSpace(content)
	lines := strings.SplitN(content, "\n", 2)
	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "#") {
		existing := strings.TrimSpace(strings.TrimLeft(first, "# "))
		if strings.EqualFold(existing, strings.TrimSpace(title)) {
			if len(lines) == 2 {
				content = strings.TrimSpace(lines[1])
			} else {
				content = ""
			}
		}
	}
	return strings.TrimSpace("# "+strings.TrimSpace(title)+"\n\n"+content) + "\n"
}

func appendUnique(list []int, n int) []int {
	for _, v := range list {
		if v == n {
			return list
		}
	}
	return append(list, n)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
