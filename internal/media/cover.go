package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// CoverMaker renders the book cover through an external image tool fed by a
// generated visual description.
type CoverMaker struct {
	store  book.Store
	dir    string
	cfg    config.CoverConfig
	gen    llm.Generator
	policy retry.Policy
	run    runner
	log    *slog.Logger
}

// NewCoverMaker builds a cover renderer over a project store.
func NewCoverMaker(store book.Store, cfg config.CoverConfig, gen llm.Generator, policy retry.Policy) *CoverMaker {
	return &CoverMaker{
		store:  store,
		dir:    store.Root(),
		cfg:    cfg,
		gen:    gen,
		policy: policy,
		run:    execRunner,
		log:    slog.Default().With("component", "cover"),
	}
}

// Render produces cover.png in the project root. An existing cover is kept
// unless overwrite is configured. The visual description is derived from
// the back cover synopsis when present, otherwise from the opening unit.
func (c *CoverMaker) Render(ctx context.Context) error {
	out := filepath.Join(c.dir, "cover.png")
	if _, err := os.Stat(out); err == nil && !c.cfg.Overwrite {
		c.log.Debug("cover exists, skipping")
		return nil
	}
	if len(c.cfg.Command) == 0 {
		return fmt.Errorf("cover.command is not configured")
	}

	source, label, err := c.coverSource()
	if err != nil {
		return err
	}
	var description string
	err = retry.Do(ctx, c.policy, llm.IsTransient, func() error {
		var genErr error
		description, genErr = c.gen.Generate(ctx, llm.BuildCoverSummaryPrompt(source, label))
		return genErr
	})
	if err != nil {
		return fmt.Errorf("cover description: %w", err)
	}

	meta, err := book.LoadMeta(c.dir)
	if err != nil {
		return err
	}
	prompt := BuildCoverPrompt(meta.Title, meta.PrimaryGenre, description)
	argv := expandCommand(c.cfg.Command, map[string]string{
		"prompt": prompt,
		"output": out,
		"width":  strconv.Itoa(c.cfg.Width),
		"height": strconv.Itoa(c.cfg.Height),
	})
	if err := c.run(ctx, c.dir, argv); err != nil {
		if errors.Is(err, ErrToolMissing) {
			c.log.Warn("cover tool missing, skipping cover", "error", err)
			return nil
		}
		return err
	}
	c.log.Info("cover rendered", "file", filepath.Base(out))
	return nil
}

func (c *CoverMaker) coverSource() (text, label string, err error) {
	data, err := os.ReadFile(filepath.Join(c.dir, "back-cover-synopsis.md"))
	if err == nil && strings.TrimSpace(string(data)) != "" {
		return string(data), "book synopsis", nil
	}
	units, err := c.store.List()
	if err != nil {
		return "", "", err
	}
	if len(units) == 0 {
		return "", "", fmt.Errorf("no content to derive a cover from")
	}
	first, err := c.store.Read(units[0].Number)
	if err != nil {
		return "", "", err
	}
	return first.Content, "opening chapter", nil
}

// BuildCoverPrompt assembles the image tool prompt from book identity and
// the generated visual description.
func BuildCoverPrompt(title, genre, description string) string {
	var parts []string
	parts = append(parts, "Book cover art")
	if genre != "" {
		parts = append(parts, genre+" genre")
	}
	if title != "" {
		parts = append(parts, "for \""+title+"\"")
	}
	parts = append(parts, strings.TrimSpace(description))
	parts = append(parts, "No text, no lettering, no typography.")
	return strings.Join(parts, ". ")
}
