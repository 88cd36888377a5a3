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
	"git.home.luguber.info/inful/bookforge/internal/outline"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// ImagePipeline renders one slideshow image per paragraph of each unit,
// under video_images/<unit-stem>/. A single visual theme is derived once per
// book and every image description chains from the previous one so the
// slideshow reads as a continuous sequence.
type ImagePipeline struct {
	store  book.Store
	dir    string
	cfg    config.ParagraphImageConfig
	gen    llm.Generator
	policy retry.Policy
	run    runner
	log    *slog.Logger
}

// NewImagePipeline builds a paragraph image renderer over a project store.
func NewImagePipeline(store book.Store, cfg config.ParagraphImageConfig, gen llm.Generator, policy retry.Policy) *ImagePipeline {
	return &ImagePipeline{
		store:  store,
		dir:    store.Root(),
		cfg:    cfg,
		gen:    gen,
		policy: policy,
		run:    execRunner,
		log:    slog.Default().With("component", "images"),
	}
}

// Render produces images for every unit. Images that already exist are
// skipped, so an interrupted run resumes where it stopped.
func (p *ImagePipeline) Render(ctx context.Context, chapters []*outline.Node) error {
	if len(p.cfg.Command) == 0 {
		return fmt.Errorf("video.paragraph_images.command is not configured")
	}
	units, err := p.store.List()
	if err != nil {
		return err
	}
	meta, err := book.LoadMeta(p.dir)
	if err != nil {
		return err
	}
	theme, err := p.generate(ctx, llm.BuildImageThemePrompt(meta.Title, outline.Text(chapters)))
	if err != nil {
		return fmt.Errorf("image theme: %w", err)
	}

	lastImage := ""
	for _, u := range units {
		read, err := p.store.Read(u.Number)
		if err != nil {
			return err
		}
		stem := strings.TrimSuffix(u.Filename, ".md")
		unitDir := filepath.Join(p.dir, p.cfg.Dirname, stem)
		if err := os.MkdirAll(unitDir, 0o750); err != nil {
			return err
		}
		for i, para := range Paragraphs(read.Content) {
			out := filepath.Join(unitDir, fmt.Sprintf("%03d.png", i+1))
			if _, err := os.Stat(out); err == nil {
				continue
			}
			description, err := p.generate(ctx, llm.BuildParagraphImagePrompt(theme, para, lastImage))
			if err != nil {
				return fmt.Errorf("unit %d paragraph %d: %w", u.Number, i+1, err)
			}
			lastImage = description
			argv := expandCommand(p.cfg.Command, map[string]string{
				"prompt": description,
				"output": out,
				"width":  strconv.Itoa(p.cfg.Width),
				"height": strconv.Itoa(p.cfg.Height),
			})
			if err := p.run(ctx, p.dir, argv); err != nil {
				if errors.Is(err, ErrToolMissing) {
					p.log.Warn("image tool missing, skipping images", "error", err)
					return nil
				}
				return err
			}
		}
		p.log.Info("unit images rendered", "number", u.Number)
	}
	return nil
}

func (p *ImagePipeline) generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.Do(ctx, p.policy, llm.IsTransient, func() error {
		var genErr error
		text, genErr = p.gen.Generate(ctx, prompt)
		return genErr
	})
	return text, err
}

// Paragraphs extracts the prose paragraphs of unit markdown, skipping
// headings, breaks, and fenced blocks.
func Paragraphs(markdown string) []string {
	var paragraphs []string
	var current []string
	inFence := false
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			flush()
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") || trimmed == "---" || trimmed == "***" || trimmed == "* * *" {
			flush()
			continue
		}
		current = append(current, trimmed)
	}
	flush()
	return paragraphs
}
