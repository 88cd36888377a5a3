package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
)

// defaultTTSCommand drives edge-tts; {voice}, {input}, and {output} are
// substituted per unit.
var defaultTTSCommand = []string{
	"edge-tts", "--voice", "{voice}", "--file", "{input}", "--write-media", "{output}",
}

// AudiobookFilename is the whole-book narration written next to the per-unit
// audio files.
const AudiobookFilename = "book.mp3"

// Narrator renders one narration audio file per unit.
type Narrator struct {
	store book.Store
	dir   string
	cfg   config.AudioConfig
	run   runner
	log   *slog.Logger
}

// NewNarrator builds a narrator over a project store.
func NewNarrator(store book.Store, cfg config.AudioConfig) *Narrator {
	return &Narrator{
		store: store,
		dir:   store.Root(),
		cfg:   cfg,
		run:   execRunner,
		log:   slog.Default().With("component", "audio"),
	}
}

// Render produces audio for every unit that doesn't have one yet, then the
// full audiobook (book.mp3) covering all units. Existing files are skipped
// unless overwrite is configured; the per-unit output name follows the
// unit's current stem so renames stay in sync.
func (n *Narrator) Render(ctx context.Context) error {
	units, err := n.store.List()
	if err != nil {
		return err
	}
	audioDir := filepath.Join(n.dir, n.cfg.Dirname)
	if err := os.MkdirAll(audioDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", n.cfg.Dirname, err)
	}

	for _, u := range units {
		stem := strings.TrimSuffix(u.Filename, ".md")
		out := filepath.Join(audioDir, stem+".mp3")
		if _, err := os.Stat(out); err == nil && !n.cfg.Overwrite {
			n.log.Debug("audio exists, skipping", "number", u.Number)
			continue
		}
		read, err := n.store.Read(u.Number)
		if err != nil {
			return err
		}
		if err := n.renderUnit(ctx, read, out); err != nil {
			if errors.Is(err, ErrToolMissing) {
				n.log.Warn("narration tool missing, skipping audio", "error", err)
				return nil
			}
			return fmt.Errorf("narrate unit %d: %w", u.Number, err)
		}
		n.log.Info("audio rendered", "number", u.Number, "file", filepath.Base(out))
	}

	if len(units) == 0 {
		return nil
	}
	if err := n.renderBook(ctx, units, audioDir); err != nil {
		if errors.Is(err, ErrToolMissing) {
			n.log.Warn("narration tool missing, skipping audiobook", "error", err)
			return nil
		}
		return fmt.Errorf("narrate audiobook: %w", err)
	}
	return nil
}

// renderBook narrates the whole book into a single file: title, byline, then
// every unit in order.
func (n *Narrator) renderBook(ctx context.Context, units []book.Unit, audioDir string) error {
	out := filepath.Join(audioDir, AudiobookFilename)
	if _, err := os.Stat(out); err == nil && !n.cfg.Overwrite {
		n.log.Debug("audiobook exists, skipping")
		return nil
	}
	meta, err := book.LoadMeta(n.dir)
	if err != nil {
		return err
	}
	byline := ""
	if meta.Author != "" {
		byline = "By " + meta.Author
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		read, err := n.store.Read(u.Number)
		if err != nil {
			return err
		}
		parts = append(parts, NarrationText(read.Content))
	}
	text := AudiobookText(meta.Title, byline, parts)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := n.synthesize(ctx, text, out); err != nil {
		return err
	}
	n.log.Info("audiobook rendered", "file", AudiobookFilename)
	return nil
}

// AudiobookText joins the title, byline, and chapter narrations into the
// single text the speech engine reads for book.mp3.
func AudiobookText(title, byline string, parts []string) string {
	var sections []string
	if header := strings.TrimSpace(strings.TrimSpace(title) + "\n" + strings.TrimSpace(byline)); header != "" {
		sections = append(sections, header)
	}
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			sections = append(sections, t)
		}
	}
	return strings.Join(sections, "\n\n")
}

func (n *Narrator) renderUnit(ctx context.Context, u book.Unit, out string) error {
	text := NarrationText(u.Content)
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("unit has no narratable text")
	}
	return n.synthesize(ctx, text, out)
}

func (n *Narrator) synthesize(ctx context.Context, text, out string) error {
	input, err := os.CreateTemp("", "bookforge-tts-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(text); err != nil {
		input.Close()
		return err
	}
	if err := input.Close(); err != nil {
		return err
	}

	template := n.cfg.Command
	if len(template) == 0 {
		template = defaultTTSCommand
	}
	argv := expandCommand(template, map[string]string{
		"voice":  n.cfg.Voice,
		"input":  input.Name(),
		"output": out,
	})
	return n.run(ctx, n.dir, argv)
}

var (
	mdLinkRe     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasisRe = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdInlineRe   = regexp.MustCompile("`([^`]*)`")
)

// NarrationText converts unit markdown into plain prose for the speech
// engine: headings become standalone lines, formatting markers are removed,
// and non-prose blocks (fences, breaks, images) are dropped.
func NarrationText(markdown string) string {
	var out []string
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence || trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "#"):
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			if title != "" {
				out = append(out, title+".")
			}
			continue
		case strings.HasPrefix(trimmed, "!["):
			continue
		case trimmed == "---" || trimmed == "***" || trimmed == "___" || trimmed == "* * *":
			continue
		}
		text := mdLinkRe.ReplaceAllString(trimmed, "$1")
		text = mdInlineRe.ReplaceAllString(text, "$1")
		text = mdEmphasisRe.ReplaceAllString(text, "$1")
		text = strings.TrimPrefix(text, "> ")
		text = strings.TrimPrefix(text, "- ")
		out = append(out, text)
	}
	return strings.Join(out, "\n\n")
}
