package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/bookforge/internal/assets"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/writer"
)

// WriteCmd implements the 'write' command: outline in, chapter units out.
type WriteCmd struct {
	Outline string `arg:"" help:"Outline file to generate from"`
	Dir     string `short:"d" help:"Project directory (default: output_dir/<outline name>)"`

	Title          string `help:"Book title (generated when empty)"`
	Author         string `help:"Byline (default: book.author from config)"`
	Persona        string `help:"Author persona from authors_dir"`
	Tone           string `help:"Tone preface from tones_dir"`
	Overwrite      bool   `help:"Regenerate chapters whose files already exist"`
	AbortOnFailure bool   `help:"Stop the run on the first failed chapter"`
}

func (w *WriteCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	chapters, err := LoadOutlineFile(w.Outline)
	if err != nil {
		return err
	}
	dir := w.Dir
	if dir == "" {
		dir = ProjectDirFor(cfg, w.Outline)
	}
	store, err := OpenStore(dir)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, w.Persona)
	if err != nil {
		return err
	}
	tone, err := llm.LoadTone(cfg.Generation, w.Tone)
	if err != nil {
		return err
	}
	author := w.Author
	if author == "" {
		author = cfg.Book.Author
	}

	ctx, cancel := SignalContext()
	defer cancel()

	run := writer.New(store, gen, Policy(cfg), writer.Options{
		Title:          w.Title,
		Author:         author,
		Language:       cfg.Book.Language,
		Tone:           tone,
		Overwrite:      w.Overwrite,
		AbortOnFailure: w.AbortOnFailure || cfg.Retry.AbortOnFailure,
	})
	result, err := run.Run(ctx, chapters)
	if err != nil {
		return err
	}

	// Titles recorded during the run may differ from the slugs units were
	// first written under.
	if _, err := assets.NewSynchronizer(store, assetDirs(cfg)).Sync(); err != nil {
		return err
	}

	slog.Info("generation complete",
		"dir", dir,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", len(result.Failed))
	fmt.Printf("Book written to %s (%d generated, %d skipped)\n", dir, result.Generated, result.Skipped)
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d chapter(s) failed: %v (rerun to retry them)", len(result.Failed), result.Failed)
	}
	return nil
}
