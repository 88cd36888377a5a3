package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/batch"
	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/compile"
	"git.home.luguber.info/inful/bookforge/internal/writer"
)

// BatchCmd generates one book per outline file in a directory, a bounded
// number at a time.
type BatchCmd struct {
	OutlinesDir string `arg:"" help:"Directory of outline markdown files"`
	Persona     string `help:"Author persona from authors_dir"`
	Compile     bool   `default:"true" negatable:"" help:"Compile each finished book"`
}

func (b *BatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	outlines, err := batch.DiscoverOutlines(b.OutlinesDir)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, b.Persona)
	if err != nil {
		return err
	}

	build := func(ctx context.Context, job batch.Job) error {
		chapters, err := LoadOutlineFile(job.Outline)
		if err != nil {
			return err
		}
		store, err := book.NewFSStore(job.ProjectDir)
		if err != nil {
			return err
		}
		run := writer.New(store, gen, Policy(cfg), writer.Options{
			Author:   cfg.Book.Author,
			Language: cfg.Book.Language,
		})
		result, err := run.Run(ctx, chapters)
		if err != nil {
			return err
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d chapter(s) failed: %v", len(result.Failed), result.Failed)
		}
		if !b.Compile {
			return nil
		}
		path, err := compile.New(store).Write()
		if err != nil {
			return err
		}
		meta, err := book.LoadMeta(job.ProjectDir)
		if err != nil {
			return err
		}
		return compile.New(store).Typeset(ctx, path, meta.Title)
	}

	ctx, cancel := SignalContext()
	defer cancel()

	runner := batch.NewRunner(cfg.Batch, build)
	outcomes, err := runner.Run(ctx, batch.Jobs(outlines, cfg.Book.OutputDir))
	succeeded := 0
	for _, o := range outcomes {
		if o.Err == nil {
			succeeded++
		}
	}
	fmt.Printf("Batch finished: %d/%d book(s) built\n", succeeded, len(outcomes))
	return err
}
