package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/media"
)

// AudioCmd renders narration audio for every chapter.
type AudioCmd struct {
	Dir       string `arg:"" help:"Project directory"`
	Voice     string `help:"Narration voice (default from config)"`
	Overwrite bool   `help:"Re-render existing audio files"`
}

func (a *AudioCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(a.Dir)
	if err != nil {
		return err
	}
	ac := cfg.Audio
	if a.Voice != "" {
		ac.Voice = a.Voice
	}
	if a.Overwrite {
		ac.Overwrite = true
	}

	ctx, cancel := SignalContext()
	defer cancel()
	if err := media.NewNarrator(store, ac).Render(ctx); err != nil {
		return err
	}
	fmt.Println("Narration audio rendered")
	return nil
}

// ImagesCmd renders slideshow images for chapter videos.
type ImagesCmd struct {
	Dir     string `arg:"" help:"Project directory"`
	Persona string `help:"Author persona from authors_dir"`
}

func (i *ImagesCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(i.Dir)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, i.Persona)
	if err != nil {
		return err
	}
	meta, err := book.LoadMeta(i.Dir)
	if err != nil {
		return err
	}

	ctx, cancel := SignalContext()
	defer cancel()
	pipeline := media.NewImagePipeline(store, cfg.Video.ParagraphImages, gen, Policy(cfg))
	if err := pipeline.Render(ctx, ChaptersFromMeta(meta)); err != nil {
		return err
	}
	fmt.Println("Chapter images rendered")
	return nil
}

// VideoCmd renders chapter videos from narration audio.
type VideoCmd struct {
	Dir       string `arg:"" help:"Project directory"`
	Overwrite bool   `help:"Re-render existing videos"`
}

func (v *VideoCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(v.Dir)
	if err != nil {
		return err
	}
	vc := cfg.Video
	if v.Overwrite {
		vc.Overwrite = true
	}

	ctx, cancel := SignalContext()
	defer cancel()
	if err := media.NewVideoMaker(store, vc, cfg.Audio).Render(ctx); err != nil {
		return err
	}
	fmt.Println("Chapter videos rendered")
	return nil
}

// CoverCmd renders the book cover.
type CoverCmd struct {
	Dir       string `arg:"" help:"Project directory"`
	Persona   string `help:"Author persona from authors_dir"`
	Overwrite bool   `help:"Re-render an existing cover"`
}

func (c *CoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(c.Dir)
	if err != nil {
		return err
	}
	gen, err := NewGenerator(cfg, c.Persona)
	if err != nil {
		return err
	}
	cc := cfg.Cover
	if c.Overwrite {
		cc.Overwrite = true
	}

	ctx, cancel := SignalContext()
	defer cancel()
	if err := media.NewCoverMaker(store, cc, gen, Policy(cfg)).Render(ctx); err != nil {
		return err
	}
	fmt.Println("Cover rendered")
	return nil
}
