package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/assets"
	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/compile"
)

// CompileCmd implements the 'compile' command.
type CompileCmd struct {
	Dir         string `arg:"" help:"Project directory"`
	SkipTypeset bool   `name:"skip-typeset" help:"Assemble book.md without producing PDF/EPUB"`
}

func (c *CompileCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(c.Dir)
	if err != nil {
		return err
	}

	// Make sure filenames reflect current titles before assembly.
	if _, err := assets.NewSynchronizer(store, assetDirs(cfg)).Sync(); err != nil {
		return err
	}

	compiler := compile.New(store)
	path, err := compiler.Write()
	if err != nil {
		return err
	}
	fmt.Printf("Compiled %s\n", path)

	if c.SkipTypeset {
		return nil
	}
	meta, err := book.LoadMeta(c.Dir)
	if err != nil {
		return err
	}
	ctx, cancel := SignalContext()
	defer cancel()
	return compiler.Typeset(ctx, path, meta.Title)
}
