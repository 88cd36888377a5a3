package commands

import (
	"context"

	"git.home.luguber.info/inful/bookforge/internal/assets"
	"git.home.luguber.info/inful/bookforge/internal/compile"
	"git.home.luguber.info/inful/bookforge/internal/watch"
)

// WatchCmd keeps a project's asset names and compiled book current while
// meta.json or unit files are edited.
type WatchCmd struct {
	Dir     string `arg:"" help:"Project directory"`
	Compile bool   `default:"true" negatable:"" help:"Recompile book.md after changes"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(w.Dir)
	if err != nil {
		return err
	}
	sync := assets.NewSynchronizer(store, assetDirs(cfg))

	action := func(context.Context) error {
		if _, err := sync.Sync(); err != nil {
			return err
		}
		if !w.Compile {
			return nil
		}
		_, err := compile.New(store).Write()
		return err
	}

	watcher, err := watch.New(w.Dir, action)
	if err != nil {
		return err
	}
	ctx, cancel := SignalContext()
	defer cancel()
	return watcher.Run(ctx)
}
