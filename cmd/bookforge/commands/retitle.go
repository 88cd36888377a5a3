package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/assets"
	"git.home.luguber.info/inful/bookforge/internal/book"
)

// RetitleCmd records a new chapter title and renames the unit file and all
// derived assets to match. The chapter number never changes.
type RetitleCmd struct {
	Dir    string `arg:"" help:"Project directory"`
	Number int    `arg:"" help:"Chapter number"`
	Title  string `arg:"" help:"New chapter title"`
}

func (r *RetitleCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(r.Dir)
	if err != nil {
		return err
	}
	// Populate the chapter list first so retitling works on projects whose
	// meta.json was never written or was deleted.
	if _, err := book.EnsureChapters(r.Dir, store); err != nil {
		return err
	}
	if _, err := book.SetChapterTitle(r.Dir, r.Number, r.Title); err != nil {
		return err
	}

	result, err := assets.NewSynchronizer(store, assetDirs(cfg)).Sync()
	if err != nil {
		return err
	}
	fmt.Printf("Chapter %d retitled to %q (%d file(s) renamed)\n", r.Number, r.Title, len(result.Renamed))
	return conflictError(result)
}

// SyncCmd reconciles asset filenames with the titles recorded in meta.json,
// for projects edited by hand.
type SyncCmd struct {
	Dir string `arg:"" help:"Project directory"`
}

func (s *SyncCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadAppConfig(root)
	if err != nil {
		return err
	}
	store, err := OpenStore(s.Dir)
	if err != nil {
		return err
	}
	result, err := assets.NewSynchronizer(store, assetDirs(cfg)).Sync()
	if err != nil {
		return err
	}
	fmt.Printf("%d file(s) renamed\n", len(result.Renamed))
	return conflictError(result)
}

func conflictError(result *assets.Result) error {
	if len(result.Conflicts) == 0 {
		return nil
	}
	return fmt.Errorf("%d chapter(s) kept their old filenames due to conflicts: %v",
		len(result.Conflicts), result.Conflicts)
}
