// Package assets keeps every per-chapter artifact named after its unit's
// current title. The unit number is the stable join key: when a title is
// edited in meta.json, the synchronizer renames the unit file and every
// derived asset (narration, video, chapter cover, summary, image directory)
// to the new number-slug stem.
package assets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/metrics"
)

// Dirs names the asset class directories under a project root.
type Dirs struct {
	Audio       string
	Video       string
	Covers      string
	Summaries   string
	VideoImages string
}

// DefaultDirs returns the standard project layout.
func DefaultDirs() Dirs {
	return Dirs{
		Audio:       "audio",
		Video:       "video",
		Covers:      "chapter_covers",
		Summaries:   filepath.Join("summaries", "chapters"),
		VideoImages: "video_images",
	}
}

// Conflict reports a rename blocked by an existing file at the target name.
// The number's assets keep their old names; other numbers proceed.
type Conflict struct {
	Number int
	Target string
}

func (c Conflict) Error() string {
	return fmt.Sprintf("unit %d: rename target already exists: %s", c.Number, c.Target)
}

// Rename records one applied move.
type Rename struct {
	Number int
	From   string
	To     string
}

// Result summarizes a synchronization run.
type Result struct {
	Renamed   []Rename
	Conflicts []Conflict
}

// Synchronizer reconciles asset filenames with meta.json titles.
type Synchronizer struct {
	store book.Store
	dir   string
	dirs  Dirs
	log   *slog.Logger
}

// NewSynchronizer builds a synchronizer over a project store.
func NewSynchronizer(store book.Store, dirs Dirs) *Synchronizer {
	return &Synchronizer{
		store: store,
		dir:   store.Root(),
		dirs:  dirs,
		log:   slog.Default().With("component", "assets"),
	}
}

// Sync renames the unit file and all derived assets of every chapter whose
// recorded title no longer matches its filenames. Each number is handled
// independently and transactionally: its moves are probed first, applied,
// and rolled back together if one fails. The unit file moves through the
// store; asset files move directly.
func (s *Synchronizer) Sync() (*Result, error) {
	meta, err := book.EnsureChapters(s.dir, s.store)
	if err != nil {
		return nil, err
	}
	units, err := s.store.List()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	metaChanged := false
	for i, ch := range meta.Chapters {
		desired := book.Stem(ch.Number, ch.Title)
		moves, err := s.planMoves(units, ch.Number, desired)
		if err != nil {
			return result, err
		}
		if len(moves) == 0 {
			continue
		}
		if conflict := s.probe(moves); conflict != nil {
			c := Conflict{Number: ch.Number, Target: conflict.to}
			s.log.Warn("asset rename conflict, unit skipped", "number", ch.Number, "target", conflict.to)
			metrics.AssetRenames.WithLabelValues("conflict").Inc()
			result.Conflicts = append(result.Conflicts, c)
			continue
		}
		applied, err := s.apply(moves)
		if err != nil {
			s.rollback(applied)
			return result, fmt.Errorf("unit %d: %w", ch.Number, err)
		}
		for _, m := range applied {
			metrics.AssetRenames.WithLabelValues("renamed").Inc()
			result.Renamed = append(result.Renamed, Rename{Number: ch.Number, From: m.from, To: m.to})
			s.log.Info("asset renamed", "number", ch.Number, "from", filepath.Base(m.from), "to", filepath.Base(m.to))
		}
		if newName := desired + ".md"; meta.Chapters[i].Filename != newName {
			meta.Chapters[i].Filename = newName
			metaChanged = true
		}
	}
	if metaChanged {
		if err := book.SaveMeta(s.dir, meta); err != nil {
			return result, err
		}
	}
	return result, nil
}

// move is one planned rename. Unit moves carry store-relative filenames and
// go through the store; asset moves carry absolute paths.
type move struct {
	from string
	to   string
	unit bool
}

// planMoves finds every artifact of the unit whose stem differs from the
// desired one: the unit file itself plus one entry per asset class.
func (s *Synchronizer) planMoves(units []book.Unit, number int, desired string) ([]move, error) {
	var moves []move

	for _, u := range units {
		if u.Number != number {
			continue
		}
		if strings.TrimSuffix(u.Filename, ".md") != desired {
			moves = append(moves, move{from: u.Filename, to: desired + ".md", unit: true})
		}
	}

	classes := []string{s.dirs.Audio, s.dirs.Video, s.dirs.Covers, s.dirs.Summaries, s.dirs.VideoImages}
	for _, class := range classes {
		classMoves, err := s.scanClass(filepath.Join(s.dir, class), number, desired)
		if err != nil {
			return nil, err
		}
		moves = append(moves, classMoves...)
	}
	return moves, nil
}

// scanClass lists entries in an asset directory carrying the unit's number
// prefix and plans a move for each whose stem differs from desired.
func (s *Synchronizer) scanClass(dir string, number int, desired string) ([]move, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var moves []move
	for _, entry := range entries {
		name := entry.Name()
		n, ok := book.ParseFilename(name)
		if !ok || n != number {
			continue
		}
		ext := filepath.Ext(name)
		if entry.IsDir() {
			ext = ""
		}
		stem := strings.TrimSuffix(name, ext)
		if stem == desired {
			continue
		}
		moves = append(moves, move{
			from: filepath.Join(dir, name),
			to:   filepath.Join(dir, desired+ext),
		})
	}
	return moves, nil
}

// probe returns the first move whose target already exists.
func (s *Synchronizer) probe(moves []move) *move {
	for i := range moves {
		path := moves[i].to
		if moves[i].unit {
			path = filepath.Join(s.dir, path)
		}
		if _, err := os.Stat(path); err == nil {
			return &moves[i]
		}
	}
	return nil
}

// apply performs the moves in order, returning the ones that succeeded so
// a mid-sequence failure can be rolled back.
func (s *Synchronizer) apply(moves []move) ([]move, error) {
	var applied []move
	for _, m := range moves {
		if err := s.rename(m.from, m.to, m.unit); err != nil {
			return applied, fmt.Errorf("rename %s: %w", filepath.Base(m.from), err)
		}
		applied = append(applied, m)
	}
	return applied, nil
}

// rollback undoes applied moves in reverse order; failures are logged and
// skipped since the filesystem is already in a degraded state.
func (s *Synchronizer) rollback(applied []move) {
	for i := len(applied) - 1; i >= 0; i-- {
		if err := s.rename(applied[i].to, applied[i].from, applied[i].unit); err != nil {
			s.log.Error("rollback failed", "from", applied[i].to, "to", applied[i].from, "error", err)
		}
	}
}

func (s *Synchronizer) rename(from, to string, unit bool) error {
	if unit {
		return s.store.Rename(from, to)
	}
	return os.Rename(from, to)
}
