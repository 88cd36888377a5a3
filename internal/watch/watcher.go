// Package watch monitors a book project directory and re-runs asset
// synchronization and compilation when metadata or unit files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/bookforge/internal/book"
)

// Action is invoked (debounced) after relevant project changes.
type Action func(ctx context.Context) error

// Watcher monitors one project directory.
type Watcher struct {
	dir          string
	action       Action
	watcher      *fsnotify.Watcher
	triggerChan  chan struct{}
	debounceTime time.Duration
	log          *slog.Logger
}

// New creates a project watcher. The action runs once per debounced burst
// of changes to meta.json or unit files.
func New(dir string, action Action) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	return &Watcher{
		dir:          absDir,
		action:       action,
		watcher:      fsw,
		triggerChan:  make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
		log:          slog.Default().With("component", "watch"),
	}, nil
}

// SetDebounce overrides the debounce window (used by tests).
func (w *Watcher) SetDebounce(d time.Duration) { w.debounceTime = d }

// Run watches until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	defer w.watcher.Close()
	w.log.Info("watching project", "dir", w.dir)

	go w.actionLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug("project change detected", "file", filepath.Base(event.Name), "op", event.Op.String())
			w.trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

// relevant filters events down to metadata edits and unit file changes;
// compiled artifacts and checkpoints would otherwise retrigger forever.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if name == book.MetaFilename {
		return true
	}
	if !strings.HasSuffix(name, ".md") {
		return false
	}
	if name == "book.md" || name == "back-cover-synopsis.md" {
		return false
	}
	_, ok := book.ParseFilename(name)
	return ok
}

func (w *Watcher) trigger() {
	select {
	case w.triggerChan <- struct{}{}:
	default:
		// A run is already pending.
	}
}

func (w *Watcher) actionLoop(ctx context.Context) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.triggerChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounceTime, func() {
				if err := w.action(ctx); err != nil {
					w.log.Error("project update failed", "error", err)
				}
			})
		}
	}
}
