// Package commands defines the bookforge CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/bookforge/internal/assets"
	"git.home.luguber.info/inful/bookforge/internal/book"
	"git.home.luguber.info/inful/bookforge/internal/config"
	"git.home.luguber.info/inful/bookforge/internal/llm"
	"git.home.luguber.info/inful/bookforge/internal/outline"
	"git.home.luguber.info/inful/bookforge/internal/retry"
)

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition with global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"bookforge.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Outline OutlineCmd `cmd:"" help:"Draft or revise a book outline from a premise"`
	Write   WriteCmd   `cmd:"" help:"Generate book chapters from an outline"`
	Expand  ExpandCmd  `cmd:"" help:"Expand generated chapters into richer prose"`
	Compile CompileCmd `cmd:"" help:"Assemble chapters into a publishable document"`
	Audio   AudioCmd   `cmd:"" help:"Render narration audio for each chapter"`
	Images  ImagesCmd  `cmd:"" help:"Render slideshow images for chapter videos"`
	Video   VideoCmd   `cmd:"" help:"Render a video for each chapter"`
	Cover   CoverCmd   `cmd:"" help:"Render the book cover image"`
	Retitle RetitleCmd `cmd:"" help:"Rename a chapter and synchronize its assets"`
	Sync    SyncCmd    `cmd:"" help:"Synchronize asset filenames with chapter titles"`
	Batch   BatchCmd   `cmd:"" help:"Generate several books from a directory of outlines"`
	Watch   WatchCmd   `cmd:"" help:"Watch a project and keep assets and the compiled book current"`
	Serve   ServeCmd   `cmd:"" help:"Serve project status and metrics over HTTP"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadAppConfig loads the configuration named by the root --config flag.
func LoadAppConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// OpenStore opens the unit store for a project directory.
func OpenStore(dir string) (book.Store, error) {
	store, err := book.NewFSStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", dir, err)
	}
	return store, nil
}

// NewGenerator builds the generation client with the resolved base prompt.
// persona selects an author voice from authors_dir; empty falls back to the
// configured prompt file.
func NewGenerator(cfg *config.Config, persona string) (*llm.Client, error) {
	basePrompt, err := llm.LoadBasePrompt(cfg.Generation, persona)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(cfg.Generation, basePrompt), nil
}

// Policy builds the retry policy from config.
func Policy(cfg *config.Config) retry.Policy {
	return retry.FromConfig(cfg.Retry)
}

// LoadOutlineFile reads and parses an outline file.
func LoadOutlineFile(path string) ([]*outline.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read outline: %w", err)
	}
	chapters, err := outline.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse outline %s: %w", path, err)
	}
	return chapters, nil
}

// ProjectDirFor derives the default project directory for an outline file.
func ProjectDirFor(cfg *config.Config, outlinePath string) string {
	base := strings.TrimSuffix(filepath.Base(outlinePath), filepath.Ext(outlinePath))
	return filepath.Join(cfg.Book.OutputDir, base)
}

// ChaptersFromMeta reconstructs outline nodes from recorded chapter titles,
// for commands that need outline context after the outline file is gone.
func ChaptersFromMeta(meta *book.MetaRecord) []*outline.Node {
	chapters := make([]*outline.Node, 0, len(meta.Chapters))
	for _, ch := range meta.Chapters {
		chapters = append(chapters, &outline.Node{
			Kind:   outline.KindChapter,
			Title:  ch.Title,
			Number: ch.Number,
		})
	}
	return chapters
}

// assetDirs maps configured directory names onto the synchronizer's layout.
func assetDirs(cfg *config.Config) assets.Dirs {
	dirs := assets.DefaultDirs()
	if cfg.Audio.Dirname != "" {
		dirs.Audio = cfg.Audio.Dirname
	}
	if cfg.Video.Dirname != "" {
		dirs.Video = cfg.Video.Dirname
	}
	if cfg.Video.ParagraphImages.Dirname != "" {
		dirs.VideoImages = cfg.Video.ParagraphImages.Dirname
	}
	return dirs
}

// SignalContext returns a context canceled on SIGINT/SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
