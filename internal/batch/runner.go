// Package batch runs the generation pipeline over many outline files with
// bounded concurrency. Each outline becomes its own project directory; one
// book's failure never stops the others.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

// Job is one book to produce: an outline file and the project directory its
// artifacts go to.
type Job struct {
	ID         string
	Outline    string
	ProjectDir string
}

// BookFunc produces one book from a job. Implementations wire the writer,
// compiler, and media renderers; the batch runner only schedules them.
type BookFunc func(ctx context.Context, job Job) error

// Outcome records one finished job.
type Outcome struct {
	Job Job
	Err error
}

// Runner fans jobs out to a bounded number of concurrent book builds.
type Runner struct {
	concurrency int64
	build       BookFunc
	log         *slog.Logger
}

// NewRunner builds a batch runner.
func NewRunner(bc config.BatchConfig, build BookFunc) *Runner {
	concurrency := int64(bc.Concurrency)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		concurrency: concurrency,
		build:       build,
		log:         slog.Default().With("component", "batch"),
	}
}

// Jobs derives one job per outline file, projecting each outline's base
// name into a directory under outputDir.
func Jobs(outlines []string, outputDir string) []Job {
	jobs := make([]Job, 0, len(outlines))
	for _, outline := range outlines {
		base := strings.TrimSuffix(filepath.Base(outline), filepath.Ext(outline))
		jobs = append(jobs, Job{
			ID:         uuid.NewString(),
			Outline:    outline,
			ProjectDir: filepath.Join(outputDir, base),
		})
	}
	return jobs
}

// DiscoverOutlines lists the markdown outline files in a directory.
func DiscoverOutlines(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read outlines dir: %w", err)
	}
	var outlines []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		outlines = append(outlines, filepath.Join(dir, e.Name()))
	}
	if len(outlines) == 0 {
		return nil, fmt.Errorf("no outline files in %s", dir)
	}
	return outlines, nil
}

// Run executes all jobs, at most `concurrency` at a time. It returns every
// outcome plus a joined error of the failures; a failed job does not cancel
// the rest.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	sem := semaphore.NewWeighted(r.concurrency)
	outcomes := make([]Outcome, len(jobs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return outcomes, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			r.log.Info("book build started", "job", job.ID, "outline", job.Outline)
			err := r.build(ctx, job)
			if err != nil {
				r.log.Error("book build failed", "job", job.ID, "error", err)
			} else {
				r.log.Info("book build finished", "job", job.ID, "dir", job.ProjectDir)
			}
			mu.Lock()
			outcomes[i] = Outcome{Job: job, Err: err}
			mu.Unlock()
			// Isolate failures: the group only propagates context errors.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	var failures []error
	for _, o := range outcomes {
		if o.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(o.Job.Outline), o.Err))
		}
	}
	return outcomes, errors.Join(failures...)
}
