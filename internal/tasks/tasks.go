package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/chmdznr/bulk-renamer/internal/cleanup"
	"github.com/chmdznr/bulk-renamer/internal/config"
	"github.com/chmdznr/bulk-renamer/internal/db"
	"github.com/chmdznr/bulk-renamer/internal/logging"
	"github.com/chmdznr/bulk-renamer/internal/rename"
	"github.com/chmdznr/bulk-renamer/internal/report"
	"github.com/chmdznr/bulk-renamer/pkg/models"
)

// Progress follows the entries of one run
type Progress interface {
	rename.Observer
	Finish()
}

// ProgressFactory creates a Progress for a run over dir expected to scan
// total entries
type ProgressFactory func(dir string, total int) Progress

// ExecutorConfig holds the run-wide switches shared by every task
type ExecutorConfig struct {
	DryRun       bool
	Verbose      bool
	MacClean     bool
	JournalBatch int
}

// DefaultExecutorConfig returns default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Verbose:      true,
		MacClean:     true,
		JournalBatch: db.DefaultBatchSize,
	}
}

// Executor runs every (task, directory) pair in order and prints a summary
// after each one
type Executor struct {
	cfg      ExecutorConfig
	out      io.Writer
	log      *logging.Logger
	fs       afero.Fs
	journal  *db.DB
	progress ProgressFactory
	cleanup  func(dir string, dryRun bool, log *logging.Logger)
	now      func() time.Time
}

// Option customizes an Executor
type Option func(*Executor)

// WithJournal records every run in the journal
func WithJournal(j *db.DB) Option {
	return func(e *Executor) { e.journal = j }
}

// WithProgress shows progress for runs that are not verbose
func WithProgress(p ProgressFactory) Option {
	return func(e *Executor) { e.progress = p }
}

// WithFs replaces the filesystem handed to every renamer
func WithFs(fs afero.Fs) Option {
	return func(e *Executor) { e.fs = fs }
}

// WithCleanup replaces the metadata cleanup pre-pass
func WithCleanup(fn func(dir string, dryRun bool, log *logging.Logger)) Option {
	return func(e *Executor) { e.cleanup = fn }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// NewExecutor creates a new executor instance. Summaries go to out.
func NewExecutor(cfg *ExecutorConfig, out io.Writer, log *logging.Logger, opts ...Option) *Executor {
	if cfg == nil {
		defaultConfig := DefaultExecutorConfig()
		cfg = &defaultConfig
	}
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logging.Discard()
	}

	e := &Executor{
		cfg:     *cfg,
		out:     out,
		log:     log,
		fs:      afero.NewOsFs(),
		cleanup: cleanup.MacMetadata,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes tasks in order. A task with an empty name is a single ad-hoc
// run: no task header and no label on its summary. The returned error is
// only set for requests that could not start; errors counted during a run
// are part of its stats.
func (e *Executor) Run(list []models.Task) ([]report.Run, error) {
	var runs []report.Run

	for _, task := range list {
		if task.Name != "" {
			fmt.Fprintf(e.out, "\n>>> Task: %s\n", task.Name)
		}
		for _, dir := range task.Directories {
			if task.Name != "" {
				fmt.Fprintf(e.out, "  Directory: %s\n", dir)
			}
			run, err := e.runOne(task, dir)
			if err != nil {
				return runs, err
			}
			runs = append(runs, run)

			label := ""
			if task.Name != "" {
				label = task.Name + " @ " + dir
			}
			report.PrintSummary(e.out, run.Stats, e.cfg.DryRun, label)
		}
	}

	if len(runs) > 1 {
		report.PrintTotals(e.out, runs)
	}
	return runs, nil
}

func (e *Executor) runOne(task models.Task, dir string) (report.Run, error) {
	if e.cfg.MacClean && e.cleanup != nil {
		e.cleanup(dir, e.cfg.DryRun, e.log)
	}

	// observers is filled once the normalized request is known
	var observers rename.Observers
	renamer, err := rename.New(rename.Request{
		Root:      dir,
		Patterns:  task.Patterns,
		DryRun:    e.cfg.DryRun,
		Recursive: task.Recursive,
		Verbose:   e.cfg.Verbose,
	},
		rename.WithFs(e.fs),
		rename.WithLogger(e.log),
		rename.WithClock(e.now),
		rename.WithObserver(rename.ObserverFunc(func(rec models.EntryRecord) {
			observers.OnEntry(rec)
		})),
	)
	if err != nil {
		if task.Name == "" {
			return report.Run{}, err
		}
		return report.Run{}, fmt.Errorf("task %q: %w", task.Name, err)
	}
	req := renamer.Request()

	var progress Progress
	if e.progress != nil && !req.Verbose {
		if total, err := rename.CountEntries(e.fs, req.Root, req.Recursive); err == nil {
			progress = e.progress(req.Root, total)
			observers = append(observers, progress)
		}
	}

	var journal *db.RunJournal
	if e.journal != nil {
		journal, err = e.journal.NewRunJournal(task.Name, req.Root, req.Patterns, req.DryRun, req.Recursive, e.now(), e.cfg.JournalBatch)
		if err != nil {
			e.log.Warn("journal disabled for %s: %v", req.Root, err)
			journal = nil
		} else {
			e.log.Debug(e.cfg.Verbose, "journal run #%d for %s", journal.RunID(), req.Root)
			observers = append(observers, journal)
		}
	}

	stats := renamer.Run()

	if progress != nil {
		progress.Finish()
	}
	if journal != nil {
		if err := journal.Finish(stats); err != nil {
			e.log.Warn("failed to write journal for %s: %v", req.Root, err)
		}
	}

	return report.Run{
		Task:     task.Name,
		Dir:      req.Root,
		Patterns: req.Patterns,
		DryRun:   req.DryRun,
		Stats:    stats,
	}, nil
}

// Publish writes the JSON report and uploads it when configured. Failures
// are logged; they never change the outcome of the runs.
func (e *Executor) Publish(ctx context.Context, runs []report.Run, cfg config.ReportConfig) {
	if cfg.Path == "" && cfg.S3 == nil {
		return
	}
	doc := report.NewDocument(runs, e.cfg.DryRun, e.now())

	if cfg.Path != "" {
		if err := report.WriteFile(cfg.Path, doc); err != nil {
			e.log.Error("%v", err)
		} else {
			e.log.Info("report written to %s", cfg.Path)
		}
	}

	if cfg.S3 != nil {
		up, err := newUploader(*cfg.S3)
		if err != nil {
			e.log.Error("%v", err)
			return
		}
		key, err := up.Upload(ctx, doc)
		if err != nil {
			e.log.Error("%v", err)
			return
		}
		e.log.Success("report uploaded to %s/%s", cfg.S3.Bucket, key)
	}
}

type uploader interface {
	Upload(ctx context.Context, doc report.Document) (string, error)
}

var newUploader = func(cfg config.S3Config) (uploader, error) {
	return report.NewUploader(cfg)
}

// PrintPlan writes the task preview shown before a configured batch starts
func PrintPlan(w io.Writer, list []models.Task, verbose bool) {
	rule := strings.Repeat("-", 33)
	fmt.Fprintf(w, "\nThe following %d task(s) will run:\n", len(list))
	fmt.Fprintln(w, rule)
	for i, task := range list {
		fmt.Fprintf(w, "Task %d: %s\n", i+1, task.Name)
		fmt.Fprintf(w, "  Directories: %s\n", strings.Join(task.Directories, ", "))
		fmt.Fprintf(w, "  Patterns: %q\n", task.Patterns)
		fmt.Fprintf(w, "  Recursive: %s | Verbose: %s\n", yesNo(task.Recursive), yesNo(verbose))
		fmt.Fprintln(w, rule)
	}
}

// PrintDryRunBanner announces that nothing will be modified
func PrintDryRunBanner(w io.Writer) {
	fmt.Fprintln(w, "\n--- NOTE: dry-run mode, no files will be modified ---")
	fmt.Fprintln(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
