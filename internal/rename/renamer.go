package rename

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/chmdznr/bulk-renamer/internal/logging"
	"github.com/chmdznr/bulk-renamer/pkg/models"
	"github.com/spf13/afero"
)

// Request is the immutable input of one run
type Request struct {
	Root      string
	Patterns  []string
	DryRun    bool
	Recursive bool
	Verbose   bool
}

// Renamer walks one directory tree bottom-up and strips the request's
// patterns from every file and directory name it finds.
type Renamer struct {
	req   Request
	fs    afero.Fs
	log   *logging.Logger
	obs   Observer
	now   func() time.Time
	stats models.RenameStats
	ran   bool
}

// Option customizes a Renamer
type Option func(*Renamer)

// WithFs replaces the OS filesystem
func WithFs(fs afero.Fs) Option {
	return func(r *Renamer) { r.fs = fs }
}

// WithLogger sets the logger used for previews and per-entry errors
func WithLogger(l *logging.Logger) Option {
	return func(r *Renamer) { r.log = l }
}

// WithObserver registers an observer for per-entry records
func WithObserver(o Observer) Option {
	return func(r *Renamer) { r.obs = o }
}

// WithClock replaces time.Now for the stats timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Renamer) { r.now = now }
}

// New validates req and returns a Renamer for it. The root is made absolute;
// its existence is checked by Run.
func New(req Request, opts ...Option) (*Renamer, error) {
	if req.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if len(req.Patterns) == 0 {
		return nil, ErrNoPatterns
	}
	for _, p := range req.Patterns {
		if p == "" {
			return nil, ErrEmptyPattern
		}
	}

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", req.Root, err)
	}
	req.Root = root
	req.Patterns = append([]string(nil), req.Patterns...)

	r := &Renamer{
		req: req,
		fs:  afero.NewOsFs(),
		log: logging.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Request returns the normalized request
func (r *Renamer) Request() Request {
	return r.req
}

// Run performs the traversal and returns the finalized stats. Per-entry
// failures are counted, never returned. A Renamer runs once; later calls
// return the stats of the first run.
func (r *Renamer) Run() models.RenameStats {
	if r.ran {
		return r.stats
	}
	r.ran = true
	r.stats = models.NewRenameStats(r.now())

	info, err := r.fs.Stat(r.req.Root)
	if err != nil || !info.IsDir() {
		r.log.Error("%s: %v", r.req.Root, ErrInvalidRoot)
		r.stats.Fail()
		r.stats.Finish(r.now())
		return r.stats
	}

	r.walkDir(r.req.Root, r.req.Recursive)

	r.stats.Finish(r.now())
	return r.stats
}

// walkDir processes dir's subtree before dir's own entries, so no directory
// is renamed while paths below it are still pending.
func (r *Renamer) walkDir(dir string, descend bool) {
	files, dirs, err := readDir(r.fs, dir)
	if err != nil {
		r.log.Error("cannot list %s: %v", dir, err)
		r.stats.Fail()
		return
	}

	if descend {
		for _, name := range dirs {
			r.walkDir(filepath.Join(dir, name), true)
		}
	}
	for _, name := range files {
		r.handle(r.processEntry(dir, name, models.KindFile))
	}
	for _, name := range dirs {
		r.handle(r.processEntry(dir, name, models.KindDir))
	}
}

func (r *Renamer) handle(rec models.EntryRecord) {
	r.stats.Record(rec)
	if r.obs != nil {
		r.obs.OnEntry(rec)
	}
}

// processEntry decides and, outside dry-run, performs the rename of one entry.
// It never panics on filesystem errors; they come back in the record.
func (r *Renamer) processEntry(dir, name string, kind models.EntryKind) models.EntryRecord {
	rec := models.EntryRecord{Kind: kind, Dir: dir, OldName: name, DryRun: r.req.DryRun}

	newName, changed := Transform(name, r.req.Patterns)
	if !changed {
		rec.Outcome = models.OutcomeSkipped
		return rec
	}
	rec.NewName = newName

	if r.req.Verbose {
		prefix := ""
		if r.req.DryRun {
			prefix = "(dry-run) "
		}
		r.log.Info("%s[%s] rename: %s -> %s", prefix, kind, name, newName)
	}

	if r.req.DryRun {
		rec.Outcome = models.OutcomeRenamed
		return rec
	}

	oldPath := filepath.Join(dir, name)
	newPath := filepath.Join(dir, newName)

	if !validName(newName) {
		return r.fail(rec, models.OutcomeFailed, &Error{Op: "rename", Old: oldPath, New: newPath, Err: ErrInvalidName})
	}

	if _, err := lstat(r.fs, newPath); err == nil {
		return r.fail(rec, models.OutcomeCollision, &Error{Op: "rename", Old: oldPath, New: newPath, Err: ErrNameCollision})
	} else if !errors.Is(err, os.ErrNotExist) {
		return r.fail(rec, models.OutcomeFailed, &Error{Op: "stat", Old: newPath, Err: err})
	}

	if err := r.fs.Rename(oldPath, newPath); err != nil {
		return r.fail(rec, models.OutcomeFailed, &Error{Op: "rename", Old: oldPath, New: newPath, Err: err})
	}

	rec.Outcome = models.OutcomeRenamed
	return rec
}

func (r *Renamer) fail(rec models.EntryRecord, outcome models.Outcome, err error) models.EntryRecord {
	rec.Outcome = outcome
	rec.Err = err
	if r.req.Verbose {
		if IsCollision(err) {
			r.log.Error("[%s] %s left unchanged: %v", rec.Kind, rec.OldName, err)
		} else {
			r.log.Error("[%s] %v", rec.Kind, err)
		}
	}
	return rec
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".."
}

// readDir lists dir and splits it into file and directory names, each sorted
// byte-wise. Symlinks are listed as files and never followed.
func readDir(fs afero.Fs, dir string) (files, dirs []string, err error) {
	f, err := fs.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	infos, err := f.Readdir(-1)
	if err != nil {
		return nil, nil, err
	}

	for _, fi := range infos {
		if fi.IsDir() {
			dirs = append(dirs, fi.Name())
		} else {
			files = append(files, fi.Name())
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

func lstat(fs afero.Fs, name string) (os.FileInfo, error) {
	if l, ok := fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(name)
		return fi, err
	}
	return fs.Stat(name)
}
