package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/chmdznr/bulk-renamer/internal/config"
	"github.com/chmdznr/bulk-renamer/internal/db"
	"github.com/chmdznr/bulk-renamer/internal/logging"
	"github.com/chmdznr/bulk-renamer/internal/rename"
	"github.com/chmdznr/bulk-renamer/internal/report"
	"github.com/chmdznr/bulk-renamer/pkg/models"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	return func() time.Time {
		t = t.Add(250 * time.Millisecond)
		return t
	}
}

type cleanupCall struct {
	dir    string
	dryRun bool
}

func recordCleanup(calls *[]cleanupCall) func(string, bool, *logging.Logger) {
	return func(dir string, dryRun bool, _ *logging.Logger) {
		*calls = append(*calls, cleanupCall{dir, dryRun})
	}
}

type fakeProgress struct {
	dir      string
	total    int
	seen     int
	finished bool
}

func (p *fakeProgress) OnEntry(models.EntryRecord) { p.seen++ }
func (p *fakeProgress) Finish()                    { p.finished = true }

func TestExecutorRunsEveryTaskAndDirectory(t *testing.T) {
	a, b, c := t.TempDir(), t.TempDir(), t.TempDir()
	touch(t, filepath.Join(a, "[ad]one.txt"))
	touch(t, filepath.Join(b, "sub", "[ad]two.txt"))
	touch(t, filepath.Join(c, "three_copy.txt"))

	list := []models.Task{
		{Name: "Ads", Directories: []string{a, b}, Patterns: []string{"[ad]"}, Recursive: true},
		{Name: "Copies", Directories: []string{c}, Patterns: []string{"_copy"}, Recursive: true},
	}

	var calls []cleanupCall
	var out bytes.Buffer
	cfg := DefaultExecutorConfig()
	cfg.Verbose = false
	e := NewExecutor(&cfg, &out, nil, WithCleanup(recordCleanup(&calls)), WithClock(fixedClock()))

	runs, err := e.Run(list)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs; want 3", len(runs))
	}
	for i, dir := range []string{a, b, c} {
		if runs[i].Dir != dir {
			t.Errorf("runs[%d].Dir = %q; want %q", i, runs[i].Dir, dir)
		}
		if runs[i].Stats.FilesRenamed != 1 {
			t.Errorf("runs[%d] renamed %d files; want 1", i, runs[i].Stats.FilesRenamed)
		}
	}
	if runs[2].Task != "Copies" || runs[2].Patterns[0] != "_copy" {
		t.Errorf("runs[2] = %+v", runs[2])
	}

	if len(calls) != 3 || calls[0].dir != a || calls[0].dryRun {
		t.Errorf("cleanup calls = %+v", calls)
	}

	got := out.String()
	for _, want := range []string{
		">>> Task: Ads",
		"  Directory: " + b,
		"Summary - Ads @ " + a,
		"Summary - Copies @ " + c,
		"Grand Total (3 runs)",
		" Files renamed: 3\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if _, err := os.Stat(filepath.Join(b, "sub", "two.txt")); err != nil {
		t.Errorf("expected nested rename: %v", err)
	}
}

func TestExecutorAdHocRun(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "AAA_x.txt"))

	var calls []cleanupCall
	var out bytes.Buffer
	cfg := ExecutorConfig{DryRun: true, Verbose: false, MacClean: false}
	e := NewExecutor(&cfg, &out, nil, WithCleanup(recordCleanup(&calls)))

	runs, err := e.Run([]models.Task{{Directories: []string{dir}, Patterns: []string{"AAA_"}, Recursive: true}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runs) != 1 || runs[0].Stats.FilesRenamed != 1 || !runs[0].DryRun {
		t.Fatalf("runs = %+v", runs)
	}
	if len(calls) != 0 {
		t.Errorf("cleanup should be disabled, got %+v", calls)
	}

	got := out.String()
	if strings.Contains(got, ">>> Task") || strings.Contains(got, "Grand Total") {
		t.Errorf("ad-hoc run should print a single unlabeled summary:\n%s", got)
	}
	if !strings.Contains(got, "  Dry Run Summary\n") {
		t.Errorf("missing dry-run summary title:\n%s", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "AAA_x.txt")); err != nil {
		t.Error("dry-run must not rename")
	}
}

func TestExecutorProgress(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "AAA_a.txt"))
	touch(t, filepath.Join(dir, "b.txt"))
	touch(t, filepath.Join(dir, "AAA_sub", "c.txt"))

	tests := []struct {
		name    string
		verbose bool
		want    bool
	}{
		{name: "quiet shows progress", verbose: false, want: true},
		{name: "verbose output replaces progress", verbose: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var made []*fakeProgress
			factory := func(d string, total int) Progress {
				p := &fakeProgress{dir: d, total: total}
				made = append(made, p)
				return p
			}
			cfg := ExecutorConfig{DryRun: true, Verbose: tt.verbose}
			e := NewExecutor(&cfg, &bytes.Buffer{}, nil, WithProgress(factory))

			if _, err := e.Run([]models.Task{{Directories: []string{dir}, Patterns: []string{"AAA_"}, Recursive: true}}); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if !tt.want {
				if len(made) != 0 {
					t.Errorf("expected no progress, got %d", len(made))
				}
				return
			}
			if len(made) != 1 {
				t.Fatalf("got %d progress bars; want 1", len(made))
			}
			p := made[0]
			if p.total != 4 || p.seen != 4 || !p.finished {
				t.Errorf("progress = %+v; want total=4 seen=4 finished", p)
			}
		})
	}
}

func TestExecutorJournal(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "AAA_a.txt"))
	touch(t, filepath.Join(dir, "a.txt"))

	journal, err := db.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer journal.Close()

	var logOut bytes.Buffer
	log, err := logging.New(logging.Options{Out: &logOut, Err: &logOut, Color: logging.ColorNever})
	if err != nil {
		t.Fatal(err)
	}
	cfg := ExecutorConfig{JournalBatch: 1, Verbose: true}
	e := NewExecutor(&cfg, &bytes.Buffer{}, log, WithJournal(journal), WithClock(fixedClock()))
	if _, err := e.Run([]models.Task{{Name: "J", Directories: []string{dir}, Patterns: []string{"AAA_"}, Recursive: true}}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	runs, err := journal.ListRuns(5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d journaled runs; want 1", len(runs))
	}
	if runs[0].Task != "J" || runs[0].Stats.FilesScanned != 2 || runs[0].Stats.Errors != 1 {
		t.Errorf("journaled run = %+v", runs[0])
	}
	counts, err := journal.EntryCounts(runs[0].ID)
	if err != nil {
		t.Fatalf("EntryCounts: %v", err)
	}
	if counts["collision"] != 1 || counts["skipped"] != 1 {
		t.Errorf("entry counts = %v", counts)
	}
	if !strings.Contains(logOut.String(), "[DEBUG] journal run #1 for "+dir) {
		t.Errorf("missing journal debug line in %q", logOut.String())
	}
}

// failingFs fails every rename
type failingFs struct {
	afero.Fs
}

func (failingFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

func TestExecutorUsesGivenFs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "AAA_a.txt"))
	touch(t, filepath.Join(dir, "AAA_sub", "b.txt"))

	cfg := ExecutorConfig{}
	e := NewExecutor(&cfg, &bytes.Buffer{}, nil, WithFs(failingFs{afero.NewOsFs()}))
	runs, err := e.Run([]models.Task{{Directories: []string{dir}, Patterns: []string{"AAA_"}, Recursive: true}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := runs[0].Stats
	if stats.FilesScanned != 2 || stats.DirsScanned != 1 || stats.Errors != 2 || stats.FilesRenamed != 0 || stats.DirsRenamed != 0 {
		t.Errorf("stats = %+v; want 2 errors and no renames", stats)
	}
	if _, err := os.Stat(filepath.Join(dir, "AAA_sub", "b.txt")); err != nil {
		t.Errorf("failed renames must leave entries in place: %v", err)
	}
}

func TestExecutorRejectsBadRequest(t *testing.T) {
	e := NewExecutor(nil, &bytes.Buffer{}, nil, WithCleanup(nil))
	_, err := e.Run([]models.Task{{Name: "Bad", Directories: []string{t.TempDir()}, Patterns: []string{""}, Recursive: true}})
	if !errors.Is(err, rename.ErrEmptyPattern) {
		t.Errorf("err = %v; want ErrEmptyPattern", err)
	}
}

func TestExecutorInvalidRootIsCounted(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	e := NewExecutor(nil, &bytes.Buffer{}, nil, WithCleanup(nil))
	runs, err := e.Run([]models.Task{{Directories: []string{missing}, Patterns: []string{"x"}, Recursive: true}})
	if err != nil {
		t.Fatalf("invalid roots are counted, not returned: %v", err)
	}
	if len(runs) != 1 || runs[0].Stats.Errors != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

type fakeUploader struct {
	docs []report.Document
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, doc report.Document) (string, error) {
	f.docs = append(f.docs, doc)
	return "key.json", f.err
}

func TestPublish(t *testing.T) {
	up := &fakeUploader{}
	old := newUploader
	newUploader = func(config.S3Config) (uploader, error) { return up, nil }
	t.Cleanup(func() { newUploader = old })

	var logOut bytes.Buffer
	log, err := logging.New(logging.Options{Out: &logOut, Err: &logOut, Color: logging.ColorNever})
	if err != nil {
		t.Fatal(err)
	}

	cfg := ExecutorConfig{DryRun: true}
	e := NewExecutor(&cfg, &bytes.Buffer{}, log, WithClock(fixedClock()))
	runs := []report.Run{{Task: "a", Dir: "/x", Patterns: []string{"p"}, DryRun: true}}

	path := filepath.Join(t.TempDir(), "report.json")
	e.Publish(context.Background(), runs, config.ReportConfig{
		Path: path,
		S3:   &config.S3Config{Endpoint: "s3.example.com", Bucket: "reports"},
	})

	doc := readReport(t, path)
	if !doc.DryRun || len(doc.Runs) != 1 {
		t.Errorf("document = %+v", doc)
	}
	if len(up.docs) != 1 || up.docs[0].Runs[0].Task != "a" {
		t.Errorf("uploaded = %+v", up.docs)
	}
	if !strings.Contains(logOut.String(), "report uploaded to reports/key.json") {
		t.Errorf("log = %q", logOut.String())
	}

	up.err = errors.New("denied")
	logOut.Reset()
	e.Publish(context.Background(), runs, config.ReportConfig{S3: &config.S3Config{Endpoint: "e", Bucket: "b"}})
	if !strings.Contains(logOut.String(), "[ERROR] denied") {
		t.Errorf("upload failure should be logged, got %q", logOut.String())
	}
}

func TestPrintPlan(t *testing.T) {
	var buf bytes.Buffer
	PrintPlan(&buf, []models.Task{
		{Name: "Downloads", Directories: []string{"/a", "/b"}, Patterns: []string{"[ad]"}, Recursive: true},
		{Name: "Flat", Directories: []string{"/c"}, Patterns: []string{"x"}, Recursive: false},
	}, false)

	got := buf.String()
	for _, want := range []string{
		"The following 2 task(s) will run:",
		"Task 1: Downloads\n",
		"  Directories: /a, /b\n",
		`  Patterns: ["[ad]"]`,
		"  Recursive: yes | Verbose: no\n",
		"Task 2: Flat\n",
		"  Recursive: no | Verbose: no\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("plan missing %q in:\n%s", want, got)
		}
	}
}

func readReport(t *testing.T, path string) report.Document {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc report.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return doc
}
