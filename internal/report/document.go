package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/chmdznr/bulk-renamer/pkg/models"
)

// Counters is the JSON form of RenameStats
type Counters struct {
	DurationSeconds float64 `json:"duration_seconds"`
	FilesScanned    uint64  `json:"files_scanned"`
	DirsScanned     uint64  `json:"dirs_scanned"`
	FilesRenamed    uint64  `json:"files_renamed"`
	DirsRenamed     uint64  `json:"dirs_renamed"`
	FilesSkipped    uint64  `json:"files_skipped"`
	DirsSkipped     uint64  `json:"dirs_skipped"`
	Errors          uint64  `json:"errors"`
}

// RunEntry is one run inside a Document
type RunEntry struct {
	Task       string    `json:"task"`
	Directory  string    `json:"directory"`
	Patterns   []string  `json:"patterns"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Counters
}

// Document is the machine readable report of a whole invocation
type Document struct {
	GeneratedAt time.Time  `json:"generated_at"`
	DryRun      bool       `json:"dry_run"`
	Runs        []RunEntry `json:"runs"`
	Totals      Counters   `json:"totals"`
}

func countersOf(s models.RenameStats, d time.Duration) Counters {
	return Counters{
		DurationSeconds: d.Seconds(),
		FilesScanned:    s.FilesScanned,
		DirsScanned:     s.DirsScanned,
		FilesRenamed:    s.FilesRenamed,
		DirsRenamed:     s.DirsRenamed,
		FilesSkipped:    s.FilesSkipped,
		DirsSkipped:     s.DirsSkipped,
		Errors:          s.Errors,
	}
}

// NewDocument builds the report for runs
func NewDocument(runs []Run, dryRun bool, generated time.Time) Document {
	doc := Document{
		GeneratedAt: generated.UTC(),
		DryRun:      dryRun,
		Runs:        make([]RunEntry, 0, len(runs)),
	}
	for _, r := range runs {
		doc.Runs = append(doc.Runs, RunEntry{
			Task:       r.Task,
			Directory:  r.Dir,
			Patterns:   append([]string(nil), r.Patterns...),
			StartedAt:  r.Stats.StartTime.UTC(),
			FinishedAt: r.Stats.EndTime.UTC(),
			Counters:   countersOf(r.Stats, r.Stats.Duration()),
		})
	}
	total, duration := Totals(runs)
	doc.Totals = countersOf(total, duration)
	return doc
}

// Marshal encodes doc as indented JSON
func (doc Document) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteFile writes doc to path while holding an exclusive lock on the file,
// so concurrent invocations sharing a report path never interleave.
func WriteFile(path string, doc Document) error {
	b, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := lockedfile.Write(path, bytes.NewReader(b), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
