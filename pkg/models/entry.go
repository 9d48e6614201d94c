package models

import "path/filepath"

// EntryKind distinguishes files from directories during a rename run
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Outcome is the result tag of processing a single entry
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeRenamed
	OutcomeCollision
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRenamed:
		return "renamed"
	case OutcomeCollision:
		return "collision"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// EntryRecord describes what happened to one file or directory
type EntryRecord struct {
	Kind    EntryKind
	Dir     string
	OldName string
	NewName string // empty when the name did not change
	Outcome Outcome
	DryRun  bool
	Err     error
}

// OldPath returns the full path of the entry before the rename
func (r EntryRecord) OldPath() string {
	return filepath.Join(r.Dir, r.OldName)
}

// NewPath returns the full path the entry was (or would be) renamed to.
// It is empty for skipped entries.
func (r EntryRecord) NewPath() string {
	if r.Outcome == OutcomeSkipped {
		return ""
	}
	return filepath.Join(r.Dir, r.NewName)
}

// ErrorString returns the error message or an empty string
func (r EntryRecord) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
