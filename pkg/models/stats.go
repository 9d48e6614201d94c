package models

import "time"

// RenameStats aggregates the counters of one traversal run
type RenameStats struct {
	StartTime time.Time
	EndTime   time.Time // zero until Finish is called

	FilesScanned uint64
	DirsScanned  uint64
	FilesRenamed uint64
	DirsRenamed  uint64
	FilesSkipped uint64
	DirsSkipped  uint64
	Errors       uint64
}

// NewRenameStats starts a stats value at the given time
func NewRenameStats(start time.Time) RenameStats {
	return RenameStats{StartTime: start}
}

// Record counts one processed entry. The scanned counter of the entry's kind
// always moves; renamed or skipped moves according to the outcome, and
// collisions and failures only count as errors.
func (s *RenameStats) Record(rec EntryRecord) {
	scanned, renamed, skipped := &s.FilesScanned, &s.FilesRenamed, &s.FilesSkipped
	if rec.Kind == KindDir {
		scanned, renamed, skipped = &s.DirsScanned, &s.DirsRenamed, &s.DirsSkipped
	}

	*scanned++
	switch rec.Outcome {
	case OutcomeRenamed:
		*renamed++
	case OutcomeSkipped:
		*skipped++
	case OutcomeCollision, OutcomeFailed:
		s.Errors++
	}
}

// Fail records an error that is not tied to a scanned entry
func (s *RenameStats) Fail() {
	s.Errors++
}

// Finish sets the end time. Only the first call has an effect.
func (s *RenameStats) Finish(end time.Time) {
	if s.Finished() {
		return
	}
	s.EndTime = end
}

// Finished reports whether Finish has been called
func (s RenameStats) Finished() bool {
	return !s.EndTime.IsZero()
}

// Duration returns the elapsed wall-clock time of the run
func (s RenameStats) Duration() time.Duration {
	if s.Finished() {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// Add folds other's counters into s. Times are left untouched.
func (s *RenameStats) Add(other RenameStats) {
	s.FilesScanned += other.FilesScanned
	s.DirsScanned += other.DirsScanned
	s.FilesRenamed += other.FilesRenamed
	s.DirsRenamed += other.DirsRenamed
	s.FilesSkipped += other.FilesSkipped
	s.DirsSkipped += other.DirsSkipped
	s.Errors += other.Errors
}
