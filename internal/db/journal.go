package db

import (
	"time"

	"github.com/chmdznr/bulk-renamer/pkg/models"
)

// DefaultBatchSize is how many entry rows a RunJournal buffers before writing
const DefaultBatchSize = 500

// RunJournal records the entries of one run. It satisfies rename.Observer.
// After the first write error it stops writing and keeps the error for Finish.
type RunJournal struct {
	db        *DB
	runID     int64
	batchSize int
	seq       int
	buf       []models.EntryRecord
	err       error
}

// NewRunJournal opens a run row and returns the observer that fills it
func (db *DB) NewRunJournal(task, root string, patterns []string, dryRun, recursive bool, started time.Time, batchSize int) (*RunJournal, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	id, err := db.StartRun(task, root, patterns, dryRun, recursive, started)
	if err != nil {
		return nil, err
	}
	return &RunJournal{
		db:        db,
		runID:     id,
		batchSize: batchSize,
		buf:       make([]models.EntryRecord, 0, batchSize),
	}, nil
}

// RunID returns the id of the journaled run
func (j *RunJournal) RunID() int64 {
	return j.runID
}

func (j *RunJournal) OnEntry(rec models.EntryRecord) {
	if j.err != nil {
		return
	}
	j.buf = append(j.buf, rec)
	if len(j.buf) >= j.batchSize {
		j.flush()
	}
}

func (j *RunJournal) flush() {
	if len(j.buf) == 0 || j.err != nil {
		return
	}
	if err := j.db.SaveEntriesBatch(j.runID, j.seq, j.buf); err != nil {
		j.err = err
		return
	}
	j.seq += len(j.buf)
	j.buf = j.buf[:0]
}

// Finish writes the remaining entries and the final counters
func (j *RunJournal) Finish(stats models.RenameStats) error {
	j.flush()
	if j.err != nil {
		return j.err
	}
	return j.db.FinishRun(j.runID, stats)
}
