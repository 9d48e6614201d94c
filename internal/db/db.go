package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chmdznr/bulk-renamer/pkg/models"
)

// DB represents a journal database connection
type DB struct {
	*sql.DB
}

// RunInfo describes one journaled run
type RunInfo struct {
	ID        int64
	Task      string
	Root      string
	Patterns  []string
	DryRun    bool
	Recursive bool
	Stats     models.RenameStats
}

// New opens (and creates if needed) the journal at path
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT,
			root TEXT,
			patterns TEXT,
			dry_run INTEGER,
			recursive INTEGER,
			started_at DATETIME,
			finished_at DATETIME,
			files_scanned INTEGER DEFAULT 0,
			dirs_scanned INTEGER DEFAULT 0,
			files_renamed INTEGER DEFAULT 0,
			dirs_renamed INTEGER DEFAULT 0,
			files_skipped INTEGER DEFAULT 0,
			dirs_skipped INTEGER DEFAULT 0,
			errors INTEGER DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS entries (
			run_id INTEGER,
			seq INTEGER,
			kind TEXT,
			old_path TEXT,
			new_path TEXT,
			outcome TEXT,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		);
		CREATE INDEX IF NOT EXISTS idx_entries_outcome ON entries(run_id, outcome);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA temp_store=MEMORY;
	`)
	return err
}

// StartRun inserts a run row and returns its id
func (db *DB) StartRun(task, root string, patterns []string, dryRun, recursive bool, started time.Time) (int64, error) {
	encoded, err := json.Marshal(patterns)
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(`
		INSERT INTO runs (task, root, patterns, dry_run, recursive, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task, root, string(encoded), dryRun, recursive, started.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %v", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final counters of a run
func (db *DB) FinishRun(runID int64, stats models.RenameStats) error {
	_, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, files_scanned = ?, dirs_scanned = ?,
			files_renamed = ?, dirs_renamed = ?, files_skipped = ?, dirs_skipped = ?, errors = ?
		WHERE id = ?
	`,
		stats.EndTime.UTC(),
		stats.FilesScanned,
		stats.DirsScanned,
		stats.FilesRenamed,
		stats.DirsRenamed,
		stats.FilesSkipped,
		stats.DirsSkipped,
		stats.Errors,
		runID,
	)
	return err
}

// SaveEntriesBatch saves entry records in a single transaction. firstSeq is
// the sequence number of records[0] within the run.
func (db *DB) SaveEntriesBatch(runID int64, firstSeq int, records []models.EntryRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO entries (run_id, seq, kind, old_path, new_path, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		_, err = stmt.Exec(
			runID,
			firstSeq+i,
			rec.Kind.String(),
			rec.OldPath(),
			rec.NewPath(),
			rec.Outcome.String(),
			rec.ErrorString(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first
func (db *DB) ListRuns(limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, task, root, patterns, dry_run, recursive, started_at, finished_at,
			files_scanned, dirs_scanned, files_renamed, dirs_renamed,
			files_skipped, dirs_skipped, errors
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			run      RunInfo
			patterns string
			finished sql.NullTime
		)
		err = rows.Scan(
			&run.ID,
			&run.Task,
			&run.Root,
			&patterns,
			&run.DryRun,
			&run.Recursive,
			&run.Stats.StartTime,
			&finished,
			&run.Stats.FilesScanned,
			&run.Stats.DirsScanned,
			&run.Stats.FilesRenamed,
			&run.Stats.DirsRenamed,
			&run.Stats.FilesSkipped,
			&run.Stats.DirsSkipped,
			&run.Stats.Errors,
		)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			run.Stats.EndTime = finished.Time
		}
		if err := json.Unmarshal([]byte(patterns), &run.Patterns); err != nil {
			return nil, fmt.Errorf("run %d has malformed patterns: %v", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// EntryCounts returns how many entries of a run ended with each outcome
func (db *DB) EntryCounts(runID int64) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT outcome, COUNT(*)
		FROM entries
		WHERE run_id = ?
		GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
