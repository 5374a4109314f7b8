package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRecord is one row of the mining run journal.
type RunRecord struct {
	RunID             string    `db:"run_id" json:"runId" yaml:"runId" toml:"runId"`
	Repository        string    `db:"repository" json:"repository" yaml:"repository" toml:"repository"`
	Backend           string    `db:"backend" json:"backend" yaml:"backend" toml:"backend"`
	StartRef          string    `db:"start_ref" json:"startRef" yaml:"startRef" toml:"startRef"`
	Status            string    `db:"status" json:"status" yaml:"status" toml:"status"`
	RevisionsTotal    int       `db:"revisions_total" json:"revisionsTotal" yaml:"revisionsTotal" toml:"revisionsTotal"`
	RevisionsRecorded int       `db:"revisions_recorded" json:"revisionsRecorded" yaml:"revisionsRecorded" toml:"revisionsRecorded"`
	RevisionsSkipped  int       `db:"revisions_skipped" json:"revisionsSkipped" yaml:"revisionsSkipped" toml:"revisionsSkipped"`
	Error             string    `db:"error" json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	StartedAt         time.Time `db:"-" json:"startedAt" yaml:"startedAt" toml:"startedAt"`
	FinishedAt        time.Time `db:"-" json:"finishedAt" yaml:"finishedAt" toml:"finishedAt"`
}

// timestampLayout is fixed-width UTC so stored text sorts chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// runRow carries the timestamps as stored text.
type runRow struct {
	RunRecord
	StartedAtText  string `db:"started_at"`
	FinishedAtText string `db:"finished_at"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordRun appends a run to the journal. An empty RunID gets a fresh uuid,
// which is written back into the returned record.
func (db *DB) RecordRun(ctx context.Context, run RunRecord) (RunRecord, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO mining_runs (
			run_id, repository, backend, start_ref, status,
			revisions_total, revisions_recorded, revisions_skipped,
			error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID, run.Repository, run.Backend, run.StartRef, run.Status,
		run.RevisionsTotal, run.RevisionsRecorded, run.RevisionsSkipped,
		run.Error,
		run.StartedAt.UTC().Format(timestampLayout),
		run.FinishedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return run, wrapStoreError(err)
	}
	return run, nil
}

// Runs returns the most recent runs first. A limit of 0 returns all.
func (db *DB) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	query, args := withLimit(`
		SELECT run_id, repository, backend, start_ref, status,
		       revisions_total, revisions_recorded, revisions_skipped,
		       error, started_at, finished_at
		  FROM mining_runs
		 ORDER BY started_at DESC, run_id ASC`, limit)

	var rows []runRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapStoreError(err)
	}

	runs := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		rec := r.RunRecord
		rec.StartedAt = db.parseTimestamp(rec.RunID, "started_at", r.StartedAtText)
		rec.FinishedAt = db.parseTimestamp(rec.RunID, "finished_at", r.FinishedAtText)
		runs = append(runs, rec)
	}
	return runs, nil
}

// parseTimestamp reads a stored timestamp. Rows written before the fixed
// layout used RFC 3339, which is accepted as well; anything else is logged
// and yields the zero time.
func (db *DB) parseTimestamp(runID, column, text string) time.Time {
	t, err := time.Parse(timestampLayout, text)
	if err == nil {
		return t
	}
	if t, rerr := time.Parse(time.RFC3339Nano, text); rerr == nil {
		return t
	}
	db.logger.Warn("Unreadable run timestamp",
		"runId", runID,
		"column", column,
		"value", text,
		"error", err,
	)
	return time.Time{}
}
