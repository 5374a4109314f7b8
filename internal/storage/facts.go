package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"bugminer/internal/errors"
)

// Category names one of the dedup entity tables.
type Category string

const (
	CategoryRevision Category = "revision"
	CategoryFile     Category = "file"
	CategoryFunction Category = "function"
)

type entityTable struct {
	table  string
	idCol  string
	valCol string
}

// categories is the whitelist that keeps table and column names out of
// caller-controlled strings.
var categories = map[Category]entityTable{
	CategoryRevision: {table: "revisions", idCol: "revision_id", valCol: "sha1"},
	CategoryFile:     {table: "files", idCol: "file_id", valCol: "file"},
	CategoryFunction: {table: "functions", idCol: "function_id", valCol: "function"},
}

// ErrRevisionExists is matched by errors.Is when RecordRevision is given a
// sha1 that is already stored.
var ErrRevisionExists = errors.NewMinerError(errors.Conflict, "Revision already recorded", nil, nil)

// RevisionFacts is everything learned about one revision.
type RevisionFacts struct {
	SHA1      string
	Message   string
	Sequence  int
	Files     []string
	Functions []string
	// BugID is empty when the revision is not a bug fix.
	BugID string
}

// GetOrCreateID returns the id of value in category, inserting it first
// if absent. Calling it twice with the same value yields the same id.
func (db *DB) GetOrCreateID(ctx context.Context, category Category, value string) (int64, error) {
	var id int64
	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = getOrCreateID(ctx, tx, category, value)
		return err
	})
	if err != nil {
		return 0, wrapStoreError(err)
	}
	return id, nil
}

func getOrCreateID(ctx context.Context, tx *sqlx.Tx, category Category, value string) (int64, error) {
	t, ok := categories[category]
	if !ok {
		return 0, errors.NewMinerError(errors.InternalError, fmt.Sprintf("unknown category %q", category), nil, nil)
	}

	var insert string
	var args []interface{}
	if category == CategoryRevision {
		insert = fmt.Sprintf("INSERT INTO %s (%s, recorded_at) VALUES (?, ?) ON CONFLICT (%s) DO NOTHING", t.table, t.valCol, t.valCol)
		args = []interface{}{value, time.Now().UTC().Format(time.RFC3339)}
	} else {
		insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (?) ON CONFLICT (%s) DO NOTHING", t.table, t.valCol, t.valCol)
		args = []interface{}{value}
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", category, err)
	}

	var id int64
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", t.idCol, t.table, t.valCol)
	if err := tx.GetContext(ctx, &id, query, value); err != nil {
		return 0, fmt.Errorf("failed to look up %s: %w", category, err)
	}
	return id, nil
}

// HasRevision reports whether sha1 has been recorded.
func (db *DB) HasRevision(ctx context.Context, sha1 string) (bool, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM revisions WHERE sha1 = ?", sha1)
	if err != nil {
		return false, wrapStoreError(err)
	}
	return n > 0, nil
}

// RecordRevision stores a revision and its edges in one transaction: the
// revision row first, then the bug edge, then one edge per file and per
// function. A sha1 that already exists yields ErrRevisionExists and
// nothing is written.
func (db *DB) RecordRevision(ctx context.Context, facts RevisionFacts) error {
	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO revisions (sha1, message, sequence, recorded_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (sha1) DO NOTHING
		`, facts.SHA1, facts.Message, facts.Sequence, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to insert revision: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrRevisionExists
		}

		revisionID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read revision id: %w", err)
		}

		if facts.BugID != "" {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO bugs (bug_id, revision_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				facts.BugID, revisionID,
			); err != nil {
				return fmt.Errorf("failed to insert bug edge: %w", err)
			}
		}

		if err := insertEdges(ctx, tx, CategoryFile, "file_changes", "file_id", revisionID, facts.Files); err != nil {
			return err
		}
		return insertEdges(ctx, tx, CategoryFunction, "function_changes", "function_id", revisionID, facts.Functions)
	})
	if err != nil {
		if stderrors.Is(err, ErrRevisionExists) {
			return errors.NewMinerError(errors.Conflict, "Revision already recorded", nil, nil).
				WithDetails(map[string]interface{}{"sha1": facts.SHA1})
		}
		return wrapStoreError(err)
	}

	db.logger.Debug("Recorded revision",
		"sha1", facts.SHA1,
		"files", len(facts.Files),
		"functions", len(facts.Functions),
		"bug", facts.BugID,
	)
	return nil
}

// insertEdges links each value to the revision. Duplicates within values
// collapse on the unique pair index.
func insertEdges(ctx context.Context, tx *sqlx.Tx, category Category, table, idCol string, revisionID int64, values []string) error {
	stmt := fmt.Sprintf("INSERT INTO %s (%s, revision_id) VALUES (?, ?) ON CONFLICT DO NOTHING", table, idCol)
	for _, v := range values {
		id, err := getOrCreateID(ctx, tx, category, v)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, id, revisionID); err != nil {
			return fmt.Errorf("failed to insert %s: %w", table, err)
		}
	}
	return nil
}

// wrapStoreError turns driver errors into STORE_FAILURE. Coded errors pass through.
func wrapStoreError(err error) error {
	var me *errors.MinerError
	if stderrors.As(err, &me) {
		return err
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewMinerError(errors.Cancelled, "Store operation cancelled", err, nil)
	}
	if stderrors.Is(err, sql.ErrConnDone) {
		return errors.NewMinerError(errors.StoreFailure, "Database connection closed", err, nil)
	}
	return errors.NewMinerError(errors.StoreFailure, "Store operation failed", err, nil)
}
