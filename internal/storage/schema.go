package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables and views for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createEntityTables(tx); err != nil {
			return err
		}
		if err := createEdgeTables(tx); err != nil {
			return err
		}
		if err := createMiningRunsTable(tx); err != nil {
			return err
		}
		if err := createViews(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version == 0 {
		// an empty file, or one created by something else
		return db.initializeSchema()
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sqlx.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func execAll(tx *sqlx.Tx, what string, statements ...string) error {
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", what, err)
		}
	}
	return nil
}

// createSchemaVersionTable creates the schema_version table
func createSchemaVersionTable(tx *sqlx.Tx) error {
	return execAll(tx, "schema_version table", `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
}

// createEntityTables creates the dedup tables. Each maps a unique value to a
// stable id; rows are never updated or deleted.
func createEntityTables(tx *sqlx.Tx) error {
	return execAll(tx, "entity tables", `
		CREATE TABLE IF NOT EXISTS revisions (
			revision_id INTEGER PRIMARY KEY AUTOINCREMENT,
			sha1        TEXT NOT NULL UNIQUE,
			message     TEXT NOT NULL DEFAULT '',
			sequence    INTEGER NOT NULL DEFAULT 0,
			recorded_at TEXT NOT NULL
		)
	`, `
		CREATE TABLE IF NOT EXISTS files (
			file_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file    TEXT NOT NULL UNIQUE
		)
	`, `
		CREATE TABLE IF NOT EXISTS functions (
			function_id INTEGER PRIMARY KEY AUTOINCREMENT,
			function    TEXT NOT NULL UNIQUE
		)
	`)
}

// createEdgeTables creates the per-revision edges with their unique pairs
func createEdgeTables(tx *sqlx.Tx) error {
	return execAll(tx, "edge tables", `
		CREATE TABLE IF NOT EXISTS bugs (
			bug_id      TEXT NOT NULL,
			revision_id INTEGER NOT NULL REFERENCES revisions(revision_id)
		)
	`,
		`CREATE UNIQUE INDEX IF NOT EXISTS bug_id_revision_id ON bugs (bug_id, revision_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bugs_revision ON bugs (revision_id)`,
		`
		CREATE TABLE IF NOT EXISTS file_changes (
			file_id     INTEGER NOT NULL REFERENCES files(file_id),
			revision_id INTEGER NOT NULL REFERENCES revisions(revision_id)
		)
	`,
		`CREATE UNIQUE INDEX IF NOT EXISTS file_id_revision_id ON file_changes (file_id, revision_id)`,
		`CREATE INDEX IF NOT EXISTS idx_file_changes_revision ON file_changes (revision_id)`,
		`
		CREATE TABLE IF NOT EXISTS function_changes (
			function_id INTEGER NOT NULL REFERENCES functions(function_id),
			revision_id INTEGER NOT NULL REFERENCES revisions(revision_id)
		)
	`,
		`CREATE UNIQUE INDEX IF NOT EXISTS function_id_revision_id ON function_changes (function_id, revision_id)`,
		`CREATE INDEX IF NOT EXISTS idx_function_changes_revision ON function_changes (revision_id)`,
	)
}

// createMiningRunsTable creates the append-only run journal
func createMiningRunsTable(tx *sqlx.Tx) error {
	return execAll(tx, "mining_runs table", `
		CREATE TABLE IF NOT EXISTS mining_runs (
			run_id             TEXT PRIMARY KEY,
			repository         TEXT NOT NULL,
			backend            TEXT NOT NULL,
			start_ref          TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL,
			revisions_total    INTEGER NOT NULL DEFAULT 0,
			revisions_recorded INTEGER NOT NULL DEFAULT 0,
			revisions_skipped  INTEGER NOT NULL DEFAULT 0,
			error              TEXT NOT NULL DEFAULT '',
			started_at         TEXT NOT NULL,
			finished_at        TEXT NOT NULL
		)
	`,
		`CREATE INDEX IF NOT EXISTS idx_mining_runs_started ON mining_runs (started_at)`,
	)
}

// createViews creates the ranking views. Counts tie-break on name so the
// order is stable across runs.
func createViews(tx *sqlx.Tx) error {
	return execAll(tx, "views", `
		CREATE VIEW IF NOT EXISTS bug_prone_functions AS
		SELECT function, COUNT(*) AS function_count
		  FROM functions
		  JOIN function_changes USING (function_id)
		  JOIN bugs             USING (revision_id)
		 GROUP BY function_id
		 ORDER BY function_count DESC, function ASC
	`, `
		CREATE VIEW IF NOT EXISTS frequently_changed_functions AS
		SELECT function, COUNT(*) AS function_count
		  FROM functions
		  JOIN function_changes USING (function_id)
		 GROUP BY function_id
		 ORDER BY function_count DESC, function ASC
	`, `
		CREATE VIEW IF NOT EXISTS co_changed_functions AS
		SELECT f1.function AS changed_function,
		       f2.function AS co_changed_function,
		       COUNT(*)    AS co_changed_function_count
		  FROM function_changes c1
		  JOIN function_changes c2 ON c1.revision_id = c2.revision_id
		   AND c1.function_id != c2.function_id
		  JOIN functions f1 ON c1.function_id = f1.function_id
		  JOIN functions f2 ON c2.function_id = f2.function_id
		 GROUP BY changed_function, co_changed_function
		 ORDER BY changed_function ASC,
		          co_changed_function_count DESC,
		          co_changed_function ASC
	`, `
		CREATE VIEW IF NOT EXISTS bug_prone_files AS
		SELECT file, COUNT(*) AS file_count
		  FROM files
		  JOIN file_changes USING (file_id)
		  JOIN bugs         USING (revision_id)
		 GROUP BY file_id
		 ORDER BY file_count DESC, file ASC
	`, `
		CREATE VIEW IF NOT EXISTS frequently_changed_files AS
		SELECT file, COUNT(*) AS file_count
		  FROM files
		  JOIN file_changes USING (file_id)
		 GROUP BY file_id
		 ORDER BY file_count DESC, file ASC
	`, `
		CREATE VIEW IF NOT EXISTS co_changed_files AS
		SELECT p1.file  AS changed_file,
		       p2.file  AS co_changed_file,
		       COUNT(*) AS co_changed_file_count
		  FROM file_changes c1
		  JOIN file_changes c2 ON c1.revision_id = c2.revision_id
		   AND c1.file_id != c2.file_id
		  JOIN files p1 ON c1.file_id = p1.file_id
		  JOIN files p2 ON c2.file_id = p2.file_id
		 GROUP BY changed_file, co_changed_file
		 ORDER BY changed_file ASC,
		          co_changed_file_count DESC,
		          co_changed_file ASC
	`)
}
