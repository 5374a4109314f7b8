package storage

import (
	"context"
	"fmt"
)

// Kind selects the entity a view ranks.
type Kind string

const (
	KindFiles     Kind = "files"
	KindFunctions Kind = "functions"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindFiles, KindFunctions:
		return k, nil
	default:
		return "", fmt.Errorf("unknown kind %q (want %q or %q)", s, KindFiles, KindFunctions)
	}
}

// RankedEntity is one row of a bug-prone or frequently-changed view.
type RankedEntity struct {
	Name  string `db:"name" json:"name" yaml:"name" toml:"name"`
	Count int    `db:"count" json:"count" yaml:"count" toml:"count"`
}

// CoChange is one row of a co-changed view.
type CoChange struct {
	Name  string `db:"name" json:"name" yaml:"name" toml:"name"`
	Other string `db:"other" json:"coChanged" yaml:"coChanged" toml:"coChanged"`
	Count int    `db:"count" json:"count" yaml:"count" toml:"count"`
}

// column names per kind, as defined by the views
var viewColumns = map[Kind]struct{ name, count, coName, coOther, coCount string }{
	KindFiles:     {"file", "file_count", "changed_file", "co_changed_file", "co_changed_file_count"},
	KindFunctions: {"function", "function_count", "changed_function", "co_changed_function", "co_changed_function_count"},
}

// BugProne ranks entities changed in bug-fix revisions, most first.
// A limit of 0 returns every row.
func (db *DB) BugProne(ctx context.Context, kind Kind, limit int) ([]RankedEntity, error) {
	return db.ranked(ctx, "bug_prone_", kind, limit)
}

// FrequentlyChanged ranks entities by the number of revisions changing them.
func (db *DB) FrequentlyChanged(ctx context.Context, kind Kind, limit int) ([]RankedEntity, error) {
	return db.ranked(ctx, "frequently_changed_", kind, limit)
}

func (db *DB) ranked(ctx context.Context, prefix string, kind Kind, limit int) ([]RankedEntity, error) {
	cols, ok := viewColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	query := fmt.Sprintf(
		"SELECT %s AS name, %s AS count FROM %s%s ORDER BY count DESC, name ASC",
		cols.name, cols.count, prefix, kind,
	)
	query, args := withLimit(query, limit)

	var rows []RankedEntity
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapStoreError(fmt.Errorf("failed to query %s%s: %w", prefix, kind, err))
	}
	return rows, nil
}

// CoChanged lists pairs of distinct entities changed in the same revision,
// by first member ascending then co-occurrence count descending. Each
// unordered pair appears once per direction.
func (db *DB) CoChanged(ctx context.Context, kind Kind, limit int) ([]CoChange, error) {
	cols, ok := viewColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	query := fmt.Sprintf(
		"SELECT %s AS name, %s AS other, %s AS count FROM co_changed_%s ORDER BY name ASC, count DESC, other ASC",
		cols.coName, cols.coOther, cols.coCount, kind,
	)
	query, args := withLimit(query, limit)

	var rows []CoChange
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapStoreError(fmt.Errorf("failed to query co_changed_%s: %w", kind, err))
	}
	return rows, nil
}

func withLimit(query string, limit int) (string, []interface{}) {
	if limit <= 0 {
		return query, nil
	}
	return query + " LIMIT ?", []interface{}{limit}
}

// Stats counts the rows of each table.
type Stats struct {
	Revisions int `db:"revisions" json:"revisions" yaml:"revisions" toml:"revisions"`
	Bugs      int `db:"bugs" json:"bugs" yaml:"bugs" toml:"bugs"`
	Files     int `db:"files" json:"files" yaml:"files" toml:"files"`
	Functions int `db:"functions" json:"functions" yaml:"functions" toml:"functions"`
}

// Stats returns table sizes.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.conn.GetContext(ctx, &s, `
		SELECT
			(SELECT COUNT(*) FROM revisions) AS revisions,
			(SELECT COUNT(*) FROM bugs)      AS bugs,
			(SELECT COUNT(*) FROM files)     AS files,
			(SELECT COUNT(*) FROM functions) AS functions
	`)
	if err != nil {
		return Stats{}, wrapStoreError(err)
	}
	return s, nil
}
