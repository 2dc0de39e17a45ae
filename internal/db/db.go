// Package db is the SQLite-backed store for the aggregation service: survey
// sites, movies, species, Zooniverse subjects and classifications, and the
// summaries of past aggregation runs. Schema changes are managed exclusively
// through the embedded migrations; OpenDB never creates tables itself.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the SQLite database at path. The schema is not
// initialised here; run the migrations before first use.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Subjects reference movies and movies reference sites.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}
