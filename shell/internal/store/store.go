// CLAUDE:SUMMARY SQLite persistence for tabview: persisted thumbnails by origin, saved sessions, surface diagnostics.
// Package store provides the SQLite persistence layer for the tab shell.
package store

import (
	"database/sql"

	"github.com/hazyhaar/tabview/dbopen"
)

// Store is the tabview database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the tabview SQLite database at path, applies
// the pragmas and the tabview schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
