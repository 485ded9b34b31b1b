// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// NewSQLiteStore opens or creates the catalog database at path and
// creates the schema if it does not exist.
func NewSQLiteStore(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &sqlStore{db: db, d: sqliteDialect{}}
	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

type sqliteDialect struct{}

func (sqliteDialect) placeholder(int) string { return "?" }

// like is case-insensitive for ASCII in SQLite.
func (sqliteDialect) like() string { return "LIKE" }

func (sqliteDialect) isConflict(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id TEXT PRIMARY KEY,
			external_id TEXT UNIQUE,
			name TEXT NOT NULL,
			name_normalized TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			neighborhood TEXT NOT NULL DEFAULT '',
			latitude REAL,
			longitude REAL,
			phone TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			maps_url TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			cuisine_types TEXT NOT NULL DEFAULT '[]',
			cuisine_normalized TEXT NOT NULL DEFAULT '',
			price_level INTEGER,
			rating REAL,
			review_count INTEGER NOT NULL DEFAULT 0,
			opening_hours TEXT,
			open_now TEXT NOT NULL DEFAULT 'unknown',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_name_normalized ON restaurants(name_normalized)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_city ON restaurants(city)`,
	}
}
