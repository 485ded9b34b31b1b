// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const pgUniqueViolation = "23505"

// NewPostgresStore connects to the Postgres catalog at cfg.DSN, verifies
// the connection, and creates the schema if it does not exist.
func NewPostgresStore(cfg types.StoreConfig) (Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres store: dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w: %w", ErrUnavailable, err)
	}

	s := &sqlStore{db: db, d: postgresDialect{}}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

type postgresDialect struct{}

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) like() string { return "ILIKE" }

func (postgresDialect) isConflict(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == pgUniqueViolation
	}
	return false
}

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id TEXT PRIMARY KEY,
			external_id TEXT UNIQUE,
			name TEXT NOT NULL,
			name_normalized TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			neighborhood TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			phone TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			maps_url TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			cuisine_types TEXT NOT NULL DEFAULT '[]',
			cuisine_normalized TEXT NOT NULL DEFAULT '',
			price_level INTEGER,
			rating DOUBLE PRECISION,
			review_count INTEGER NOT NULL DEFAULT 0,
			opening_hours TEXT,
			open_now TEXT NOT NULL DEFAULT 'unknown',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_name_normalized ON restaurants(name_normalized)`,
		`CREATE INDEX IF NOT EXISTS idx_restaurants_city ON restaurants(city)`,
	}
}
