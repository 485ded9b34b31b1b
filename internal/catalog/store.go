// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists CatalogRecords and answers the lookups the
// pipeline needs: exact external-id match, name similarity, bulk id
// listing, inserts guarded by external-id uniqueness, and paginated
// filtered search ranked store-side.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

var (
	// ErrNotFound means the lookup legitimately matched nothing.
	ErrNotFound = errors.New("catalog: not found")

	// ErrConflict means an insert or update violated external-id uniqueness.
	ErrConflict = errors.New("catalog: external id already exists")

	// ErrUnavailable means the store could not be reached or failed.
	ErrUnavailable = errors.New("catalog: store unavailable")
)

// Store is the catalog persistence boundary.
type Store interface {
	// FindByExternalID returns the record with the given provider id,
	// active or not, or ErrNotFound.
	FindByExternalID(ctx context.Context, externalID string) (types.CatalogRecord, error)

	// FindByNameLike returns up to limit active records whose normalized
	// name contains the normalized pattern.
	FindByNameLike(ctx context.Context, pattern string, limit int) ([]types.CatalogRecord, error)

	// ListExternalIDs returns every external id in the catalog, active or not.
	ListExternalIDs(ctx context.Context) (map[string]struct{}, error)

	// Insert writes a new record, assigning ID and timestamps, and returns
	// it as stored. It fails with ErrConflict when ExternalID is taken.
	Insert(ctx context.Context, rec types.CatalogRecord) (types.CatalogRecord, error)

	// Search runs a filtered, sorted, paginated query over active records.
	Search(ctx context.Context, q Query) ([]types.CatalogRecord, error)

	// Refresh updates the live attributes of the record with externalID,
	// or returns ErrNotFound.
	Refresh(ctx context.Context, externalID string, live types.LiveAttributes) error

	// Reconcile fills fields missing on record id from rec and returns the
	// updated record. Present fields are never overwritten.
	Reconcile(ctx context.Context, id string, rec types.CatalogRecord) (types.CatalogRecord, error)

	Close() error
}

// Sort selects the ordering of Search results.
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortDistance  Sort = "distance"
	SortRating    Sort = "rating"
	SortPrice     Sort = "price"
)

// ParseSort maps a user-supplied sort key to a Sort. Empty means relevance.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortDistance:
		return SortDistance, nil
	case SortRating:
		return SortRating, nil
	case SortPrice:
		return SortPrice, nil
	default:
		return "", fmt.Errorf("unknown sort %q: want relevance, distance, rating, or price", s)
	}
}

// Filters narrow a Search. The zero value filters nothing.
type Filters struct {
	// Cuisine matches one entry of CuisineTypes, case-insensitively.
	Cuisine string `json:"cuisine,omitempty" yaml:"cuisine,omitempty"`

	// MaxPriceLevel keeps records priced at or below this level (1-4).
	MaxPriceLevel int `json:"max_price_level,omitempty" yaml:"max_price_level,omitempty"`

	// MinRating keeps records rated at least this much.
	MinRating float64 `json:"min_rating,omitempty" yaml:"min_rating,omitempty"`
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return strings.TrimSpace(f.Cuisine) != "" || f.MaxPriceLevel > 0 || f.MinRating > 0
}

// Query holds the parameters of a paginated catalog search.
type Query struct {
	// Text matches record names (accent- and case-insensitive) and neighborhoods.
	Text    string
	Filters Filters
	Sort    Sort

	// Near is the caller location; required for SortDistance.
	Near *types.GeoPoint

	Limit  int
	Offset int
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 {
		return defaultLimit
	}
	return q.Limit
}

func (q Query) offset() int {
	if q.Offset < 0 {
		return 0
	}
	return q.Offset
}

// sortKey resolves SortDistance without a location to relevance.
func (q Query) sortKey() Sort {
	if q.Sort == SortDistance && q.Near == nil {
		return SortRelevance
	}
	if q.Sort == "" {
		return SortRelevance
	}
	return q.Sort
}

// Open returns the Store selected by cfg.Driver.
func Open(cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "data/catalog.db"
		}
		return NewSQLiteStore(dsn)
	case types.DriverPostgres:
		return NewPostgresStore(cfg)
	case types.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q: want sqlite, postgres, or memory", cfg.Driver)
	}
}
