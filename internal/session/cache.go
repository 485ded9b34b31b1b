// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds per-session lookup state for the query
// orchestrator: resolved records keyed by normalized query, and the set
// of queries already sent to the provider. A Cache belongs to exactly one
// user session and must not be shared across sessions.
package session

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/normalize"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// DefaultSize is the per-session entry cap used when none is configured.
const DefaultSize = 256

// Cache maps normalized queries to resolved catalog records and tracks
// which queries were attempted against the provider. It is safe for
// concurrent use; entries are evicted least-recently-used past the cap.
type Cache struct {
	resolved  *lru.Cache[string, types.CatalogRecord]
	attempted *lru.Cache[string, struct{}]
}

// New creates a Cache holding at most size entries in each map.
func New(size int) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	// lru.New only fails for non-positive sizes.
	resolved, _ := lru.New[string, types.CatalogRecord](size)
	attempted, _ := lru.New[string, struct{}](size)
	return &Cache{resolved: resolved, attempted: attempted}
}

// Get returns the record last resolved for query.
func (c *Cache) Get(query string) (types.CatalogRecord, bool) {
	key := normalize.Name(query)
	if key == "" {
		return types.CatalogRecord{}, false
	}
	return c.resolved.Get(key)
}

// Put stores the record resolved for query.
func (c *Cache) Put(query string, rec types.CatalogRecord) {
	key := normalize.Name(query)
	if key == "" {
		return
	}
	c.resolved.Add(key, rec)
}

// HasAttempted reports whether query was already sent to the provider.
func (c *Cache) HasAttempted(query string) bool {
	return c.attempted.Contains(normalize.Name(query))
}

// MarkAttempted records that query was sent to the provider, whatever
// the outcome.
func (c *Cache) MarkAttempted(query string) {
	c.attempted.Add(normalize.Name(query), struct{}{})
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	return c.resolved.Len()
}
