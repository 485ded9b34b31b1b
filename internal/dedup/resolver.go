// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup decides whether a candidate restaurant is already in the
// catalog, first by provider identity and then by fuzzy name match.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/geo"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/normalize"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const (
	defaultNameMatchLimit = 10
	maxNameMatchLimit     = 10
	defaultMaxDistanceKm  = 1.0
)

// Resolver looks up existing catalog records for candidates.
type Resolver struct {
	store         catalog.Store
	limit         int
	maxDistanceKm float64
	log           *zap.Logger
}

// New returns a Resolver over store. Zero config values take defaults;
// a negative MaxMatchDistanceKm disables the distance check.
func New(store catalog.Store, cfg types.DedupConfig, log *zap.Logger) *Resolver {
	limit := cfg.NameMatchLimit
	if limit <= 0 {
		limit = defaultNameMatchLimit
	}
	if limit > maxNameMatchLimit {
		limit = maxNameMatchLimit
	}
	dist := cfg.MaxMatchDistanceKm
	if dist == 0 {
		dist = defaultMaxDistanceKm
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, limit: limit, maxDistanceKm: dist, log: log.Named("dedup")}
}

// ResolveExisting returns the catalog record cand refers to, or nil when
// cand is new. An ExternalID hit is authoritative; otherwise the first
// name-similar record that is not provably a different place wins.
// Store failures are returned; a not-found lookup is not an error.
func (r *Resolver) ResolveExisting(ctx context.Context, cand types.CatalogRecord) (*types.CatalogRecord, error) {
	if cand.ExternalID != "" {
		rec, err := r.store.FindByExternalID(ctx, cand.ExternalID)
		switch {
		case err == nil:
			return &rec, nil
		case !errors.Is(err, catalog.ErrNotFound):
			return nil, fmt.Errorf("resolving by external id: %w", err)
		}
	}

	matches, err := r.nameCandidates(ctx, cand.Name)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		m := matches[i]
		if !normalize.SameName(m.Name, cand.Name) {
			continue
		}
		if reason := distinct(m, cand, r.maxDistanceKm); reason != "" {
			r.log.Debug("name match rejected",
				zap.String("candidate", cand.Name),
				zap.String("existing", m.Name),
				zap.String("existing_id", m.ID),
				zap.String("reason", reason))
			continue
		}
		return &m, nil
	}
	return nil, nil
}

// nameCandidates unions the lookups for the full normalized name and its
// key token, preserving order and capping at the configured limit.
func (r *Resolver) nameCandidates(ctx context.Context, name string) ([]types.CatalogRecord, error) {
	full := normalize.Name(name)
	if full == "" {
		return nil, nil
	}
	patterns := []string{full}
	if key := normalize.KeyToken(name); key != "" && key != full {
		patterns = append(patterns, key)
	}

	var out []types.CatalogRecord
	seen := make(map[string]bool)
	for _, p := range patterns {
		recs, err := r.store.FindByNameLike(ctx, p, r.limit)
		if err != nil {
			return nil, fmt.Errorf("resolving by name: %w", err)
		}
		for _, rec := range recs {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			out = append(out, rec)
			if len(out) == r.limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// distinct returns why existing and cand are provably different places,
// or "" when they may be the same.
func distinct(existing, cand types.CatalogRecord, maxKm float64) string {
	if existing.ExternalID != "" && cand.ExternalID != "" && existing.ExternalID != cand.ExternalID {
		return "different external id"
	}
	if maxKm > 0 && existing.Location != nil && cand.Location != nil &&
		geo.Between(*existing.Location, *cand.Location) > maxKm {
		return "too far apart"
	}
	return ""
}
