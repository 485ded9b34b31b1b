// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/normalize"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// MemoryStore is a thread-safe in-process Store. It keeps the same
// semantics as the SQL stores and backs tests and dry runs.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]types.CatalogRecord
	byExternal map[string]string
	order      []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]types.CatalogRecord),
		byExternal: make(map[string]string),
	}
}

func (s *MemoryStore) FindByExternalID(ctx context.Context, externalID string) (types.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.CatalogRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternal[externalID]
	if !ok || externalID == "" {
		return types.CatalogRecord{}, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByNameLike(ctx context.Context, pattern string, limit int) ([]types.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	norm := normalize.Name(pattern)
	if norm == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	var out []types.CatalogRecord
	for _, id := range s.order {
		rec := s.byID[id]
		if rec.IsActive && strings.Contains(normalize.Name(rec.Name), norm) {
			out = append(out, clone(rec))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := normalize.Name(out[i].Name) == norm, normalize.Name(out[j].Name) == norm
		if ei != ej {
			return ei
		}
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListExternalIDs(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{}, len(s.byExternal))
	for ext := range s.byExternal {
		ids[ext] = struct{}{}
	}
	return ids, nil
}

func (s *MemoryStore) Insert(ctx context.Context, rec types.CatalogRecord) (types.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.CatalogRecord{}, err
	}
	if strings.TrimSpace(rec.Name) == "" {
		return types.CatalogRecord{}, fmt.Errorf("inserting record: name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ExternalID != "" {
		if _, taken := s.byExternal[rec.ExternalID]; taken {
			return types.CatalogRecord{}, fmt.Errorf("inserting record: %w", ErrConflict)
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, taken := s.byID[rec.ID]; taken {
		return types.CatalogRecord{}, fmt.Errorf("inserting record: duplicate id %s: %w", rec.ID, ErrConflict)
	}
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	rec.IsActive = true
	if rec.OpenNow == "" {
		rec.OpenNow = types.OpenUnknown
	}
	if rec.CuisineTypes == nil {
		rec.CuisineTypes = []string{}
	}

	rec = clone(rec)
	s.byID[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	if rec.ExternalID != "" {
		s.byExternal[rec.ExternalID] = rec.ID
	}
	return clone(rec), nil
}

func (s *MemoryStore) Search(ctx context.Context, q Query) ([]types.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(q.Text)
	norm := normalize.Name(text)
	cuisine := normalize.Name(q.Filters.Cuisine)

	s.mu.RLock()
	var out []types.CatalogRecord
	for _, id := range s.order {
		rec := s.byID[id]
		if !rec.IsActive {
			continue
		}
		if norm != "" && !strings.Contains(normalize.Name(rec.Name), norm) &&
			!strings.Contains(strings.ToLower(rec.Neighborhood), strings.ToLower(text)) {
			continue
		}
		if cuisine != "" && !hasCuisine(rec.CuisineTypes, cuisine) {
			continue
		}
		if q.Filters.MaxPriceLevel > 0 && (rec.PriceLevel == 0 || rec.PriceLevel > q.Filters.MaxPriceLevel) {
			continue
		}
		if q.Filters.MinRating > 0 && (rec.Rating == nil || *rec.Rating < q.Filters.MinRating) {
			continue
		}
		out = append(out, clone(rec))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, lessFor(q, norm, out))

	off := q.offset()
	if off >= len(out) {
		return nil, nil
	}
	out = out[off:]
	if len(out) > q.limit() {
		out = out[:q.limit()]
	}
	return out, nil
}

func (s *MemoryStore) Refresh(ctx context.Context, externalID string, live types.LiveAttributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byExternal[externalID]
	if !ok {
		return ErrNotFound
	}
	rec := s.byID[id]
	if live.Rating != nil {
		r := *live.Rating
		rec.Rating = &r
	} else {
		rec.Rating = nil
	}
	rec.ReviewCount = live.ReviewCount
	rec.OpenNow = live.OpenNow
	if rec.OpenNow == "" {
		rec.OpenNow = types.OpenUnknown
	}
	if live.OpeningHours != nil {
		rec.OpeningHours = append([]string(nil), live.OpeningHours...)
	}
	rec.UpdatedAt = time.Now().UTC()
	s.byID[id] = rec
	return nil
}

func (s *MemoryStore) Reconcile(ctx context.Context, id string, rec types.CatalogRecord) (types.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.CatalogRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[id]
	if !ok {
		return types.CatalogRecord{}, ErrNotFound
	}

	if cur.ExternalID == "" && rec.ExternalID != "" {
		if _, taken := s.byExternal[rec.ExternalID]; taken {
			return types.CatalogRecord{}, fmt.Errorf("reconciling record: %w", ErrConflict)
		}
		cur.ExternalID = rec.ExternalID
		s.byExternal[rec.ExternalID] = id
	}
	fill(&cur.Address, rec.Address)
	fill(&cur.City, rec.City)
	fill(&cur.Neighborhood, rec.Neighborhood)
	fill(&cur.Phone, rec.Phone)
	fill(&cur.Website, rec.Website)
	fill(&cur.MapsURL, rec.MapsURL)
	fill(&cur.PhotoURL, rec.PhotoURL)
	if cur.Location == nil && rec.Location != nil {
		loc := *rec.Location
		cur.Location = &loc
	}
	if len(cur.CuisineTypes) == 0 && len(rec.CuisineTypes) > 0 {
		cur.CuisineTypes = append([]string(nil), rec.CuisineTypes...)
	}
	if cur.PriceLevel == 0 {
		cur.PriceLevel = rec.PriceLevel
	}
	if cur.Rating == nil && rec.Rating != nil {
		r := *rec.Rating
		cur.Rating = &r
	}
	if cur.OpeningHours == nil && rec.OpeningHours != nil {
		cur.OpeningHours = append([]string(nil), rec.OpeningHours...)
	}
	cur.UpdatedAt = time.Now().UTC()
	s.byID[id] = cur
	return clone(cur), nil
}

// SetActive flips the soft-delete flag of record id.
func (s *MemoryStore) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.IsActive = active
	s.byID[id] = rec
	return nil
}

// Len returns the number of stored records, active or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) Close() error { return nil }

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// hasCuisine reports whether any label in have folds to want, which is
// already normalized.
func hasCuisine(have []string, want string) bool {
	for _, c := range have {
		if normalize.Name(c) == want {
			return true
		}
	}
	return false
}

// lessFor mirrors the ORDER BY clauses of buildSearch.
func lessFor(q Query, norm string, recs []types.CatalogRecord) func(i, j int) bool {
	byRating := func(a, b types.CatalogRecord) (bool, bool) {
		if (a.Rating == nil) != (b.Rating == nil) {
			return a.Rating != nil, true
		}
		if a.Rating != nil && *a.Rating != *b.Rating {
			return *a.Rating > *b.Rating, true
		}
		return false, false
	}
	tail := func(a, b types.CatalogRecord) bool {
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	}
	rank := func(r types.CatalogRecord) int {
		n := normalize.Name(r.Name)
		switch {
		case norm == "":
			return 0
		case n == norm:
			return 0
		case strings.HasPrefix(n, norm):
			return 1
		default:
			return 2
		}
	}

	switch q.sortKey() {
	case SortDistance:
		cos := math.Cos(q.Near.Lat * math.Pi / 180)
		dist := func(r types.CatalogRecord) float64 {
			if r.Location == nil {
				return math.Inf(1)
			}
			dlat := r.Location.Lat - q.Near.Lat
			dlng := (r.Location.Lng - q.Near.Lng) * cos
			return dlat*dlat + dlng*dlng
		}
		return func(i, j int) bool {
			di, dj := dist(recs[i]), dist(recs[j])
			if di != dj {
				return di < dj
			}
			return tail(recs[i], recs[j])
		}
	case SortRating:
		return func(i, j int) bool {
			if less, ok := byRating(recs[i], recs[j]); ok {
				return less
			}
			if recs[i].ReviewCount != recs[j].ReviewCount {
				return recs[i].ReviewCount > recs[j].ReviewCount
			}
			return tail(recs[i], recs[j])
		}
	case SortPrice:
		return func(i, j int) bool {
			pi, pj := recs[i].PriceLevel, recs[j].PriceLevel
			if (pi == 0) != (pj == 0) {
				return pi != 0
			}
			if pi != pj {
				return pi < pj
			}
			if less, ok := byRating(recs[i], recs[j]); ok {
				return less
			}
			return tail(recs[i], recs[j])
		}
	default:
		return func(i, j int) bool {
			ri, rj := rank(recs[i]), rank(recs[j])
			if ri != rj {
				return ri < rj
			}
			if less, ok := byRating(recs[i], recs[j]); ok {
				return less
			}
			if recs[i].ReviewCount != recs[j].ReviewCount {
				return recs[i].ReviewCount > recs[j].ReviewCount
			}
			return tail(recs[i], recs[j])
		}
	}
}

func clone(r types.CatalogRecord) types.CatalogRecord {
	if r.Location != nil {
		loc := *r.Location
		r.Location = &loc
	}
	if r.Rating != nil {
		v := *r.Rating
		r.Rating = &v
	}
	if r.CuisineTypes != nil {
		r.CuisineTypes = append([]string{}, r.CuisineTypes...)
	}
	if r.OpeningHours != nil {
		r.OpeningHours = append([]string{}, r.OpeningHours...)
	}
	return r
}
