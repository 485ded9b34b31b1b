// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/dedup"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ingest"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/provider"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/session"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// --- fake gateway ---

type fakeGateway struct {
	mu          sync.Mutex
	places      map[string]provider.Details // keyed by lowercased query
	textErr     error
	delay       time.Duration
	textCalls   int
	detailCalls int
}

func (g *fakeGateway) SearchText(ctx context.Context, query string, _ *types.GeoPoint) (provider.Place, error) {
	g.mu.Lock()
	g.textCalls++
	g.mu.Unlock()
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return provider.Place{}, fmt.Errorf("%w: %w", provider.ErrUnavailable, ctx.Err())
		case <-time.After(g.delay):
		}
	}
	if g.textErr != nil {
		return provider.Place{}, g.textErr
	}
	d, ok := g.places[strings.ToLower(query)]
	if !ok {
		return provider.Place{}, provider.ErrNotFound
	}
	return d.Place, nil
}

func (g *fakeGateway) FetchDetails(_ context.Context, id string) (provider.Details, error) {
	g.mu.Lock()
	g.detailCalls++
	g.mu.Unlock()
	for _, d := range g.places {
		if d.ExternalID == id {
			return d, nil
		}
	}
	return provider.Details{}, provider.ErrNotFound
}

func (g *fakeGateway) SearchNearby(context.Context, types.GeoPoint, int, string) ([]provider.Place, error) {
	return nil, nil
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.textCalls
}

// --- helpers ---

var recife = &types.GeoPoint{Lat: -8.05, Lng: -34.88}

func sushiYama() provider.Details {
	r := 4.7
	return provider.Details{
		Place: provider.Place{
			ExternalID:  "p123",
			Name:        "Sushi Yama",
			Address:     "Av. Boa Viagem, 1000",
			Location:    &types.GeoPoint{Lat: -8.1189, Lng: -34.8998},
			Rating:      &r,
			ReviewCount: 1520,
			Types:       []string{"japanese_restaurant"},
		},
		Components: []provider.AddressComponent{{LongName: "Boa Viagem", Types: []string{"sublocality"}}},
	}
}

type fixture struct {
	// store is the backing memory store when no custom store was given.
	store   *catalog.MemoryStore
	gw      *fakeGateway
	orch    *Orchestrator
	metrics *metrics.Registry
}

func newFixture(t *testing.T, store catalog.Store, local ...types.CatalogRecord) *fixture {
	t.Helper()
	mem := catalog.NewMemoryStore()
	if store == nil {
		store = mem
	}
	for _, r := range local {
		_, err := store.Insert(context.Background(), r)
		require.NoError(t, err)
	}
	gw := &fakeGateway{places: map[string]provider.Details{"sushi": sushiYama(), "sushi yama": sushiYama()}}
	m := metrics.NewRegistry()
	log := zaptest.NewLogger(t)
	orch := New(store, gw, dedup.New(store, types.DedupConfig{}, log), types.SearchConfig{}, log, m)
	return &fixture{store: mem, gw: gw, orch: orch, metrics: m}
}

func localSushi() []types.CatalogRecord {
	return []types.CatalogRecord{
		{ExternalID: "e1", Name: "Sushi Express", Address: "Rua A", Location: &types.GeoPoint{Lat: -8.06, Lng: -34.89}},
		{ExternalID: "e2", Name: "Sushi House", Address: "Rua B", Location: &types.GeoPoint{Lat: -8.04, Lng: -34.87}},
	}
}

// --- scenarios ---

func TestSearchFallbackCreatesAndPrepends(t *testing.T) {
	f := newFixture(t, nil, localSushi()...)
	sess := session.New(0)

	resp, err := f.orch.Search(context.Background(), sess, Request{Query: "sushi", Near: recife, Page: 1, CityHint: "Recife"})
	require.NoError(t, err)
	assert.Equal(t, FallbackCreated, resp.Fallback)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "p123", resp.Results[0].ExternalID)
	assert.NotEmpty(t, resp.Results[0].ID)
	assert.Equal(t, "Recife", resp.Results[0].City)
	assert.Equal(t, 1, f.gw.calls())

	stored, err := f.store.FindByExternalID(context.Background(), "p123")
	require.NoError(t, err)
	assert.Equal(t, resp.Results[0].ID, stored.ID)

	for _, r := range resp.Results {
		require.NotNil(t, r.DistanceKm, r.Name)
		assert.NotEmpty(t, r.Distance)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Fallbacks.WithLabelValues("created")))
}

func TestSearchRepeatUsesSessionCache(t *testing.T) {
	f := newFixture(t, nil, localSushi()...)
	sess := session.New(0)
	req := Request{Query: "sushi", Near: recife}

	_, err := f.orch.Search(context.Background(), sess, req)
	require.NoError(t, err)

	// The first search inserted Sushi Yama, so "sushi" now has three
	// local results; use a stricter threshold to force fallback again.
	f.orch.cfg.FallbackThreshold = 10
	resp, err := f.orch.Search(context.Background(), sess, req)
	require.NoError(t, err)
	assert.Equal(t, FallbackCached, resp.Fallback)
	assert.Equal(t, 1, f.gw.calls(), "no second provider call")
	assert.Len(t, resp.Results, 3, "cached record is not listed twice")
}

func TestSearchSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	f.gw.textErr = provider.ErrNotFound

	_, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "nada aqui"})
	require.NoError(t, err)
	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "nada aqui"})
	require.NoError(t, err)
	assert.Equal(t, FallbackFailed, resp.Fallback)
	assert.Equal(t, 2, f.gw.calls())
}

func TestSearchAttemptedQueryNotRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.gw.textErr = fmt.Errorf("boom: %w", provider.ErrUnavailable)
	sess := session.New(0)

	resp, err := f.orch.Search(context.Background(), sess, Request{Query: "Bistrô Novo"})
	require.NoError(t, err, "provider failures never fail the search")
	assert.Equal(t, FallbackFailed, resp.Fallback)
	assert.Empty(t, resp.Results)

	resp, err = f.orch.Search(context.Background(), sess, Request{Query: "bistro novo"})
	require.NoError(t, err)
	assert.Equal(t, FallbackSkipped, resp.Fallback)
	assert.Equal(t, 1, f.gw.calls())
}

func TestSearchFallbackSuppressed(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"short query", Request{Query: "ab"}},
		{"short accented query", Request{Query: " zé "}},
		{"cuisine filter", Request{Query: "sushi", Filters: catalog.Filters{Cuisine: "Japonesa"}}},
		{"price filter", Request{Query: "sushi", Filters: catalog.Filters{MaxPriceLevel: 2}}},
		{"rating filter", Request{Query: "sushi", Filters: catalog.Filters{MinRating: 4}}},
		{"second page", Request{Query: "sushi", Page: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			resp, err := f.orch.Search(context.Background(), session.New(0), tt.req)
			require.NoError(t, err)
			assert.Equal(t, FallbackNone, resp.Fallback)
			assert.Zero(t, f.gw.calls())
		})
	}
}

func TestSearchEnoughLocalResultsSkipsFallback(t *testing.T) {
	local := append(localSushi(), types.CatalogRecord{Name: "Sushi Bar Três"})
	f := newFixture(t, nil, local...)

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi"})
	require.NoError(t, err)
	assert.Equal(t, FallbackNone, resp.Fallback)
	assert.Len(t, resp.Results, 3)
	assert.Zero(t, f.gw.calls())
}

func TestSearchFallbackNeverDoubleLists(t *testing.T) {
	// Sushi Yama is already in the catalog under a manual entry with no
	// external id; the provider resolves to the same place.
	local := []types.CatalogRecord{
		{Name: "Sushi Yama", Address: "Av. Boa Viagem, 1000", Location: &types.GeoPoint{Lat: -8.1189, Lng: -34.8998}},
		{Name: "Sushi Express", Address: "Rua A", Location: &types.GeoPoint{Lat: -8.06, Lng: -34.89}},
	}
	f := newFixture(t, nil, local...)

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, f.store.Len(), "no new record inserted")
}

// nearbyGateway also answers nearby searches with the fixture's places.
type nearbyGateway struct{ *fakeGateway }

func (g nearbyGateway) SearchNearby(context.Context, types.GeoPoint, int, string) ([]provider.Place, error) {
	return []provider.Place{sushiYama().Place}, nil
}

func TestSearchLinksManualEntryToProviderID(t *testing.T) {
	manual := types.CatalogRecord{Name: "Sushi Yama", Address: "Av. Boa Viagem, 1000", Location: &types.GeoPoint{Lat: -8.1189, Lng: -34.8998}}
	stores := map[string]func(t *testing.T) catalog.Store{
		"memory": func(t *testing.T) catalog.Store { return catalog.NewMemoryStore() },
		"sqlite": func(t *testing.T) catalog.Store {
			s, err := catalog.NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			f := newFixture(t, store, manual)
			ctx := context.Background()

			resp, err := f.orch.Search(ctx, session.New(0), Request{Query: "sushi"})
			require.NoError(t, err)
			assert.Equal(t, FallbackExisting, resp.Fallback)
			require.Len(t, resp.Results, 1)

			linked, err := store.FindByExternalID(ctx, "p123")
			require.NoError(t, err)
			assert.Equal(t, resp.Results[0].ID, linked.ID)
			assert.Equal(t, "Av. Boa Viagem, 1000", linked.Address, "stored fields are kept")
			assert.Equal(t, "Boa Viagem", linked.Neighborhood, "empty fields are filled")

			job := ingest.New(store, nearbyGateway{f.gw}, types.IngestionConfig{DetailDelay: -1, SweepDelay: -1}, zaptest.NewLogger(t), nil)
			out, err := job.Run(ctx, []types.Cell{{Name: "boa-viagem", Center: *recife, RadiusMeters: 1500}}, []string{"restaurant"})
			require.NoError(t, err)
			assert.Equal(t, 0, out.Inserted)
			assert.Equal(t, 1, out.Skipped)

			all, err := store.Search(ctx, catalog.Query{Text: "sushi"})
			require.NoError(t, err)
			assert.Len(t, all, 1, "one record per physical place")
		})
	}
}

func TestSearchLinkConflictKeepsStoredRecord(t *testing.T) {
	store := &linkConflictStore{MemoryStore: catalog.NewMemoryStore()}
	f := newFixture(t, store, types.CatalogRecord{Name: "Sushi Yama", Address: "Rua X", Location: &types.GeoPoint{Lat: -8.1189, Lng: -34.8998}})

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Rua X", resp.Results[0].Address)
	assert.Empty(t, resp.Results[0].ExternalID)
	assert.Equal(t, 1, store.reconciles)
}

// linkConflictStore rejects every reconcile as if another row held the
// external ID.
type linkConflictStore struct {
	*catalog.MemoryStore
	reconciles int
}

func (s *linkConflictStore) Reconcile(context.Context, string, types.CatalogRecord) (types.CatalogRecord, error) {
	s.reconciles++
	return types.CatalogRecord{}, fmt.Errorf("reconciling record: %w", catalog.ErrConflict)
}

func TestSearchResolvesUnlistedNameVariantWithoutProvider(t *testing.T) {
	f := newFixture(t, nil, types.CatalogRecord{ExternalID: "c1", Name: "Restaurante Costa", Address: "Rua C", Location: recife})

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "Costa Restaurante"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "c1", resp.Results[0].ExternalID)
	assert.Zero(t, f.gw.calls())
}

func TestSearchReconcilesPlaceholder(t *testing.T) {
	f := newFixture(t, nil, types.CatalogRecord{Name: "Sushi Yama"})

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi yama"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 1, f.gw.calls())

	got, err := f.store.FindByExternalID(context.Background(), "p123")
	require.NoError(t, err)
	assert.Equal(t, "Av. Boa Viagem, 1000", got.Address)
	assert.False(t, got.IsPlaceholder())
}

func TestSearchInactiveResolvedRecordNotListed(t *testing.T) {
	f := newFixture(t, nil, types.CatalogRecord{ExternalID: "p123", Name: "Sushi Yama (fechado)"})
	rec, err := f.store.FindByExternalID(context.Background(), "p123")
	require.NoError(t, err)
	require.NoError(t, f.store.SetActive(rec.ID, false))

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi yama"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 1, f.store.Len())
}

// flakyStore fails inserts until allowed.
type flakyStore struct {
	*catalog.MemoryStore
	failInsert bool
	failSearch bool
}

func (s *flakyStore) Insert(ctx context.Context, rec types.CatalogRecord) (types.CatalogRecord, error) {
	if s.failInsert {
		return types.CatalogRecord{}, fmt.Errorf("insert: %w", catalog.ErrUnavailable)
	}
	return s.MemoryStore.Insert(ctx, rec)
}

func (s *flakyStore) Search(ctx context.Context, q catalog.Query) ([]types.CatalogRecord, error) {
	if s.failSearch {
		return nil, fmt.Errorf("search: %w", catalog.ErrUnavailable)
	}
	return s.MemoryStore.Search(ctx, q)
}

func TestSearchInsertFailureYieldsPlaceholderThenPersists(t *testing.T) {
	fs := &flakyStore{MemoryStore: catalog.NewMemoryStore(), failInsert: true}
	f := newFixture(t, fs)
	sess := session.New(0)

	resp, err := f.orch.Search(context.Background(), sess, Request{Query: "sushi yama"})
	require.NoError(t, err)
	assert.Equal(t, FallbackPlaceholder, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Results[0].ID)
	assert.Equal(t, "p123", resp.Results[0].ExternalID)

	fs.failInsert = false
	resp, err = f.orch.Search(context.Background(), sess, Request{Query: "sushi yama"})
	require.NoError(t, err)
	assert.Equal(t, FallbackCached, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.NotEmpty(t, resp.Results[0].ID, "placeholder re-persisted on next encounter")
	assert.Equal(t, 1, fs.Len())
	assert.Equal(t, 1, f.gw.calls())
}

func TestSearchInsertConflictUsesStoredRow(t *testing.T) {
	mem := catalog.NewMemoryStore()
	cs := &conflictStore{MemoryStore: mem}
	f := newFixture(t, cs)

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi yama"})
	require.NoError(t, err)
	assert.Equal(t, FallbackExisting, resp.Fallback)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "racer", resp.Results[0].ID)
}

// conflictStore simulates a concurrent writer inserting the same place
// between the resolver lookup and the insert.
type conflictStore struct {
	*catalog.MemoryStore
}

func (s *conflictStore) Insert(ctx context.Context, rec types.CatalogRecord) (types.CatalogRecord, error) {
	rec.ID = "racer"
	if _, err := s.MemoryStore.Insert(ctx, rec); err != nil {
		return types.CatalogRecord{}, err
	}
	return types.CatalogRecord{}, fmt.Errorf("insert: %w", catalog.ErrConflict)
}

func TestSearchStoreFailureIsSurfaced(t *testing.T) {
	fs := &flakyStore{MemoryStore: catalog.NewMemoryStore(), failSearch: true}
	f := newFixture(t, fs)

	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi"})
	require.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Zero(t, f.gw.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SearchFailures))
}

func TestSearchProviderTimeout(t *testing.T) {
	f := newFixture(t, nil, localSushi()...)
	f.gw.delay = time.Second
	f.orch.cfg.FallbackTimeout = 20 * time.Millisecond

	start := time.Now()
	resp, err := f.orch.Search(context.Background(), session.New(0), Request{Query: "sushi"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, FallbackFailed, resp.Fallback)
	assert.Len(t, resp.Results, 2)
}

func TestSearchWithoutLocationOmitsDistance(t *testing.T) {
	f := newFixture(t, nil, localSushi()...)
	f.orch.cfg.FallbackThreshold = 1

	resp, err := f.orch.Search(context.Background(), nil, Request{Query: "sushi"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Nil(t, r.DistanceKm)
		assert.Empty(t, r.Distance)
	}
}

func TestSearchPagination(t *testing.T) {
	var local []types.CatalogRecord
	for i := 0; i < 5; i++ {
		local = append(local, types.CatalogRecord{Name: fmt.Sprintf("Pizzaria %d", i)})
	}
	f := newFixture(t, nil, local...)

	resp, err := f.orch.Search(context.Background(), nil, Request{Query: "pizzaria", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Page)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Pizzaria 2", resp.Results[0].Name)
}

// --- listed ---

func TestListed(t *testing.T) {
	local := []types.CatalogRecord{{ID: "1", ExternalID: "e1", Name: "Sushi Express"}}
	tests := []struct {
		name string
		rec  types.CatalogRecord
		want bool
	}{
		{"same id", types.CatalogRecord{ID: "1", Name: "x"}, true},
		{"same external id", types.CatalogRecord{ExternalID: "e1", Name: "x"}, true},
		{"fuzzy name", types.CatalogRecord{Name: "sushi express ltda"}, true},
		{"new", types.CatalogRecord{ID: "2", ExternalID: "e2", Name: "Sushi Yama"}, false},
		{"empty ids do not match", types.CatalogRecord{Name: "Pizzaria"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listed(local, tt.rec))
		})
	}
}

// --- formatting ---

func TestFormatTable(t *testing.T) {
	r := 4.7
	d := 0.35
	resp := Response{
		Page:     1,
		Fallback: FallbackCreated,
		Results: []types.SearchResult{{
			CatalogRecord: types.CatalogRecord{Name: "Sushi Yama", Neighborhood: "Boa Viagem", CuisineTypes: []string{"Japonesa"}, Rating: &r, PriceLevel: 3},
			DistanceKm:    &d,
			Distance:      "350m",
		}},
	}
	var buf bytes.Buffer
	FormatTable(resp, &buf)
	out := buf.String()
	assert.Contains(t, out, "Sushi Yama")
	assert.Contains(t, out, "$$$")
	assert.Contains(t, out, "350m")
	assert.Contains(t, out, "provider fallback: created")

	buf.Reset()
	FormatTable(Response{}, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(Response{Page: 1, Fallback: FallbackNone, Results: []types.SearchResult{}}, &buf))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "none", got["fallback"])
	assert.Equal(t, []any{}, got["results"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Açaí", truncate("Açaí", 10))
	assert.Equal(t, "Restaur...", truncate("Restaurante São João", 10))
}
