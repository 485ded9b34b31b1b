// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search answers free-text restaurant queries from the local
// catalog and, when the catalog comes up short, resolves the query once
// per session through the external provider, deduplicating the result
// against the catalog before listing it.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/dedup"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/geo"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/normalize"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/provider"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/session"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const (
	defaultPageSize          = 20
	defaultMinQueryLength    = 3
	defaultFallbackThreshold = 3
	defaultFallbackTimeout   = 4 * time.Second
)

// FallbackOutcome records what the provider fallback did for one search.
type FallbackOutcome string

const (
	// FallbackNone means the search was not eligible for fallback.
	FallbackNone FallbackOutcome = "none"
	// FallbackSkipped means the query was already attempted this session
	// without a result.
	FallbackSkipped FallbackOutcome = "skipped"
	// FallbackCached means the session cache answered the query.
	FallbackCached FallbackOutcome = "cached"
	// FallbackExisting means the query resolved to a catalog record.
	FallbackExisting FallbackOutcome = "existing"
	// FallbackCreated means a new record was written to the catalog.
	FallbackCreated FallbackOutcome = "created"
	// FallbackPlaceholder means the provider place could not be stored
	// and is listed without a catalog ID until the next encounter.
	FallbackPlaceholder FallbackOutcome = "placeholder"
	// FallbackFailed means the provider had no match or was unavailable.
	FallbackFailed FallbackOutcome = "failed"
)

// Request is one search call.
type Request struct {
	Query   string
	Near    *types.GeoPoint
	Filters catalog.Filters
	Sort    catalog.Sort

	// Page is 1-based; zero means the first page.
	Page     int
	PageSize int

	// CityHint fills the city of provider places whose address lacks one.
	CityHint string
}

// Response is the outcome of one search call.
type Response struct {
	Results  []types.SearchResult `json:"results"`
	Page     int                  `json:"page"`
	Fallback FallbackOutcome      `json:"fallback"`
}

// Orchestrator runs searches against the catalog with provider fallback.
type Orchestrator struct {
	store    catalog.Store
	gateway  provider.Gateway
	resolver *dedup.Resolver
	cfg      types.SearchConfig
	log      *zap.Logger
	metrics  *metrics.Registry
}

// New returns an Orchestrator. Zero config values take defaults; log and
// m may be nil.
func New(store catalog.Store, gw provider.Gateway, resolver *dedup.Resolver, cfg types.SearchConfig, log *zap.Logger, m *metrics.Registry) *Orchestrator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = defaultMinQueryLength
	}
	if cfg.FallbackThreshold <= 0 {
		cfg.FallbackThreshold = defaultFallbackThreshold
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = defaultFallbackTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		gateway:  gw,
		resolver: resolver,
		cfg:      cfg,
		log:      log.Named("search"),
		metrics:  m,
	}
}

// Search runs req against the local catalog and, when eligible, the
// provider fallback. sess scopes the fallback cache to one user session;
// a nil sess gets a throwaway cache.
//
// A catalog failure on the local search is returned with an empty result
// set. Provider failures never fail the search.
func (o *Orchestrator) Search(ctx context.Context, sess *session.Cache, req Request) (Response, error) {
	if o.metrics != nil {
		o.metrics.Searches.Inc()
	}
	if sess == nil {
		sess = session.New(0)
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = o.cfg.PageSize
	}

	local, err := o.store.Search(ctx, catalog.Query{
		Text:    req.Query,
		Filters: req.Filters,
		Sort:    req.Sort,
		Near:    req.Near,
		Limit:   size,
		Offset:  (page - 1) * size,
	})
	if err != nil {
		if o.metrics != nil {
			o.metrics.SearchFailures.Inc()
		}
		return Response{Results: []types.SearchResult{}, Page: page, Fallback: FallbackNone},
			fmt.Errorf("searching catalog: %w", err)
	}

	outcome := FallbackNone
	if o.eligible(req, page, len(local)) {
		var rec *types.CatalogRecord
		rec, outcome = o.fallback(ctx, sess, req, local)
		if rec != nil && rec.IsActive && !listed(local, *rec) {
			local = append([]types.CatalogRecord{*rec}, local...)
		}
		if o.metrics != nil {
			o.metrics.Fallbacks.WithLabelValues(string(outcome)).Inc()
		}
		o.log.Debug("provider fallback",
			zap.String("query", req.Query),
			zap.String("outcome", string(outcome)))
	}

	return Response{
		Results:  annotate(local, req.Near),
		Page:     page,
		Fallback: outcome,
	}, nil
}

// eligible reports whether a search may consult the provider: a specific
// query, too few local results, the first page, and no filters.
func (o *Orchestrator) eligible(req Request, page, localCount int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(req.Query)) < o.cfg.MinQueryLength {
		return false
	}
	return localCount < o.cfg.FallbackThreshold && page == 1 && !req.Filters.Active()
}

// fallback resolves req.Query to a single record. The provider is called
// at most once per normalized query per session.
func (o *Orchestrator) fallback(ctx context.Context, sess *session.Cache, req Request, local []types.CatalogRecord) (*types.CatalogRecord, FallbackOutcome) {
	query := req.Query
	ctx, cancel := context.WithTimeout(ctx, o.cfg.FallbackTimeout)
	defer cancel()

	if rec, ok := sess.Get(query); ok {
		if rec.ID == "" {
			rec = o.repersist(ctx, sess, query, rec)
		}
		return &rec, FallbackCached
	}
	if sess.HasAttempted(query) {
		return nil, FallbackSkipped
	}
	defer sess.MarkAttempted(query)

	// A name match that is already listed adds nothing; ask the provider.
	existing, err := o.resolver.ResolveExisting(ctx, types.CatalogRecord{Name: query})
	if err != nil {
		o.log.Warn("resolving query against catalog", zap.String("query", query), zap.Error(err))
		return nil, FallbackFailed
	}
	if existing != nil && !listed(local, *existing) {
		sess.Put(query, *existing)
		return existing, FallbackExisting
	}

	place, err := o.gateway.SearchText(ctx, query, req.Near)
	if err != nil {
		o.logProviderError("text search", query, err)
		return nil, FallbackFailed
	}
	details, err := o.gateway.FetchDetails(ctx, place.ExternalID)
	if err != nil {
		o.logProviderError("fetch details", query, err)
		return nil, FallbackFailed
	}
	cand := provider.ToRecord(details, req.CityHint)

	existing, err = o.resolver.ResolveExisting(ctx, cand)
	if err != nil {
		o.log.Warn("resolving provider place", zap.String("external_id", cand.ExternalID), zap.Error(err))
		cand.ID = ""
		sess.Put(query, cand)
		return &cand, FallbackPlaceholder
	}
	if existing != nil {
		rec := o.reconcile(ctx, *existing, cand)
		sess.Put(query, rec)
		return &rec, FallbackExisting
	}

	rec, outcome := o.insert(ctx, cand)
	sess.Put(query, rec)
	return &rec, outcome
}

// insert writes cand to the catalog. A uniqueness conflict means another
// writer got there first and the stored row is used; any other failure
// yields a transient placeholder with no ID.
func (o *Orchestrator) insert(ctx context.Context, cand types.CatalogRecord) (types.CatalogRecord, FallbackOutcome) {
	rec, err := o.store.Insert(ctx, cand)
	if err == nil {
		return rec, FallbackCreated
	}
	if errors.Is(err, catalog.ErrConflict) {
		if stored, ferr := o.store.FindByExternalID(ctx, cand.ExternalID); ferr == nil {
			return stored, FallbackExisting
		}
	}
	o.log.Warn("storing provider place", zap.String("external_id", cand.ExternalID), zap.Error(err))
	cand.ID = ""
	return cand, FallbackPlaceholder
}

// repersist retries storing a cached transient placeholder.
func (o *Orchestrator) repersist(ctx context.Context, sess *session.Cache, query string, rec types.CatalogRecord) types.CatalogRecord {
	if existing, err := o.resolver.ResolveExisting(ctx, rec); err == nil && existing != nil {
		stored := o.reconcile(ctx, *existing, rec)
		sess.Put(query, stored)
		return stored
	}
	stored, outcome := o.insert(ctx, rec)
	if outcome != FallbackPlaceholder {
		sess.Put(query, stored)
	}
	return stored
}

// reconcile fills a stored record's empty fields from a detailed provider
// candidate. It runs for placeholders and for records not yet linked to a
// provider ID, so later ingestion sees the place as known. Complete,
// linked records are returned unchanged. Failures, including a conflict
// on the external ID, keep the stored record as is.
func (o *Orchestrator) reconcile(ctx context.Context, existing, cand types.CatalogRecord) types.CatalogRecord {
	if existing.ID == "" {
		return existing
	}
	unlinked := existing.ExternalID == "" && cand.ExternalID != ""
	if !existing.IsPlaceholder() && !unlinked {
		return existing
	}
	rec, err := o.store.Reconcile(ctx, existing.ID, cand)
	if err != nil {
		o.log.Warn("reconciling stored record",
			zap.String("id", existing.ID),
			zap.String("external_id", cand.ExternalID),
			zap.Error(err))
		return existing
	}
	return rec
}

func (o *Orchestrator) logProviderError(op, query string, err error) {
	if errors.Is(err, provider.ErrNotFound) {
		o.log.Debug("provider has no match", zap.String("op", op), zap.String("query", query))
		return
	}
	o.log.Warn("provider fallback failed", zap.String("op", op), zap.String("query", query), zap.Error(err))
}

// listed reports whether rec is already among recs by ID, external ID,
// or fuzzy name.
func listed(recs []types.CatalogRecord, rec types.CatalogRecord) bool {
	for _, r := range recs {
		if rec.ID != "" && r.ID == rec.ID {
			return true
		}
		if rec.ExternalID != "" && r.ExternalID == rec.ExternalID {
			return true
		}
		if normalize.SameName(r.Name, rec.Name) {
			return true
		}
	}
	return false
}

// annotate wraps recs as results, adding distances from near when known.
func annotate(recs []types.CatalogRecord, near *types.GeoPoint) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(recs))
	for _, r := range recs {
		res := types.SearchResult{CatalogRecord: r}
		if near != nil && r.Location != nil {
			d := geo.Between(*near, *r.Location)
			res.DistanceKm = &d
			res.Distance = geo.FormatDistance(d)
		}
		out = append(out, res)
	}
	return out
}
