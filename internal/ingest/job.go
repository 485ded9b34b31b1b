// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest sweeps a fixed grid of cells and place categories
// through the provider's nearby search and inserts the places the
// catalog does not know yet. Runs are idempotent: known external ids are
// loaded once up front and every insert is recorded in that set.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/catalog"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/provider"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/ratelimit"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const (
	defaultMinRating      = 4.0
	defaultMinReviewCount = 10
	defaultDetailDelay    = 200 * time.Millisecond
	defaultSweepDelay     = 2 * time.Second
)

// Job runs ingestion sweeps. A Job may be reused across runs but must
// not run concurrently with itself.
type Job struct {
	store   catalog.Store
	gateway provider.Gateway
	cfg     types.IngestionConfig
	log     *zap.Logger
	metrics *metrics.Registry

	detailLimiter ratelimit.Limiter
	sweepLimiter  ratelimit.Limiter
}

// New returns a Job. Zero quality gates and delays take defaults; a
// negative delay disables that pacing. DetailBurst detail fetches may
// run back to back before DetailDelay applies.
func New(store catalog.Store, gw provider.Gateway, cfg types.IngestionConfig, log *zap.Logger, m *metrics.Registry) *Job {
	if cfg.MinRating == 0 {
		cfg.MinRating = defaultMinRating
	}
	if cfg.MinReviewCount == 0 {
		cfg.MinReviewCount = defaultMinReviewCount
	}
	if cfg.DetailDelay == 0 {
		cfg.DetailDelay = defaultDetailDelay
	}
	if cfg.SweepDelay == 0 {
		cfg.SweepDelay = defaultSweepDelay
	}
	if cfg.DetailBurst < 1 {
		cfg.DetailBurst = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Job{
		store:         store,
		gateway:       gw,
		cfg:           cfg,
		log:           log.Named("ingest"),
		metrics:       m,
		detailLimiter: ratelimit.Burst(cfg.DetailDelay, cfg.DetailBurst),
		sweepLimiter:  ratelimit.Every(cfg.SweepDelay),
	}
}

// runState is owned by a single Run and discarded when it returns.
type runState struct {
	known map[string]struct{}
	seen  map[string]bool
	out   *types.IngestionOutcome
}

// Run sweeps every (cell, category) pair in order and returns the
// aggregated outcome. Per-candidate failures are recorded in the outcome
// and never abort the run. Cancelling ctx stops the run between sweeps;
// the partial outcome is returned, marked Interrupted, with ctx's error.
func (j *Job) Run(ctx context.Context, cells []types.Cell, categories []string) (types.IngestionOutcome, error) {
	out := types.IngestionOutcome{StartedAt: time.Now().UTC()}
	defer j.record(&out)

	known, err := j.store.ListExternalIDs(ctx)
	if err != nil {
		out.FinishedAt = time.Now().UTC()
		return out, fmt.Errorf("listing known places: %w", err)
	}
	j.log.Info("ingestion started",
		zap.Int("cells", len(cells)),
		zap.Int("categories", len(categories)),
		zap.Int("known", len(known)))

	st := &runState{known: known, seen: make(map[string]bool), out: &out}
	for _, cell := range cells {
		for _, category := range categories {
			if err := j.sweepLimiter.Wait(ctx); err != nil {
				return j.interrupted(ctx, &out, err)
			}
			if ctx.Err() != nil {
				return j.interrupted(ctx, &out, ctx.Err())
			}
			j.sweep(ctx, st, cell, category)
		}
	}
	if ctx.Err() != nil {
		return j.interrupted(ctx, &out, ctx.Err())
	}

	out.FinishedAt = time.Now().UTC()
	j.log.Info("ingestion finished",
		zap.Int("inserted", out.Inserted),
		zap.Int("skipped", out.Skipped),
		zap.Int("updated", out.Updated),
		zap.Int("filtered", out.Filtered),
		zap.Int("errors", len(out.Errors)),
		zap.Duration("elapsed", out.FinishedAt.Sub(out.StartedAt)))
	return out, nil
}

func (j *Job) interrupted(ctx context.Context, out *types.IngestionOutcome, err error) (types.IngestionOutcome, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	out.Interrupted = true
	out.FinishedAt = time.Now().UTC()
	j.log.Warn("ingestion interrupted",
		zap.Int("inserted", out.Inserted),
		zap.Int("skipped", out.Skipped),
		zap.Error(err))
	return *out, err
}

// sweep processes one (cell, category) nearby search.
func (j *Job) sweep(ctx context.Context, st *runState, cell types.Cell, category string) {
	label := cell.Name + "/" + category
	places, err := j.gateway.SearchNearby(ctx, cell.Center, cell.RadiusMeters, category)
	if err != nil {
		if ctx.Err() == nil {
			st.out.AddError(label, err)
		}
		return
	}
	j.log.Debug("sweep", zap.String("sweep", label), zap.Int("places", len(places)))

	for _, p := range places {
		if p.ExternalID == "" || st.seen[p.ExternalID] {
			continue
		}
		st.seen[p.ExternalID] = true

		if !j.passes(p) {
			st.out.Filtered++
			continue
		}
		if _, ok := st.known[p.ExternalID]; ok {
			st.out.Skipped++
			if j.cfg.RefreshExisting {
				j.refresh(ctx, st, p)
			}
			continue
		}

		if err := j.detailLimiter.Wait(ctx); err != nil {
			return
		}
		j.insert(ctx, st, cell, p)
	}
}

// passes applies the quality gates to a nearby-search candidate.
func (j *Job) passes(p provider.Place) bool {
	return p.Rating != nil && *p.Rating >= j.cfg.MinRating && p.ReviewCount >= j.cfg.MinReviewCount
}

func (j *Job) insert(ctx context.Context, st *runState, cell types.Cell, p provider.Place) {
	details, err := j.gateway.FetchDetails(ctx, p.ExternalID)
	if err != nil {
		if ctx.Err() == nil {
			st.out.AddError("details "+p.ExternalID, err)
		}
		return
	}

	rec := provider.ToRecord(details, cell.City)
	if rec.ExternalID == "" {
		rec.ExternalID = p.ExternalID
	}
	if _, err := j.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			// Another writer stored it; it is known from now on.
			st.known[p.ExternalID] = struct{}{}
			j.log.Warn("insert conflict", zap.String("external_id", p.ExternalID), zap.String("name", rec.Name))
		}
		st.out.AddError("insert "+p.ExternalID, err)
		return
	}
	st.known[p.ExternalID] = struct{}{}
	st.out.Inserted++
	j.log.Debug("inserted", zap.String("external_id", p.ExternalID), zap.String("name", rec.Name))
}

func (j *Job) refresh(ctx context.Context, st *runState, p provider.Place) {
	if err := j.store.Refresh(ctx, p.ExternalID, p.Live()); err != nil {
		st.out.AddError("refresh "+p.ExternalID, err)
		return
	}
	st.out.Updated++
}

func (j *Job) record(out *types.IngestionOutcome) {
	if j.metrics == nil {
		return
	}
	j.metrics.IngestRuns.Inc()
	j.metrics.IngestInserted.Add(float64(out.Inserted))
	j.metrics.IngestSkipped.Add(float64(out.Skipped))
	j.metrics.IngestUpdated.Add(float64(out.Updated))
	j.metrics.IngestFiltered.Add(float64(out.Filtered))
	j.metrics.IngestErrors.Add(float64(len(out.Errors)))
}
