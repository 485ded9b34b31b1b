// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus counters for the search fallback and
// ingestion paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a private Prometheus registry and the pipeline's collectors.
type Registry struct {
	reg *prometheus.Registry

	Searches        prometheus.Counter
	SearchFailures  prometheus.Counter
	Fallbacks       *prometheus.CounterVec
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency prometheus.Histogram

	IngestInserted prometheus.Counter
	IngestSkipped  prometheus.Counter
	IngestUpdated  prometheus.Counter
	IngestFiltered prometheus.Counter
	IngestErrors   prometheus.Counter
	IngestRuns     prometheus.Counter
}

// NewRegistry builds and registers all collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	searches := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_search_total"})
	searchFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_search_failures_total"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fomi_search_fallback_total",
		Help: "Provider fallback decisions by outcome.",
	}, []string{"outcome"})
	providerCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fomi_provider_calls_total",
		Help: "Provider calls by operation and result.",
	}, []string{"op", "result"})
	providerLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fomi_provider_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	inserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_inserted_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_skipped_total"})
	updated := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_updated_total"})
	filtered := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_filtered_total"})
	ingestErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_errors_total"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "fomi_ingest_runs_total"})

	r.MustRegister(searches, searchFailures, fallbacks, providerCalls, providerLatency,
		inserted, skipped, updated, filtered, ingestErrors, runs)

	return &Registry{
		reg:             r,
		Searches:        searches,
		SearchFailures:  searchFailures,
		Fallbacks:       fallbacks,
		ProviderCalls:   providerCalls,
		ProviderLatency: providerLatency,
		IngestInserted:  inserted,
		IngestSkipped:   skipped,
		IngestUpdated:   updated,
		IngestFiltered:  filtered,
		IngestErrors:    ingestErrors,
		IngestRuns:      runs,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
