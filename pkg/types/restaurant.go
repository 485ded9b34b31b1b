// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the catalog pipeline:
// the durable CatalogRecord, the per-query SearchResult, the per-run
// IngestionOutcome, and the configuration structs each stage reads.
package types

import "time"

// GeoPoint is a latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// OpenState is the tri-state open-now flag reported by the provider.
type OpenState string

const (
	OpenUnknown OpenState = "unknown"
	OpenYes     OpenState = "open"
	OpenNo      OpenState = "closed"
)

// OpenStateOf converts an optional provider boolean into an OpenState.
func OpenStateOf(open *bool) OpenState {
	switch {
	case open == nil:
		return OpenUnknown
	case *open:
		return OpenYes
	default:
		return OpenNo
	}
}

// CatalogRecord is the canonical restaurant entity.
//
// ExternalID, when set, identifies the same place at the provider and is
// unique across the catalog. Name is not unique: chains share names and
// are told apart by ExternalID or Location.
type CatalogRecord struct {
	// ID is the catalog-internal identifier. Empty for a transient
	// placeholder that could not be written to the store.
	ID string `json:"id" yaml:"id"`

	// ExternalID is the provider-side place identifier.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	Name         string `json:"name" yaml:"name"`
	Address      string `json:"address,omitempty" yaml:"address,omitempty"`
	City         string `json:"city,omitempty" yaml:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty" yaml:"neighborhood,omitempty"`

	// Location is nil when coordinates are unknown.
	Location *GeoPoint `json:"location,omitempty" yaml:"location,omitempty"`

	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Website  string `json:"website,omitempty" yaml:"website,omitempty"`
	MapsURL  string `json:"maps_url,omitempty" yaml:"maps_url,omitempty"`
	PhotoURL string `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`

	// CuisineTypes is ordered; ingestion populates at most three.
	CuisineTypes []string `json:"cuisine_types" yaml:"cuisine_types"`

	// PriceLevel is 1-4, or 0 when absent.
	PriceLevel int `json:"price_level,omitempty" yaml:"price_level,omitempty"`

	// Rating is 0-5, or nil when absent.
	Rating      *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount int      `json:"review_count" yaml:"review_count"`

	// OpeningHours holds one human-readable line per weekday; nil when absent.
	OpeningHours []string  `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"`
	OpenNow      OpenState `json:"open_now" yaml:"open_now"`

	// IsActive is the soft-delete flag owned by moderation.
	IsActive bool `json:"is_active" yaml:"is_active"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// IsPlaceholder reports whether the record lacks the address or
// coordinates a fully ingested record carries.
func (r CatalogRecord) IsPlaceholder() bool {
	return r.ID == "" || r.Address == "" || r.Location == nil
}

// LiveAttributes are the fields periodic re-ingestion may update on a
// record that already exists, keyed by ExternalID.
type LiveAttributes struct {
	Rating       *float64  `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount  int       `json:"review_count" yaml:"review_count"`
	OpenNow      OpenState `json:"open_now" yaml:"open_now"`
	OpeningHours []string  `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"`
}

// SearchResult is a CatalogRecord annotated with its distance from the
// caller. It is computed per query and never persisted or cached.
type SearchResult struct {
	CatalogRecord `yaml:",inline"`

	// DistanceKm is nil when no caller location was given or the record
	// has no coordinates.
	DistanceKm *float64 `json:"distance_km,omitempty" yaml:"distance_km,omitempty"`

	// Distance is DistanceKm formatted for display ("350m", "2.3km").
	Distance string `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// Cell is one geographic center point and radius swept by ingestion.
type Cell struct {
	Name         string   `json:"name" yaml:"name"`
	Center       GeoPoint `json:"center" yaml:"center"`
	RadiusMeters int      `json:"radius_meters" yaml:"radius_meters"`

	// City is the fallback city for places whose address lacks one.
	City string `json:"city,omitempty" yaml:"city,omitempty"`
}

// IngestionError records one non-fatal failure during an ingestion run.
type IngestionError struct {
	Context string `json:"context" yaml:"context"`
	Message string `json:"message" yaml:"message"`
}

// IngestionOutcome summarizes one ingestion run for the operator.
type IngestionOutcome struct {
	// Inserted counts new records written to the catalog.
	Inserted int `json:"inserted" yaml:"inserted"`

	// Skipped counts candidates already present in the catalog.
	Skipped int `json:"skipped" yaml:"skipped"`

	// Updated counts existing records whose live attributes were refreshed.
	Updated int `json:"updated" yaml:"updated"`

	// Filtered counts candidates rejected by the quality gates.
	Filtered int `json:"filtered" yaml:"filtered"`

	Errors []IngestionError `json:"errors,omitempty" yaml:"errors,omitempty"`

	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Interrupted bool      `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// AddError appends a non-fatal error to the outcome.
func (o *IngestionOutcome) AddError(context string, err error) {
	o.Errors = append(o.Errors, IngestionError{Context: context, Message: err.Error()})
}

// HasErrors reports whether any candidate failed.
func (o IngestionOutcome) HasErrors() bool {
	return len(o.Errors) > 0
}
