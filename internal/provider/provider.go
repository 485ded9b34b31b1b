// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider is the boundary to the external place-data service:
// text search, per-place details, and nearby search around a point.
package provider

import (
	"context"
	"errors"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

var (
	// ErrNotFound means the provider answered but had no matching place.
	ErrNotFound = errors.New("provider: no matching place")

	// ErrUnavailable covers transport failures, non-2xx responses, quota
	// errors, and any provider status other than OK or not-found.
	ErrUnavailable = errors.New("provider: unavailable")
)

// Place is a search hit: enough to decide whether to fetch details.
type Place struct {
	ExternalID  string
	Name        string
	Address     string
	Location    *types.GeoPoint
	Rating      *float64
	ReviewCount int
	PriceLevel  int
	OpenNow     types.OpenState
	Types       []string
}

// AddressComponent is one structured piece of a formatted address.
type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

// Details is the full provider record for one place.
type Details struct {
	Place

	Phone        string
	Website      string
	MapsURL      string
	OpeningHours []string
	PhotoURLs    []string
	Components   []AddressComponent
}

// Live extracts the attributes re-ingestion may refresh on a known place.
func (p Place) Live() types.LiveAttributes {
	return types.LiveAttributes{
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		OpenNow:     p.OpenNow,
	}
}

// Gateway is implemented by place-data providers.
type Gateway interface {
	// SearchText returns the single best match for query, biased toward
	// bias when set, or ErrNotFound.
	SearchText(ctx context.Context, query string, bias *types.GeoPoint) (Place, error)

	// FetchDetails returns the full record for externalID, or ErrNotFound.
	FetchDetails(ctx context.Context, externalID string) (Details, error)

	// SearchNearby returns candidates of category within radiusMeters of center.
	SearchNearby(ctx context.Context, center types.GeoPoint, radiusMeters int, category string) ([]Place, error)
}
