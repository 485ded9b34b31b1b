// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/httputil"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*PlacesClient, *metrics.Registry) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = old })

	m := metrics.NewRegistry()
	c := NewPlacesClient(types.ProviderConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "fomi-test/1.0"},
		APIKey:     "test-key",
		BaseURL:    ts.URL,
	}, zaptest.NewLogger(t), m)
	return c, m
}

const textSearchBody = `{
  "status": "OK",
  "results": [
    {
      "place_id": "ChIJ-yama",
      "name": "Sushi Yama",
      "formatted_address": "Av. Boa Viagem, 1000 - Boa Viagem, Recife - PE",
      "geometry": {"location": {"lat": -8.1189, "lng": -34.8998}},
      "rating": 4.7,
      "user_ratings_total": 1520,
      "price_level": 3,
      "opening_hours": {"open_now": true},
      "types": ["japanese_restaurant", "restaurant", "food"]
    },
    {"place_id": "ChIJ-other", "name": "Sushi Outro"}
  ]
}`

// --- SearchText ---

func TestSearchTextRequestParams(t *testing.T) {
	var captured *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, textSearchBody)
	})

	bias := &types.GeoPoint{Lat: -8.05, Lng: -34.88}
	p, err := c.SearchText(context.Background(), " sushi yama ", bias)
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}

	if captured.URL.Path != "/textsearch/json" {
		t.Errorf("path = %q, want /textsearch/json", captured.URL.Path)
	}
	q := captured.URL.Query()
	for key, want := range map[string]string{
		"query":    "sushi yama",
		"key":      "test-key",
		"language": "pt-BR",
		"region":   "br",
		"location": "-8.050000,-34.880000",
		"radius":   "5000",
	} {
		if got := q.Get(key); got != want {
			t.Errorf("%s param = %q, want %q", key, got, want)
		}
	}
	if got := captured.Header.Get("User-Agent"); got != "fomi-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}

	if p.ExternalID != "ChIJ-yama" || p.Name != "Sushi Yama" {
		t.Errorf("place = %+v, want the first result", p)
	}
	if p.Location == nil || p.Location.Lat != -8.1189 {
		t.Errorf("location = %+v", p.Location)
	}
	if p.Rating == nil || *p.Rating != 4.7 || p.ReviewCount != 1520 {
		t.Errorf("rating = %v reviews = %d", p.Rating, p.ReviewCount)
	}
	if p.OpenNow != types.OpenYes {
		t.Errorf("open now = %q, want open", p.OpenNow)
	}
}

func TestSearchTextNoBiasOmitsLocation(t *testing.T) {
	var captured *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, textSearchBody)
	})

	if _, err := c.SearchText(context.Background(), "sushi", nil); err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if captured.URL.Query().Has("location") {
		t.Error("location param set without a bias point")
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"zero results", 200, `{"status":"ZERO_RESULTS","results":[]}`, ErrNotFound},
		{"not found", 200, `{"status":"NOT_FOUND"}`, ErrNotFound},
		{"ok but empty", 200, `{"status":"OK","results":[]}`, ErrNotFound},
		{"quota", 200, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`, ErrUnavailable},
		{"denied", 200, `{"status":"REQUEST_DENIED"}`, ErrUnavailable},
		{"server error", 500, `oops`, ErrUnavailable},
		{"bad json", 200, `{not json`, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.SearchText(context.Background(), "sushi", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	c := NewPlacesClient(types.ProviderConfig{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, err := c.SearchText(context.Background(), "sushi", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestRetriesThrottledResponses(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, textSearchBody)
	})

	if _, err := c.SearchText(context.Background(), "sushi", nil); err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestProviderMetrics(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "details") {
			fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
			return
		}
		fmt.Fprint(w, textSearchBody)
	})

	c.SearchText(context.Background(), "sushi", nil)
	c.FetchDetails(context.Background(), "missing")

	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("textsearch", "ok")); got != 1 {
		t.Errorf("textsearch ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ProviderCalls.WithLabelValues("details", "not_found")); got != 1 {
		t.Errorf("details not_found = %v, want 1", got)
	}
}

// --- FetchDetails ---

const detailsBody = `{
  "status": "OK",
  "result": {
    "place_id": "ChIJ-yama",
    "name": "Sushi Yama",
    "formatted_address": "Av. Boa Viagem, 1000 - Boa Viagem, Recife - PE, 51011-000",
    "geometry": {"location": {"lat": -8.1189, "lng": -34.8998}},
    "formatted_phone_number": "(81) 3333-4444",
    "international_phone_number": "+55 81 3333-4444",
    "website": "https://sushiyama.example",
    "url": "https://maps.google.com/?cid=1",
    "rating": 4.7,
    "user_ratings_total": 1520,
    "price_level": 3,
    "types": ["japanese_restaurant", "sushi_restaurant", "seafood_restaurant", "bar", "restaurant"],
    "opening_hours": {"open_now": false, "weekday_text": ["segunda-feira: 18:00–23:00"]},
    "photos": [
      {"photo_reference": "p1"}, {"photo_reference": "p2"}, {"photo_reference": "p3"},
      {"photo_reference": "p4"}, {"photo_reference": "p5"}, {"photo_reference": "p6"}
    ],
    "address_components": [
      {"long_name": "Boa Viagem", "short_name": "Boa Viagem", "types": ["sublocality_level_1", "sublocality", "political"]},
      {"long_name": "Recife", "short_name": "Recife", "types": ["administrative_area_level_2", "political"]},
      {"long_name": "Pernambuco", "short_name": "PE", "types": ["administrative_area_level_1", "political"]}
    ]
  }
}`

func TestFetchDetails(t *testing.T) {
	var captured *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, detailsBody)
	})

	d, err := c.FetchDetails(context.Background(), "ChIJ-yama")
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if captured.URL.Path != "/details/json" {
		t.Errorf("path = %q", captured.URL.Path)
	}
	if got := captured.URL.Query().Get("place_id"); got != "ChIJ-yama" {
		t.Errorf("place_id = %q", got)
	}

	if d.Phone != "+55 81 3333-4444" {
		t.Errorf("phone = %q, want the international number", d.Phone)
	}
	if len(d.PhotoURLs) != 5 {
		t.Errorf("photos = %d, want 5", len(d.PhotoURLs))
	}
	if !strings.HasPrefix(d.PhotoURLs[0], c.cfg.BaseURL+"/photo?") || !strings.Contains(d.PhotoURLs[0], "photo_reference=p1") {
		t.Errorf("photo url = %q", d.PhotoURLs[0])
	}
	if d.OpenNow != types.OpenNo {
		t.Errorf("open now = %q, want closed", d.OpenNow)
	}
	if len(d.Components) != 3 {
		t.Errorf("components = %d, want 3", len(d.Components))
	}
}

func TestFetchDetailsNotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"NOT_FOUND"}`)
	})
	if _, err := c.FetchDetails(context.Background(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := c.FetchDetails(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty id err = %v, want ErrNotFound", err)
	}
}

// --- SearchNearby ---

func TestSearchNearby(t *testing.T) {
	var captured *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, textSearchBody)
	})

	places, err := c.SearchNearby(context.Background(), types.GeoPoint{Lat: -8.12, Lng: -34.90}, 1500, "restaurant")
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("places = %d, want 2", len(places))
	}
	q := captured.URL.Query()
	if q.Get("radius") != "1500" || q.Get("type") != "restaurant" {
		t.Errorf("params = %v", q)
	}
	if places[1].Rating != nil || places[1].OpenNow != types.OpenUnknown {
		t.Errorf("second place = %+v, want absent rating and unknown open state", places[1])
	}
}

func TestSearchNearbyZeroResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})
	places, err := c.SearchNearby(context.Background(), types.GeoPoint{}, 1000, "bar")
	if err != nil {
		t.Fatalf("SearchNearby: %v", err)
	}
	if len(places) != 0 {
		t.Errorf("places = %d, want 0", len(places))
	}
}
