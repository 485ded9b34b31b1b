// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/httputil"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/metrics"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// DefaultBaseURL is the Google Places web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

const (
	maxPhotos      = 5
	photoMaxWidth  = 800
	detailsFields  = "place_id,name,formatted_address,geometry,formatted_phone_number,international_phone_number,website,url,opening_hours,photos,types,address_components,rating,user_ratings_total,price_level"
	defaultRadius  = 5000
	defaultLang    = "pt-BR"
	defaultRegion  = "br"
	defaultTimeout = 10 * time.Second
)

// PlacesClient implements Gateway against the Google Places web service.
type PlacesClient struct {
	client  *http.Client
	cfg     types.ProviderConfig
	log     *zap.Logger
	metrics *metrics.Registry
}

// NewPlacesClient returns a client configured from cfg. A nil logger
// disables logging; a nil metrics registry disables instrumentation.
func NewPlacesClient(cfg types.ProviderConfig, log *zap.Logger, m *metrics.Registry) *PlacesClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Language == "" {
		cfg.Language = defaultLang
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.TextSearchRadius <= 0 {
		cfg.TextSearchRadius = defaultRadius
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlacesClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		log:     log.Named("provider"),
		metrics: m,
	}
}

// SearchText returns the first text-search hit for query.
func (c *PlacesClient) SearchText(ctx context.Context, query string, bias *types.GeoPoint) (Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, ErrNotFound
	}
	params := url.Values{
		"query": {query},
		"type":  {"restaurant"},
	}
	if bias != nil {
		params.Set("location", formatLatLng(*bias))
		params.Set("radius", strconv.Itoa(c.cfg.TextSearchRadius))
	}

	var resp placesListResponse
	if err := c.get(ctx, "textsearch", params, &resp); err != nil {
		return Place{}, err
	}
	if len(resp.Results) == 0 {
		return Place{}, ErrNotFound
	}
	return resp.Results[0].toPlace(), nil
}

// FetchDetails returns the full record for externalID.
func (c *PlacesClient) FetchDetails(ctx context.Context, externalID string) (Details, error) {
	if externalID == "" {
		return Details{}, ErrNotFound
	}
	params := url.Values{
		"place_id": {externalID},
		"fields":   {detailsFields},
	}

	var resp placesDetailsResponse
	if err := c.get(ctx, "details", params, &resp); err != nil {
		return Details{}, err
	}

	r := resp.Result
	d := Details{
		Place:        r.toPlace(),
		Phone:        r.InternationalPhone,
		Website:      r.Website,
		MapsURL:      r.URL,
		OpeningHours: r.OpeningHours.WeekdayText,
	}
	if d.Phone == "" {
		d.Phone = r.FormattedPhone
	}
	if d.ExternalID == "" {
		d.ExternalID = externalID
	}
	for _, ph := range r.Photos {
		if len(d.PhotoURLs) == maxPhotos {
			break
		}
		d.PhotoURLs = append(d.PhotoURLs, c.photoURL(ph.PhotoReference))
	}
	for _, ac := range r.AddressComponents {
		d.Components = append(d.Components, AddressComponent{
			LongName:  ac.LongName,
			ShortName: ac.ShortName,
			Types:     ac.Types,
		})
	}
	return d, nil
}

// SearchNearby returns every nearby-search hit of category around center.
// Only the first result page is read.
func (c *PlacesClient) SearchNearby(ctx context.Context, center types.GeoPoint, radiusMeters int, category string) ([]Place, error) {
	if radiusMeters <= 0 {
		radiusMeters = c.cfg.TextSearchRadius
	}
	params := url.Values{
		"location": {formatLatLng(center)},
		"radius":   {strconv.Itoa(radiusMeters)},
	}
	if category != "" {
		params.Set("type", category)
	}

	var resp placesListResponse
	err := c.get(ctx, "nearbysearch", params, &resp)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, r.toPlace())
	}
	return places, nil
}

// get issues one GET against endpoint and decodes the JSON envelope into
// out, mapping provider statuses onto ErrNotFound and ErrUnavailable.
func (c *PlacesClient) get(ctx context.Context, endpoint string, params url.Values, out statusCarrier) (err error) {
	start := time.Now()
	defer func() {
		c.observe(endpoint, start, err)
	}()

	params.Set("key", c.cfg.APIKey)
	params.Set("language", c.cfg.Language)
	if endpoint != "details" {
		params.Set("region", c.cfg.Region)
	}
	reqURL := c.cfg.BaseURL + "/" + endpoint + "/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.cfg.MaxRetries, c.log)
	if err != nil {
		return fmt.Errorf("places %s request: %w: %w", endpoint, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("places %s returned HTTP %d: %w", endpoint, resp.StatusCode, ErrUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing places %s response: %w: %w", endpoint, ErrUnavailable, err)
	}

	status, msg := out.status()
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return ErrNotFound
	default:
		return fmt.Errorf("places %s status %s %s: %w", endpoint, status, msg, ErrUnavailable)
	}
}

func (c *PlacesClient) observe(endpoint string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
		c.log.Warn("provider call failed", zap.String("op", endpoint), zap.Error(err))
	}
	if c.metrics != nil {
		c.metrics.ProviderCalls.WithLabelValues(endpoint, result).Inc()
		c.metrics.ProviderLatency.Observe(time.Since(start).Seconds())
	}
}

func (c *PlacesClient) photoURL(ref string) string {
	params := url.Values{
		"maxwidth":        {strconv.Itoa(photoMaxWidth)},
		"photo_reference": {ref},
		"key":             {c.cfg.APIKey},
	}
	return c.cfg.BaseURL + "/photo?" + params.Encode()
}

func formatLatLng(p types.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

func (r placesResult) toPlace() Place {
	p := Place{
		ExternalID:  r.PlaceID,
		Name:        r.Name,
		Address:     r.FormattedAddress,
		Rating:      r.Rating,
		ReviewCount: r.UserRatingsTotal,
		PriceLevel:  r.PriceLevel,
		OpenNow:     types.OpenStateOf(r.OpeningHours.OpenNow),
		Types:       r.Types,
	}
	if p.Address == "" {
		p.Address = r.Vicinity
	}
	if r.Geometry != nil {
		loc := types.GeoPoint{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng}
		p.Location = &loc
	}
	return p
}

// Google Places JSON structures.
type statusCarrier interface {
	status() (string, string)
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (e *envelope) status() (string, string) { return e.Status, e.ErrorMessage }

type placesListResponse struct {
	envelope
	Results []placesResult `json:"results"`
}

type placesDetailsResponse struct {
	envelope
	Result placesResult `json:"result"`
}

type placesResult struct {
	PlaceID            string                   `json:"place_id"`
	Name               string                   `json:"name"`
	FormattedAddress   string                   `json:"formatted_address"`
	Vicinity           string                   `json:"vicinity"`
	Geometry           *placesGeometry          `json:"geometry"`
	Rating             *float64                 `json:"rating"`
	UserRatingsTotal   int                      `json:"user_ratings_total"`
	PriceLevel         int                      `json:"price_level"`
	Types              []string                 `json:"types"`
	FormattedPhone     string                   `json:"formatted_phone_number"`
	InternationalPhone string                   `json:"international_phone_number"`
	Website            string                   `json:"website"`
	URL                string                   `json:"url"`
	OpeningHours       placesOpeningHours       `json:"opening_hours"`
	Photos             []placesPhoto            `json:"photos"`
	AddressComponents  []placesAddressComponent `json:"address_components"`
}

type placesGeometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type placesOpeningHours struct {
	OpenNow     *bool    `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

type placesPhoto struct {
	PhotoReference string `json:"photo_reference"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type placesAddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}
