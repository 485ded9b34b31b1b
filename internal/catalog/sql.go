// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/normalize"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

// dialect captures the differences between the SQL backends.
type dialect interface {
	placeholder(n int) string
	like() string
	schema() []string
	isConflict(err error) bool
}

// sqlStore implements Store over database/sql.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

const recordColumns = `id, external_id, name, address, city, neighborhood,
	latitude, longitude, phone, website, maps_url, photo_url,
	cuisine_types, price_level, rating, review_count, opening_hours,
	open_now, is_active, created_at, updated_at`

func (s *sqlStore) createSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) FindByExternalID(ctx context.Context, externalID string) (types.CatalogRecord, error) {
	if externalID == "" {
		return types.CatalogRecord{}, ErrNotFound
	}
	b := s.builder()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM restaurants WHERE external_id = `+b.arg(externalID),
		b.args...)
	rec, err := scanRecord(row)
	if err != nil {
		return types.CatalogRecord{}, s.classify("finding by external id", err)
	}
	return rec, nil
}

func (s *sqlStore) findByID(ctx context.Context, id string) (types.CatalogRecord, error) {
	b := s.builder()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM restaurants WHERE id = `+b.arg(id),
		b.args...)
	rec, err := scanRecord(row)
	if err != nil {
		return types.CatalogRecord{}, s.classify("finding by id", err)
	}
	return rec, nil
}

func (s *sqlStore) FindByNameLike(ctx context.Context, pattern string, limit int) ([]types.CatalogRecord, error) {
	norm := normalize.Name(pattern)
	if norm == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	b := s.builder()
	query := `SELECT ` + recordColumns + ` FROM restaurants
		WHERE is_active AND name_normalized LIKE ` + b.arg("%"+norm+"%") + `
		ORDER BY (name_normalized = ` + b.arg(norm) + `) DESC, review_count DESC, id
		LIMIT ` + b.arg(limit)
	return s.queryRecords(ctx, "finding by name", query, b.args)
}

func (s *sqlStore) ListExternalIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id FROM restaurants WHERE external_id IS NOT NULL`)
	if err != nil {
		return nil, s.classify("listing external ids", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.classify("scanning external id", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify("listing external ids", err)
	}
	return ids, nil
}

func (s *sqlStore) Insert(ctx context.Context, rec types.CatalogRecord) (types.CatalogRecord, error) {
	if strings.TrimSpace(rec.Name) == "" {
		return types.CatalogRecord{}, fmt.Errorf("inserting record: name is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
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

	cuisines, _ := json.Marshal(rec.CuisineTypes)
	var hours any
	if rec.OpeningHours != nil {
		h, _ := json.Marshal(rec.OpeningHours)
		hours = string(h)
	}
	var lat, lng any
	if rec.Location != nil {
		lat, lng = rec.Location.Lat, rec.Location.Lng
	}

	b := s.builder()
	stmt := `INSERT INTO restaurants (id, external_id, name, name_normalized, address, city,
			neighborhood, latitude, longitude, phone, website, maps_url, photo_url,
			cuisine_types, cuisine_normalized, price_level, rating, review_count,
			opening_hours, open_now, is_active, created_at, updated_at)
		VALUES (` + strings.Join([]string{
		b.arg(rec.ID), b.arg(nullString(rec.ExternalID)), b.arg(rec.Name), b.arg(normalize.Name(rec.Name)),
		b.arg(rec.Address), b.arg(rec.City), b.arg(rec.Neighborhood), b.arg(lat), b.arg(lng),
		b.arg(rec.Phone), b.arg(rec.Website), b.arg(rec.MapsURL), b.arg(rec.PhotoURL),
		b.arg(string(cuisines)), b.arg(cuisineKey(rec.CuisineTypes)),
		b.arg(nullInt(rec.PriceLevel)), b.arg(nullFloat(rec.Rating)),
		b.arg(rec.ReviewCount), b.arg(hours), b.arg(string(rec.OpenNow)), b.arg(rec.IsActive),
		b.arg(formatTime(rec.CreatedAt)), b.arg(formatTime(rec.UpdatedAt)),
	}, ", ") + `)`

	if _, err := s.db.ExecContext(ctx, stmt, b.args...); err != nil {
		return types.CatalogRecord{}, s.classify("inserting record", err)
	}
	return rec, nil
}

func (s *sqlStore) Search(ctx context.Context, q Query) ([]types.CatalogRecord, error) {
	query, args := buildSearch(s.d, q)
	return s.queryRecords(ctx, "searching catalog", query, args)
}

func (s *sqlStore) Refresh(ctx context.Context, externalID string, live types.LiveAttributes) error {
	var hours any
	if live.OpeningHours != nil {
		h, _ := json.Marshal(live.OpeningHours)
		hours = string(h)
	}
	open := live.OpenNow
	if open == "" {
		open = types.OpenUnknown
	}

	b := s.builder()
	stmt := `UPDATE restaurants SET
			rating = ` + b.arg(nullFloat(live.Rating)) + `,
			review_count = ` + b.arg(live.ReviewCount) + `,
			open_now = ` + b.arg(string(open)) + `,
			opening_hours = COALESCE(` + b.arg(hours) + `, opening_hours),
			updated_at = ` + b.arg(formatTime(time.Now().UTC())) + `
		WHERE external_id = ` + b.arg(externalID)

	res, err := s.db.ExecContext(ctx, stmt, b.args...)
	if err != nil {
		return s.classify("refreshing record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.classify("refreshing record", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) Reconcile(ctx context.Context, id string, rec types.CatalogRecord) (types.CatalogRecord, error) {
	var lat, lng any
	if rec.Location != nil {
		lat, lng = rec.Location.Lat, rec.Location.Lng
	}
	var hours any
	if rec.OpeningHours != nil {
		h, _ := json.Marshal(rec.OpeningHours)
		hours = string(h)
	}
	var cuisines, cuisinesKey any
	if len(rec.CuisineTypes) > 0 {
		c, _ := json.Marshal(rec.CuisineTypes)
		cuisines = string(c)
		cuisinesKey = cuisineKey(rec.CuisineTypes)
	}

	b := s.builder()
	fill := func(col string, v string) string {
		return col + ` = CASE WHEN ` + col + ` = '' THEN ` + b.arg(v) + ` ELSE ` + col + ` END`
	}
	sets := []string{
		`external_id = COALESCE(external_id, ` + b.arg(nullString(rec.ExternalID)) + `)`,
		fill("address", rec.Address),
		fill("city", rec.City),
		fill("neighborhood", rec.Neighborhood),
		`latitude = COALESCE(latitude, ` + b.arg(lat) + `)`,
		`longitude = COALESCE(longitude, ` + b.arg(lng) + `)`,
		fill("phone", rec.Phone),
		fill("website", rec.Website),
		fill("maps_url", rec.MapsURL),
		fill("photo_url", rec.PhotoURL),
		`cuisine_types = CASE WHEN cuisine_types = '[]' THEN COALESCE(` + b.arg(cuisines) + `, cuisine_types) ELSE cuisine_types END`,
		`cuisine_normalized = CASE WHEN cuisine_types = '[]' THEN COALESCE(` + b.arg(cuisinesKey) + `, cuisine_normalized) ELSE cuisine_normalized END`,
		`price_level = COALESCE(price_level, ` + b.arg(nullInt(rec.PriceLevel)) + `)`,
		`rating = COALESCE(rating, ` + b.arg(nullFloat(rec.Rating)) + `)`,
		`opening_hours = COALESCE(opening_hours, ` + b.arg(hours) + `)`,
		`updated_at = ` + b.arg(formatTime(time.Now().UTC())),
	}
	stmt := `UPDATE restaurants SET ` + strings.Join(sets, ",\n\t\t\t") + ` WHERE id = ` + b.arg(id)

	res, err := s.db.ExecContext(ctx, stmt, b.args...)
	if err != nil {
		return types.CatalogRecord{}, s.classify("reconciling record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return types.CatalogRecord{}, ErrNotFound
	}
	return s.findByID(ctx, id)
}

func (s *sqlStore) queryRecords(ctx context.Context, op, query string, args []any) ([]types.CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.classify(op, err)
	}
	defer rows.Close()

	var out []types.CatalogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, s.classify(op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(op, err)
	}
	return out, nil
}

// classify maps driver errors onto the package's sentinel errors.
func (s *sqlStore) classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case s.d.isConflict(err):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.CatalogRecord, error) {
	var (
		rec                  types.CatalogRecord
		externalID, hours    sql.NullString
		lat, lng, rating     sql.NullFloat64
		priceLevel           sql.NullInt64
		cuisines, openNow    string
		createdAt, updatedAt string
	)
	err := row.Scan(&rec.ID, &externalID, &rec.Name, &rec.Address, &rec.City, &rec.Neighborhood,
		&lat, &lng, &rec.Phone, &rec.Website, &rec.MapsURL, &rec.PhotoURL,
		&cuisines, &priceLevel, &rating, &rec.ReviewCount, &hours,
		&openNow, &rec.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return types.CatalogRecord{}, err
	}

	rec.ExternalID = externalID.String
	if lat.Valid && lng.Valid {
		rec.Location = &types.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if rating.Valid {
		r := rating.Float64
		rec.Rating = &r
	}
	if priceLevel.Valid {
		rec.PriceLevel = int(priceLevel.Int64)
	}
	rec.CuisineTypes = []string{}
	_ = json.Unmarshal([]byte(cuisines), &rec.CuisineTypes)
	if hours.Valid {
		_ = json.Unmarshal([]byte(hours.String), &rec.OpeningHours)
	}
	rec.OpenNow = types.OpenState(openNow)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}

// builder accumulates positional arguments and renders their placeholders.
type builder struct {
	d    dialect
	args []any
}

func (s *sqlStore) builder() *builder { return &builder{d: s.d} }

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

// buildSearch renders the paginated search query for q.
func buildSearch(d dialect, q Query) (string, []any) {
	b := &builder{d: d}
	var conds []string
	conds = append(conds, "is_active")

	text := strings.TrimSpace(q.Text)
	norm := normalize.Name(text)
	if norm != "" {
		conds = append(conds, fmt.Sprintf("(name_normalized LIKE %s OR neighborhood %s %s)",
			b.arg("%"+norm+"%"), d.like(), b.arg("%"+text+"%")))
	}

	if c := normalize.Name(q.Filters.Cuisine); c != "" {
		conds = append(conds, fmt.Sprintf("cuisine_normalized LIKE %s", b.arg("%|"+c+"|%")))
	}
	if q.Filters.MaxPriceLevel > 0 {
		conds = append(conds, "price_level IS NOT NULL AND price_level <= "+b.arg(q.Filters.MaxPriceLevel))
	}
	if q.Filters.MinRating > 0 {
		conds = append(conds, "rating IS NOT NULL AND rating >= "+b.arg(q.Filters.MinRating))
	}

	var order []string
	switch q.sortKey() {
	case SortDistance:
		// Equirectangular approximation; exact for ordering at city scale.
		cos := math.Cos(q.Near.Lat * math.Pi / 180)
		order = append(order, "(latitude IS NULL)",
			fmt.Sprintf("((latitude - %s) * (latitude - %s) + ((longitude - %s) * %s) * ((longitude - %s) * %s))",
				b.arg(q.Near.Lat), b.arg(q.Near.Lat), b.arg(q.Near.Lng), b.arg(cos), b.arg(q.Near.Lng), b.arg(cos)))
	case SortRating:
		order = append(order, "(rating IS NULL)", "rating DESC", "review_count DESC")
	case SortPrice:
		order = append(order, "(price_level IS NULL)", "price_level ASC", "(rating IS NULL)", "rating DESC")
	default:
		if norm != "" {
			order = append(order, fmt.Sprintf("CASE WHEN name_normalized = %s THEN 0 WHEN name_normalized LIKE %s THEN 1 ELSE 2 END",
				b.arg(norm), b.arg(norm+"%")))
		}
		order = append(order, "(rating IS NULL)", "rating DESC", "review_count DESC")
	}
	order = append(order, "name", "id")

	query := `SELECT ` + recordColumns + ` FROM restaurants
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ` + strings.Join(order, ", ") + `
		LIMIT ` + b.arg(q.limit()) + ` OFFSET ` + b.arg(q.offset())
	return query, b.args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// cuisineKey folds cuisine labels into the form stored in
// cuisine_normalized: "|arabe|frutos do mar|". Filters match one whole
// label, ignoring case and accents.
func cuisineKey(cuisines []string) string {
	if len(cuisines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('|')
	for _, c := range cuisines {
		if n := normalize.Name(c); n != "" {
			b.WriteString(n)
			b.WriteByte('|')
		}
	}
	return b.String()
}
