package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "fomi/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderConfig holds settings for the external place-data provider.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the Places web service.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the Places endpoint root (tests, proxies).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Language is the response language (default "pt-BR").
	Language string `json:"language" yaml:"language"`

	// Region biases results to a country code (default "br").
	Region string `json:"region" yaml:"region"`

	// MaxRetries bounds retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// TextSearchRadius is the location-bias radius in meters for text search (default 5000).
	TextSearchRadius int `json:"text_search_radius" yaml:"text_search_radius"`
}

// StoreDriver selects the catalog store implementation.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
	DriverMemory   StoreDriver = "memory"
)

// StoreConfig holds settings for the catalog store.
type StoreConfig struct {
	// Driver is sqlite, postgres, or memory.
	Driver StoreDriver `json:"driver" yaml:"driver"`

	// DSN is the SQLite file path or the Postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// MaxOpenConns limits pooled connections (Postgres only, default 10).
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`
}

// SearchConfig holds settings for the query orchestrator.
type SearchConfig struct {
	// PageSize is the number of local results per page (default 20).
	PageSize int `json:"page_size" yaml:"page_size"`

	// MinQueryLength is the shortest query eligible for provider fallback (default 3).
	MinQueryLength int `json:"min_query_length" yaml:"min_query_length"`

	// FallbackThreshold triggers fallback when local results are fewer (default 3).
	FallbackThreshold int `json:"fallback_threshold" yaml:"fallback_threshold"`

	// FallbackTimeout bounds the whole provider fallback path (default 4s).
	FallbackTimeout time.Duration `json:"fallback_timeout" yaml:"fallback_timeout"`

	// SessionCacheSize caps each session cache (default 256).
	SessionCacheSize int `json:"session_cache_size" yaml:"session_cache_size"`

	// SessionTTL evicts idle sessions from the server registry (default 30m).
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl"`
}

// DedupConfig holds settings for the dedup resolver.
type DedupConfig struct {
	// NameMatchLimit caps name-similarity candidates per lookup (default 10).
	NameMatchLimit int `json:"name_match_limit" yaml:"name_match_limit"`

	// MaxMatchDistanceKm rejects name matches whose coordinates are farther
	// apart than this (default 1.0). A negative value disables the check.
	MaxMatchDistanceKm float64 `json:"max_match_distance_km" yaml:"max_match_distance_km"`
}

// IngestionConfig holds settings for the ingestion batch job.
type IngestionConfig struct {
	// MinRating is the quality gate on provider rating (default 4.0).
	MinRating float64 `json:"min_rating" yaml:"min_rating"`

	// MinReviewCount is the quality gate on provider review count (default 10).
	MinReviewCount int `json:"min_review_count" yaml:"min_review_count"`

	// DetailDelay spaces consecutive detail fetches (default 200ms).
	DetailDelay time.Duration `json:"detail_delay" yaml:"detail_delay"`

	// DetailBurst is how many detail fetches may run back to back before
	// DetailDelay pacing applies (default 1).
	DetailBurst int `json:"detail_burst" yaml:"detail_burst"`

	// SweepDelay spaces consecutive (cell, category) sweeps (default 2s).
	SweepDelay time.Duration `json:"sweep_delay" yaml:"sweep_delay"`

	// RefreshExisting updates live attributes of already-known places.
	RefreshExisting bool `json:"refresh_existing" yaml:"refresh_existing"`

	// PlanFile is the YAML file listing cells and categories.
	PlanFile string `json:"plan_file,omitempty" yaml:"plan_file,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is json or console (default console).
	Format string `json:"format" yaml:"format"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":3003").
	Addr string `json:"addr" yaml:"addr"`

	// AllowedOrigins lists CORS origins.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// Config groups all component configurations.
type Config struct {
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Dedup     DedupConfig     `json:"dedup" yaml:"dedup"`
	Ingestion IngestionConfig `json:"ingestion" yaml:"ingestion"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Server    ServerConfig    `json:"server" yaml:"server"`
}
