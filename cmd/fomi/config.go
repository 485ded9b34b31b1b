// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oponeoficial/fomibrasil.com.br-sub000/internal/secrets"
	"github.com/oponeoficial/fomibrasil.com.br-sub000/pkg/types"
)

const defaultUserAgent = "fomi/0.1"

// configure sets defaults for every key and maps FOMI_SECTION_KEY
// environment variables onto section.key.
func configure(v *viper.Viper) {
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.user_agent", defaultUserAgent)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.language", "pt-BR")
	v.SetDefault("provider.region", "br")
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.text_search_radius", 5000)

	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_open_conns", 10)

	v.SetDefault("search.page_size", 20)
	v.SetDefault("search.min_query_length", 3)
	v.SetDefault("search.fallback_threshold", 3)
	v.SetDefault("search.fallback_timeout", 4*time.Second)
	v.SetDefault("search.session_cache_size", 256)
	v.SetDefault("search.session_ttl", 30*time.Minute)

	v.SetDefault("dedup.name_match_limit", 10)
	v.SetDefault("dedup.max_match_distance_km", 1.0)

	v.SetDefault("ingestion.min_rating", 4.0)
	v.SetDefault("ingestion.min_review_count", 10)
	v.SetDefault("ingestion.detail_delay", 200*time.Millisecond)
	v.SetDefault("ingestion.detail_burst", 1)
	v.SetDefault("ingestion.sweep_delay", 2*time.Second)
	v.SetDefault("ingestion.refresh_existing", false)
	v.SetDefault("ingestion.plan_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":3003")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetEnvPrefix("FOMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig resolves the effective configuration from v.
func loadConfig(v *viper.Viper) types.Config {
	return types.Config{
		Provider: types.ProviderConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("provider.timeout"),
				UserAgent: v.GetString("provider.user_agent"),
			},
			APIKey:           v.GetString("provider.api_key"),
			BaseURL:          v.GetString("provider.base_url"),
			Language:         v.GetString("provider.language"),
			Region:           v.GetString("provider.region"),
			MaxRetries:       v.GetInt("provider.max_retries"),
			TextSearchRadius: v.GetInt("provider.text_search_radius"),
		},
		Store: types.StoreConfig{
			Driver:       types.StoreDriver(strings.ToLower(v.GetString("store.driver"))),
			DSN:          v.GetString("store.dsn"),
			MaxOpenConns: v.GetInt("store.max_open_conns"),
		},
		Search: types.SearchConfig{
			PageSize:          v.GetInt("search.page_size"),
			MinQueryLength:    v.GetInt("search.min_query_length"),
			FallbackThreshold: v.GetInt("search.fallback_threshold"),
			FallbackTimeout:   v.GetDuration("search.fallback_timeout"),
			SessionCacheSize:  v.GetInt("search.session_cache_size"),
			SessionTTL:        v.GetDuration("search.session_ttl"),
		},
		Dedup: types.DedupConfig{
			NameMatchLimit:     v.GetInt("dedup.name_match_limit"),
			MaxMatchDistanceKm: v.GetFloat64("dedup.max_match_distance_km"),
		},
		Ingestion: types.IngestionConfig{
			MinRating:       v.GetFloat64("ingestion.min_rating"),
			MinReviewCount:  v.GetInt("ingestion.min_review_count"),
			DetailDelay:     v.GetDuration("ingestion.detail_delay"),
			DetailBurst:     v.GetInt("ingestion.detail_burst"),
			SweepDelay:      v.GetDuration("ingestion.sweep_delay"),
			RefreshExisting: v.GetBool("ingestion.refresh_existing"),
			PlanFile:        v.GetString("ingestion.plan_file"),
		},
		Log: types.LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: types.ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
	}
}

// overlayEnvSecrets lets the conventional GOOGLE_PLACES_API_KEY and
// DATABASE_URL variables override secret files.
func overlayEnvSecrets(s map[string]string) {
	if v := os.Getenv("GOOGLE_PLACES_API_KEY"); v != "" {
		s[secrets.PlacesAPIKey] = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		s[secrets.DatabaseURL] = v
	}
}
