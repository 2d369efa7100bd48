package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetAllSettings returns a map of the dynamic settings currently loaded
// in memory. Secrets are intentionally absent.
func GetAllSettings() map[string]any {
	if Global == nil {
		return map[string]any{}
	}
	return map[string]any{
		"app_debug":               Global.App.Debug,
		"app_version":             Global.App.Version,
		"app_environment":         Global.App.Environment,
		"ai_provider_order":       Global.AI.ProviderOrder,
		"ai_request_timeout_ms":   Global.AI.RequestTimeout.Milliseconds(),
		"search_max_results":      Global.Search.MaxResults,
		"search_ranking_enabled":  Global.Search.RankingEnabled,
		"cache_text_ttl":          Global.Cache.Text.TTL.String(),
		"cache_media_ttl":         Global.Cache.Media.TTL.String(),
		"cache_search_ttl":        Global.Cache.Search.TTL.String(),
		"rate_verification_max":   Global.RateLimit.Verification.MaxRequests,
		"rate_search_max":         Global.RateLimit.Search.MaxRequests,
		"rate_auth_max":           Global.RateLimit.Auth.MaxRequests,
		"valkey_enabled":          Global.Database.ValkeyEnabled,
		"database_driver":         Global.Database.Driver,
	}
}

// Helpers
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		vLower := strings.ToLower(v)
		return vLower == "1" || vLower == "true" || vLower == "yes" || vLower == "on"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
