package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	AI        AIConfig
	Search    SearchConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Statics  string
	Storages string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB Name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type AIConfig struct {
	ProviderOrder   []string
	OpenAIModel     string
	GeminiModel     string
	OpenRouterModel string
	RequestTimeout  time.Duration
	MaxImageBytes   int64
	MaxImageEdge    int
}

type SearchConfig struct {
	MaxResults     int
	RequestTimeout time.Duration
	RankingEnabled bool
}

// CachePolicyConfig is one namespace's TTL and size cap.
type CachePolicyConfig struct {
	TTL     time.Duration
	MaxSize int
}

type CacheConfig struct {
	Text   CachePolicyConfig
	Media  CachePolicyConfig
	Search CachePolicyConfig
}

// RateBudgetConfig is one operation's request budget per window.
type RateBudgetConfig struct {
	MaxRequests int
	Window      time.Duration
}

type RateLimitConfig struct {
	Verification RateBudgetConfig
	Search       RateBudgetConfig
	Auth         RateBudgetConfig
}

type APIKeysConfig struct {
	OpenAI     string
	Gemini     string
	OpenRouter string
}

// APIKeys is kept out of the Config struct so the struct can be dumped
// into logs or the settings endpoint without leaking secrets.
var APIKeys APIKeysConfig

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	var basicAuth []string
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Statics:  getEnv("PATH_STATICS", "statics"),
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "truthlens.db")),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "truthlens:"),
	}

	aiCfg := AIConfig{
		ProviderOrder:   splitList(getEnv("AI_PROVIDER_ORDER", "openai,gemini,openrouter")),
		OpenAIModel:     getEnv("OPENAI_MODEL", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", ""),
		OpenRouterModel: getEnv("OPENROUTER_MODEL", ""),
		RequestTimeout:  getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
		MaxImageBytes:   getEnvInt64("AI_MAX_IMAGE_BYTES", 4*1024*1024),
		MaxImageEdge:    getEnvInt("AI_MAX_IMAGE_EDGE", 1568),
	}

	searchCfg := SearchConfig{
		MaxResults:     getEnvInt("SEARCH_MAX_RESULTS", 8),
		RequestTimeout: getEnvDuration("SEARCH_REQUEST_TIMEOUT", 15*time.Second),
		RankingEnabled: getEnvBool("SEARCH_RANKING_ENABLED", false),
	}

	cacheCfg := CacheConfig{
		Text: CachePolicyConfig{
			TTL:     getEnvDuration("CACHE_TEXT_TTL", 24*time.Hour),
			MaxSize: getEnvInt("CACHE_TEXT_MAX_SIZE", 100),
		},
		Media: CachePolicyConfig{
			TTL:     getEnvDuration("CACHE_MEDIA_TTL", 7*24*time.Hour),
			MaxSize: getEnvInt("CACHE_MEDIA_MAX_SIZE", 50),
		},
		Search: CachePolicyConfig{
			TTL:     getEnvDuration("CACHE_SEARCH_TTL", 6*time.Hour),
			MaxSize: getEnvInt("CACHE_SEARCH_MAX_SIZE", 50),
		},
	}

	rateCfg := RateLimitConfig{
		Verification: RateBudgetConfig{
			MaxRequests: getEnvInt("RATE_VERIFICATION_MAX", 10),
			Window:      getEnvDuration("RATE_VERIFICATION_WINDOW", time.Minute),
		},
		Search: RateBudgetConfig{
			MaxRequests: getEnvInt("RATE_SEARCH_MAX", 30),
			Window:      getEnvDuration("RATE_SEARCH_WINDOW", time.Minute),
		},
		Auth: RateBudgetConfig{
			MaxRequests: getEnvInt("RATE_AUTH_MAX", 5),
			Window:      getEnvDuration("RATE_AUTH_WINDOW", 5*time.Minute),
		},
	}

	APIKeys = APIKeysConfig{
		OpenAI:     getEnv("OPENAI_API_KEY", ""),
		Gemini:     getEnv("GEMINI_API_KEY", ""),
		OpenRouter: getEnv("OPENROUTER_API_KEY", ""),
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		AI:        aiCfg,
		Search:    searchCfg,
		Cache:     cacheCfg,
		RateLimit: rateCfg,
	}

	Global = cfg
	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
