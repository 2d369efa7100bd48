package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	coreconfig "github.com/truthlens/truthlens/core/config"
	coreDB "github.com/truthlens/truthlens/core/database"
	domainHistory "github.com/truthlens/truthlens/domains/history"
	domainSearch "github.com/truthlens/truthlens/domains/search"
	domainVerification "github.com/truthlens/truthlens/domains/verification"
	infraValkey "github.com/truthlens/truthlens/infrastructure/valkey"
	"github.com/truthlens/truthlens/pkg/cachestore"
	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/pkg/retry"
	"github.com/truthlens/truthlens/pkg/utils"
	"github.com/truthlens/truthlens/usecase"
	"github.com/truthlens/truthlens/verifier"
	"github.com/truthlens/truthlens/verifier/providers"
)

var (
	// Infrastructure
	valkeyClient *infraValkey.Client

	// Caches, one per namespace
	textCache   *cachestore.Cache
	mediaCache  *cachestore.Cache
	searchCache *cachestore.Cache

	// Limiters, one per operation class
	verificationLimiter *ratelimit.Limiter
	searchLimiter       *ratelimit.Limiter
	authLimiter         *ratelimit.Limiter

	// Provider chain
	providerChain *verifier.Chain

	// Usecases
	searchUsecase       domainSearch.ISearchUsecase
	historyUsecase      domainHistory.IHistoryUsecase
	verificationUsecase domainVerification.IVerificationUsecase

	// Flag overrides
	flagPort      string
	flagDebug     bool
	flagBasicAuth []string
	flagBasePath  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "truthlens",
	Short: "AI-assisted news fact-checking service",
	Long: `TruthLens verifies news claims against web context using a chain of
AI providers with caching, rate limiting and graceful degradation.`,
}

func init() {
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&flagPort,
		"port", "p",
		"",
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&flagBasicAuth,
		"basic-auth", "b",
		nil,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagBasePath,
		"base-path", "",
		"",
		`base path for subpath deployment --base-path <string> | example: --base-path="/truthlens"`,
	)
}

func initApp() {
	cfg, err := coreconfig.LoadConfig()
	if err != nil {
		logrus.Fatalf("[APP] Failed to load configuration: %v", err)
	}

	// Flag and viper overrides on top of env config
	if flagPort != "" {
		cfg.App.Port = flagPort
	} else if v := viper.GetString("app_port"); v != "" {
		cfg.App.Port = v
	}
	if flagDebug || viper.GetBool("app_debug") {
		cfg.App.Debug = true
	}
	if len(flagBasicAuth) > 0 {
		cfg.App.BasicAuth = flagBasicAuth
	}
	if flagBasePath != "" {
		cfg.App.BasePath = flagBasePath
	}

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages, cfg.Paths.Statics); err != nil {
		logrus.Errorln(err)
	}

	cfg.App.ServerID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	// Cache backend: Valkey when enabled and reachable, in-memory otherwise.
	var backend cachestore.Backend
	if cfg.Database.ValkeyEnabled {
		valkeyClient, err = infraValkey.NewClient(infraValkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, falling back to in-memory cache")
		} else {
			backend = cachestore.NewValkeyBackend(valkeyClient)
			logrus.Info("[APP] Using Valkey cache backend")
		}
	}
	if backend == nil {
		backend = cachestore.NewMemoryBackend()
	}

	textCache = cachestore.New(backend, cachestore.Policy{
		Namespace: "text",
		TTL:       cfg.Cache.Text.TTL,
		MaxSize:   cfg.Cache.Text.MaxSize,
	})
	mediaCache = cachestore.New(backend, cachestore.Policy{
		Namespace: "media",
		TTL:       cfg.Cache.Media.TTL,
		MaxSize:   cfg.Cache.Media.MaxSize,
	})
	searchCache = cachestore.New(backend, cachestore.Policy{
		Namespace: "search",
		TTL:       cfg.Cache.Search.TTL,
		MaxSize:   cfg.Cache.Search.MaxSize,
	})

	verificationLimiter = ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.Verification.MaxRequests,
		Window:      cfg.RateLimit.Verification.Window,
		Message:     ratelimit.DefaultVerification.Message,
	})
	searchLimiter = ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.Search.MaxRequests,
		Window:      cfg.RateLimit.Search.Window,
		Message:     ratelimit.DefaultSearch.Message,
	})
	authLimiter = ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.RateLimit.Auth.MaxRequests,
		Window:      cfg.RateLimit.Auth.Window,
		Message:     ratelimit.DefaultAuth.Message,
	})

	providerChain = buildProviderChain(cfg)

	// Persistence
	db, err := coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("[APP] Failed to open database: %v", err)
	}
	historyUsecase, err = usecase.NewHistoryService(db)
	if err != nil {
		logrus.Fatalf("[APP] Failed to init history store: %v", err)
	}

	var ranker usecase.ResultRanker
	if cfg.Search.RankingEnabled {
		ranker = providerChain
	}
	searchUsecase = usecase.NewSearchService(searchCache, searchLimiter, ranker, cfg.Search.RequestTimeout, cfg.Search.MaxResults)

	verificationUsecase = usecase.NewVerificationService(usecase.VerificationDeps{
		Chain:        providerChain,
		Search:       searchUsecase,
		History:      historyUsecase,
		TextCache:    textCache,
		MediaCache:   mediaCache,
		Limiter:      verificationLimiter,
		MaxImageEdge: cfg.AI.MaxImageEdge,
	})

	logrus.WithFields(logrus.Fields{
		"providers": providerChain.Providers(),
		"server_id": cfg.App.ServerID,
	}).Info("[APP] TruthLens initialized")
}

// buildProviderChain constructs the fallback chain from the configured
// order. Deprecated names resolve to their canonical provider first, and
// providers without an API key are skipped with a warning.
func buildProviderChain(cfg *coreconfig.Config) *verifier.Chain {
	seen := make(map[string]bool)
	var list []verifier.Provider

	for _, name := range cfg.AI.ProviderOrder {
		resolved := verifier.ResolveAlias(strings.ToLower(strings.TrimSpace(name)))
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true

		switch resolved {
		case "openai":
			if coreconfig.APIKeys.OpenAI == "" {
				logrus.Warn("[APP] OPENAI_API_KEY not set, skipping openai provider")
				continue
			}
			list = append(list, providers.NewOpenAIProvider(coreconfig.APIKeys.OpenAI, cfg.AI.OpenAIModel))
		case "gemini":
			if coreconfig.APIKeys.Gemini == "" {
				logrus.Warn("[APP] GEMINI_API_KEY not set, skipping gemini provider")
				continue
			}
			list = append(list, providers.NewGeminiProvider(coreconfig.APIKeys.Gemini, cfg.AI.GeminiModel))
		case "openrouter":
			if coreconfig.APIKeys.OpenRouter == "" {
				logrus.Warn("[APP] OPENROUTER_API_KEY not set, skipping openrouter provider")
				continue
			}
			list = append(list, providers.NewOpenRouterProvider(coreconfig.APIKeys.OpenRouter, cfg.AI.OpenRouterModel))
		default:
			logrus.Warnf("[APP] Unknown AI provider %q in AI_PROVIDER_ORDER, skipping", name)
		}
	}

	policy := retry.DefaultPolicy()
	wrapper := func(ctx context.Context, provider string, call func(ctx context.Context) error) error {
		p := policy
		p.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
			logrus.WithError(err).WithFields(logrus.Fields{
				"provider": provider,
				"attempt":  attempt,
				"delay":    nextDelay.Round(time.Millisecond).String(),
			}).Warn("[RETRY] Provider call failed, backing off")
		}
		// Each attempt gets its own timeout; the retry loop itself only
		// ends on success, exhaustion, or the caller's context.
		return retry.Do(ctx, p, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, cfg.AI.RequestTimeout)
			defer cancel()
			return call(attemptCtx)
		})
	}

	return verifier.NewChain(list, verifier.WithCallWrapper(wrapper))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of external connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if valkeyClient != nil {
		valkeyClient.Close()
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
