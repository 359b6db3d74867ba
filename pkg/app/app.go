// Package app builds the Loomi services from configuration.
package app

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	config "loomi-api/configs"
	"loomi-api/pkg/pricing"
	"loomi-api/pkg/router"
	"loomi-api/pkg/services"
)

const (
	backendTimeout   = 5 * time.Second
	redisPingTimeout = 3 * time.Second
	qdrantRetries    = 5
	qdrantRetryDelay = 2 * time.Second
)

// App holds the domain services and the connections they own.
type App struct {
	Config   *config.Config
	Services router.Services

	closers []func() error
}

// SetupLogging configures the global zerolog logger and the gin mode.
// Development uses a human readable console writer, other environments log JSON.
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	gin.SetMode(gin.ReleaseMode)
}

// New builds the services. Optional backends (language model, Redis, Qdrant)
// that are not configured or not reachable are logged and left out.
// pricingMonitoring receives the pricing outcome counters and may be nil.
func New(ctx context.Context, cfg *config.Config, pricingMonitoring *services.MonitoringService) (*App, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	prompt, err := config.LoadAssistantPrompt(cfg.AssistantPromptFile)
	if err != nil {
		return nil, errors.Wrap(err, "load assistant prompt")
	}

	a := &App{Config: cfg}

	calculator := pricing.NewCalculator(pricing.NewSimulatedFactors(nil, nil, cfg.PricingLocation()))
	a.Services.Pricing = services.NewPricingService(calculator, catalog.MarketCategories, cfg.BulkPricingConcurrency, pricingMonitoring)
	a.Services.SupplyChain = services.NewSupplyChainService(catalog)

	client, err := services.NewLLMClient(cfg)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.LLMProvider).Msg("language model disabled, chat only answers built-in commands")
		client = nil
	}

	model := cfg.OpenAIModel
	if cfg.LLMProvider == services.ProviderAzure {
		model = cfg.AzureOpenAIChatDeploymentName
	}
	assistant := services.NewAssistantService(client, prompt, catalog, model, cfg.LLMTimeout)
	assistant.WithUserContext(a.userContextSource(ctx))

	if cfg.QdrantURL != "" {
		if client == nil {
			log.Warn().Msg("conversation memory needs a language model for embeddings, skipping Qdrant")
		} else if store := a.conversationStore(ctx, client); store != nil {
			assistant.WithMemory(store)
		}
	}
	a.Services.Assistant = assistant

	log.Info().
		Str("environment", cfg.Environment).
		Str("llm_provider", cfg.LLMProvider).
		Bool("llm_enabled", client != nil).
		Str("pricing_timezone", cfg.PricingLocation().String()).
		Msg("services initialized")
	return a, nil
}

func (a *App) userContextSource(ctx context.Context) services.UserContextSource {
	var source services.UserContextSource = services.NewBackendClient(a.Config.BackendURL, backendTimeout)
	if a.Config.RedisAddr == "" {
		return source
	}

	cache := services.NewRedisContextCache(a.Config.RedisAddr, a.Config.RedisPassword, a.Config.UserContextTTL)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", a.Config.RedisAddr).Msg("redis unavailable, user context is not cached")
		_ = cache.Close()
		return source
	}

	log.Info().Str("addr", a.Config.RedisAddr).Dur("ttl", a.Config.UserContextTTL).Msg("user context cache enabled")
	a.closers = append(a.closers, cache.Close)
	return services.NewCachedUserContext(source, cache)
}

func (a *App) conversationStore(ctx context.Context, embedder services.Embedder) *services.ConversationStore {
	store, err := services.NewConversationStore(embedder, a.Config.QdrantURL, a.Config.QdrantAPIKey, a.Config.EmbeddingDimensions)
	if err != nil {
		log.Warn().Err(err).Msg("conversation memory disabled")
		return nil
	}
	if err := store.EnsureCollection(ctx, qdrantRetries, qdrantRetryDelay); err != nil {
		log.Warn().Err(err).Msg("conversation memory disabled")
		_ = store.Close()
		return nil
	}
	a.closers = append(a.closers, store.Close)
	return store
}

// Close waits for background conversation saves and releases connections.
func (a *App) Close() {
	if a.Services.Assistant != nil {
		a.Services.Assistant.Wait()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("failed to close connection")
		}
	}
	a.closers = nil
}
