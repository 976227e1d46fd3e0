package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/davidbz/promptlab/internal/analytics"
	"github.com/davidbz/promptlab/internal/config"
	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/export"
	"github.com/davidbz/promptlab/internal/history"
	historyredis "github.com/davidbz/promptlab/internal/history/redis"
	historysqlite "github.com/davidbz/promptlab/internal/history/sqlite"
	"github.com/davidbz/promptlab/internal/http"
	"github.com/davidbz/promptlab/internal/http/middleware"
	"github.com/davidbz/promptlab/internal/language"
	"github.com/davidbz/promptlab/internal/observability"
	"github.com/davidbz/promptlab/internal/provider/echo"
	"github.com/davidbz/promptlab/internal/provider/openai"
	"github.com/davidbz/promptlab/internal/provider/registry"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() domain.EventPublisher {
		return observability.NewEventBus()
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// OpenAI Provider
	if err := container.Provide(func(cfg *config.Config) (*openai.Provider, error) {
		if cfg.OpenAI.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}

		return openai.NewProvider(cfg.OpenAI)
	}); err != nil {
		log.Fatalf("Failed to provide OpenAI provider: %v", err)
	}

	// Echo Provider (always available, used for development and comparison smoke tests)
	if err := container.Provide(echo.NewProvider); err != nil {
		log.Fatalf("Failed to provide echo provider: %v", err)
	}

	// Register providers with registry (invoked for side effects)
	if err := container.Invoke(func(
		reg domain.ProviderRegistry,
		echoProvider *echo.Provider,
	) error {
		return reg.Register(context.Background(), echoProvider)
	}); err != nil {
		log.Fatalf("Failed to register echo provider: %v", err)
	}

	if err := container.Invoke(func(
		reg domain.ProviderRegistry,
		openaiProvider *openai.Provider,
	) error {
		return reg.Register(context.Background(), openaiProvider)
	}); err != nil {
		// Ignore ErrProviderNotConfigured as it's expected for optional providers
		if !errors.Is(err, ErrProviderNotConfigured) {
			log.Fatalf("Failed to register OpenAI provider: %v", err)
		}
	}

	// History
	if err := container.Provide(func(cfg *config.Config) (history.Storage, error) {
		switch cfg.History.Backend {
		case "redis":
			client := goredis.NewClient(&goredis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			return historyredis.NewStorage(client, cfg.History.RedisKey), nil
		case "sqlite":
			return historysqlite.Open(cfg.History.SQLitePath)
		case "memory":
			return history.NewMemoryStorage(), nil
		default:
			return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
		}
	}); err != nil {
		log.Fatalf("Failed to provide history storage: %v", err)
	}
	if err := container.Provide(history.NewStore); err != nil {
		log.Fatalf("Failed to provide history store: %v", err)
	}

	// Analytics (optional)
	if err := container.Provide(func(cfg *config.Config) (domain.AnalyticsSink, error) {
		if cfg.Analytics.BaseURL == "" {
			return nil, nil
		}
		return analytics.NewClient(cfg.Analytics)
	}); err != nil {
		log.Fatalf("Failed to provide analytics client: %v", err)
	}
	if err := container.Provide(func() domain.Scorer {
		return analytics.NewHeuristicScorer()
	}); err != nil {
		log.Fatalf("Failed to provide scorer: %v", err)
	}

	// Language detection (optional)
	if err := container.Provide(func(cfg *config.Config) (language.Detector, error) {
		if cfg.Language.BaseURL == "" {
			return nil, nil
		}
		return language.NewClient(cfg.Language)
	}); err != nil {
		log.Fatalf("Failed to provide language detector: %v", err)
	}

	// Export (renderer optional; markdown and HTML always work)
	if err := container.Provide(func(cfg *config.Config) (export.Renderer, error) {
		if cfg.Export.RendererURL == "" {
			return nil, nil
		}
		return export.NewHTTPRenderer(cfg.Export)
	}); err != nil {
		log.Fatalf("Failed to provide export renderer: %v", err)
	}
	if err := container.Provide(export.NewDispatcher); err != nil {
		log.Fatalf("Failed to provide export dispatcher: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewComparisonOrchestrator); err != nil {
		log.Fatalf("Failed to provide comparison orchestrator: %v", err)
	}
	if err := container.Provide(func(
		cfg *config.Config,
		reg domain.ProviderRegistry,
		sink domain.AnalyticsSink,
		store *history.Store,
		events domain.EventPublisher,
		detector language.Detector,
	) *http.SessionManager {
		return http.NewSessionManager(
			reg,
			sink,
			store,
			events,
			detector,
			time.Duration(cfg.Generation.Timeout)*time.Second,
			time.Duration(cfg.Language.DebounceMs)*time.Millisecond,
		)
	}); err != nil {
		log.Fatalf("Failed to provide session manager: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
