package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargotrail/cargotrail/db"
	"github.com/cargotrail/cargotrail/internal/agent"
	"github.com/cargotrail/cargotrail/internal/config"
	"github.com/cargotrail/cargotrail/internal/fleet"
	"github.com/cargotrail/cargotrail/internal/knowledge"
	"github.com/cargotrail/cargotrail/internal/log"
	"github.com/cargotrail/cargotrail/internal/observability"
	"github.com/cargotrail/cargotrail/internal/session"
	"github.com/cargotrail/cargotrail/internal/tools"
)

// Setup creates and initializes the application. Call Close on the
// returned App to release resources. Setup does not ingest documents;
// entry points call Ingestor.EnsureCorpus (or IngestDirectory) so the
// ingest command controls what gets indexed.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelShutdown = provideTracing(ctx, cfg, logger)

	switch cfg.IndexBackend {
	case config.IndexMemory:
		a.Index = knowledge.NewMemoryIndex()
		a.Fleet = fleet.NewMemoryStore()
		logger.Info("using in-memory index and demo fleet data")
	default:
		pool, err := provideDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.Pool = pool
		a.Index = knowledge.NewPgIndex(pool, logger)
		a.Fleet = fleet.NewStore(pool, logger)
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	ingestor, err := knowledge.NewIngestor(a.Index, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestor: %w", err)
	}
	a.Ingestor = ingestor

	retrieval, err := knowledge.NewRetrieval(knowledge.RetrievalConfig{
		Genkit:      g,
		ModelName:   cfg.FullModelName(),
		Embedder:    embedder,
		Index:       a.Index,
		Logger:      logger,
		DefaultTopK: cfg.RetrievalTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating retrieval pipeline: %w", err)
	}
	a.Retrieval = retrieval

	registry := tools.NewRegistry(logger)
	logistics, err := tools.NewLogistics(a.Fleet, logger)
	if err != nil {
		return nil, fmt.Errorf("creating logistics tools: %w", err)
	}
	if err := tools.RegisterLogistics(registry, g, logistics); err != nil {
		return nil, fmt.Errorf("registering logistics tools: %w", err)
	}
	a.Registry = registry
	logger.Info("tools registered", "count", registry.Count())

	a.Sessions = session.NewStore(cfg.MaxHistoryMessages)

	ag, err := agent.New(agent.Config{
		Genkit:        g,
		ModelName:     cfg.FullModelName(),
		Sessions:      a.Sessions,
		Dispatcher:    registry,
		ToolRefs:      registry.Refs(g),
		Logger:        logger,
		MaxRoundTrips: cfg.MaxRoundTrips,
		Budget:        time.Duration(cfg.ChatBudgetSeconds) * time.Second,
		Temperature:   float64(cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	return a, nil
}

// provideTracing sets up Datadog tracing before Genkit initialization so
// the TracerProvider has its span processor registered when the first
// span starts.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func(context.Context) error {
	shutdown, err := observability.SetupDatadog(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without tracing", "error", err)
		return func(context.Context) error { return nil }
	}
	return shutdown
}

// provideDBPool runs migrations and creates the PostgreSQL connection
// pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("database pool ready",
		"host", cfg.PostgresHost, "database", cfg.PostgresDBName)
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no model auto-discovery; register explicitly.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit with openai provider", "model", cfg.ModelName)

	default:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Each provider registers embedders differently: ollama keys by
// server address, openai auto-registers at Init, gemini has a dedicated
// lookup helper.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
