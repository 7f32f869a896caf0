package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/catalog-rag/config"
	"github.com/upb/catalog-rag/internal/observability"
	"github.com/upb/catalog-rag/repositories"
	"github.com/upb/catalog-rag/repositories/memory"
	"github.com/upb/catalog-rag/repositories/postgres"
	"github.com/upb/catalog-rag/repositories/sqlite"
	"github.com/upb/catalog-rag/services/embedding"
	"github.com/upb/catalog-rag/services/ingest"
	"github.com/upb/catalog-rag/services/pipeline"
	"github.com/upb/catalog-rag/services/providers"
	"github.com/upb/catalog-rag/services/providers/ollama"
	"github.com/upb/catalog-rag/services/providers/openai"
	"github.com/upb/catalog-rag/services/retrieval"
	"go.uber.org/zap"
)

// MetricsNamespace prefixes every exported Prometheus series
const MetricsNamespace = "catalog_rag"

// FragmentStore is a fragment repository that can report its health
type FragmentStore interface {
	repositories.FragmentRepository
	repositories.HealthChecker
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection; everything in it
// is built once and is safe for concurrent use afterwards.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Storage
	Store FragmentStore

	// Embeddings
	Embeddings *embedding.Service

	// Generation
	ProviderRegistry *providers.Registry
	Completer        *providers.Completer

	// Services
	Retriever *retrieval.Retriever
	Pipeline  *pipeline.Service
	Ingest    *ingest.Service
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(MetricsNamespace),
	}

	// Initialize the fragment store
	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize fragment store: %w", err)
	}

	// Initialize embedders
	if err := deps.initEmbeddings(cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	// Initialize provider registry and completer
	if err := deps.initProviders(cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	// Initialize retrieval, pipeline and ingestion
	if err := deps.initServices(cfg); err != nil {
		deps.closeStore()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("llm_provider", cfg.Generation.Provider),
		zap.String("llm_model", cfg.Generation.Model))
	return deps, nil
}

// initStore opens the configured fragment store
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.Storage.Database, d.Logger)
		if err != nil {
			return err
		}
		d.Store = store
		d.Logger.Info("database connection established",
			zap.String("connection", cfg.Storage.Database.LogString()))

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Store = store
		d.Logger.Info("sqlite store opened", zap.String("path", cfg.Storage.SQLitePath))

	case config.DriverMemory:
		d.Store = memory.NewFragmentRepository()
		d.Logger.Warn("using in-memory fragment store, data is lost on restart")

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return nil
}

// initEmbeddings builds the text and image-query embedders behind one cache
func (d *Dependencies) initEmbeddings(cfg *config.Config) error {
	text, err := embedding.NewClient(clientConfig(cfg.Embedding.Text))
	if err != nil {
		return fmt.Errorf("text embedder: %w", err)
	}
	image, err := embedding.NewClient(clientConfig(cfg.Embedding.Image))
	if err != nil {
		return fmt.Errorf("image embedder: %w", err)
	}

	cache := embedding.NewCache(cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL)
	d.Embeddings = embedding.NewService(text, image, cache)

	if cache != nil {
		embeddings := d.Embeddings
		err := d.Metrics.RegisterCache("query_embedding", func() (int, uint64, uint64) {
			stats := embeddings.CacheStats()
			return stats.Size, stats.Hits, stats.Misses
		})
		if err != nil {
			return err
		}
	}

	d.Logger.Info("embedders initialized",
		zap.String("text_model", text.Model()),
		zap.String("image_model", image.Model()),
		zap.Bool("cache", cache != nil))
	return nil
}

func clientConfig(e config.EmbedderConfig) embedding.ClientConfig {
	return embedding.ClientConfig{
		BaseURL:     e.BaseURL,
		APIKey:      e.APIKey,
		Model:       e.Model,
		Timeout:     e.Timeout,
		MaxAttempts: e.MaxAttempts,
		Dimensions:  e.Dimensions,
	}
}

// initProviders registers the configured generation provider and binds a completer to it
func (d *Dependencies) initProviders(cfg *config.Config) error {
	gen := cfg.Generation
	registry := providers.NewRegistry()

	providerCfg := providers.DefaultProviderConfig()
	providerCfg.Name = gen.Provider
	providerCfg.APIKey = gen.APIKey
	providerCfg.BaseURL = gen.BaseURL
	if gen.Timeout > 0 {
		providerCfg.Timeout = gen.Timeout
	}

	var provider providers.Provider
	switch gen.Provider {
	case config.ProviderOpenAI, config.ProviderGroq:
		provider = openai.NewOpenAIAdapter(providerCfg)
	case config.ProviderOllama:
		provider = ollama.NewAdapter(providerCfg)
	default:
		return fmt.Errorf("unknown llm provider %q", gen.Provider)
	}

	if err := registry.Register(provider); err != nil {
		return err
	}
	d.Logger.Info("registered LLM provider", zap.String("provider", provider.Name()))
	d.ProviderRegistry = registry

	backend, err := registry.Resolve(gen.Provider)
	if err != nil {
		return fmt.Errorf("resolve llm provider: %w", err)
	}
	d.Completer = providers.NewCompleter(backend, providers.CompleterConfig{
		Model:       gen.Model,
		Timeout:     gen.Timeout,
		MaxAttempts: gen.MaxAttempts,
		RetryDelay:  gen.RetryDelay,
	}, d.Logger)
	return nil
}

// initServices wires the retriever, the answer pipeline and the ingest service
func (d *Dependencies) initServices(cfg *config.Config) error {
	retriever, err := retrieval.NewRetriever(d.Store, d.Embeddings, d.Logger)
	if err != nil {
		return err
	}
	d.Retriever = retriever

	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.Temperature = cfg.Generation.Temperature
	pl, err := pipeline.NewService(retriever, d.Completer, pipelineCfg, d.Logger)
	if err != nil {
		return err
	}
	d.Pipeline = pl

	d.Ingest = ingest.NewService(d.Store, d.Embeddings.TextEmbedder(), ingest.PDFReader{}, d.Logger)
	return nil
}

func (d *Dependencies) closeStore() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close the fragment store
	if err := d.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close fragment store: %w", err))
	} else {
		d.Logger.Info("fragment store closed")
	}

	// Sync logger
	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
