package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"lexvault/internal/cache"
	"lexvault/internal/config"
	"lexvault/internal/docstore"
	"lexvault/internal/embeddings"
	"lexvault/internal/extract"
	"lexvault/internal/llm"
	"lexvault/internal/logger"
	"lexvault/internal/ocr"
	"lexvault/internal/queue"
	"lexvault/internal/retry"
	"lexvault/internal/vecindex"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config    config.Config
	Log       *slog.Logger
	Docs      docstore.Store
	Index     vecindex.Index
	Queue     queue.Queue
	Cache     cache.Cache
	Embedder  embeddings.Embedder
	LLM       llm.Client
	Extractor *extract.Extractor
}

// Build loads env, config, and shared components for the named service.
func Build(service string) (Deps, error) {
	if err := godotenv.Load(); err != nil {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.ForService(cfg.LogLevel, service)
	policy := retryPolicy(cfg)

	docs, err := buildDocStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize document store: %w", err)
	}
	index, err := buildIndex(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	llmClient, err := buildLLM(cfg, log, policy)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log, policy)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return Deps{
		Config:    cfg,
		Log:       log,
		Docs:      docs,
		Index:     index,
		Queue:     q,
		Cache:     buildCache(cfg, log),
		Embedder:  embedder,
		LLM:       llmClient,
		Extractor: buildExtractor(cfg, log),
	}, nil
}

// retryPolicy is the provider-call retry policy shared by the LLM and
// embedding clients.
func retryPolicy(cfg config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseSecs) * time.Second,
		MaxDelay:    time.Duration(cfg.RetryMaxSecs) * time.Second,
	}
}

func buildDocStore(cfg config.Config, log *slog.Logger) (docstore.Store, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	db, err := docstore.NewPostgres(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("using Postgres document store")
	return db, nil
}

func buildIndex(cfg config.Config, log *slog.Logger) (vecindex.Index, error) {
	dim := embeddings.Dimension(cfg.EmbeddingModel)
	switch cfg.IndexProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when INDEX_PROVIDER=postgres")
		}
		idx, err := vecindex.NewPostgres(cfg.DBURL, cfg.IndexName, dim, cfg.UpsertBatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize pgvector index: %w", err)
		}
		log.Info("using pgvector index", "index", cfg.IndexName, "dimension", dim)
		return idx, nil
	case "memory":
		log.Warn("using in-memory vector index; data is lost on restart", "dimension", dim)
		return vecindex.NewMemory(dim), nil
	default:
		return nil, fmt.Errorf("invalid INDEX_PROVIDER: %s (valid options: postgres, memory)", cfg.IndexProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

// buildCache degrades to a no-op cache when Redis is absent or unreachable:
// caching is an optimization, not a dependency.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("no REDIS_ADDR configured, answer caching disabled")
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, answer caching disabled", "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis answer cache", "addr", cfg.RedisAddr)
	return c
}

func buildLLM(cfg config.Config, log *slog.Logger, policy retry.Policy) (llm.Client, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.LLMModel, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
	return client, nil
}

func buildEmbedder(cfg config.Config, log *slog.Logger, policy retry.Policy) (embeddings.Embedder, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
	}
	log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
	return embedder, nil
}

// buildExtractor wires OCR engines into the text extractor. A fallback
// engine is optional and only used when the primary result looks too thin.
func buildExtractor(cfg config.Config, log *slog.Logger) *extract.Extractor {
	primary := ocr.NewTesseract(cfg.OCRPrimaryCmd, cfg.OCRLanguages)
	var secondary ocr.Engine
	if cfg.OCRFallbackCmd != "" {
		secondary = ocr.NewTesseract(cfg.OCRFallbackCmd, cfg.OCRLanguages)
	}
	engine := ocr.NewFallback(primary, secondary, cfg.OCRMinRegions, log)
	raster := ocr.NewPopplerRasterizer(cfg.RasterizeCmd, cfg.RasterizeDPI)
	return extract.New(engine, raster, cfg.ScannedTextThreshold, log)
}
