package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for all services. Constructed once and
// passed into component constructors; nothing reads the environment directly.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Store & vector index
	DBURL         string `env:"DB_URL"`
	IndexProvider string `env:"INDEX_PROVIDER" envDefault:"postgres"` // "postgres" or "memory" (tests/dev)
	IndexName     string `env:"INDEX_NAME" envDefault:"lexvault"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"`
	QueueURL      string `env:"QUEUE_URL"`

	// Cache
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// LLM & embeddings
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	LLMModel       string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Retry policy for provider calls
	RetryAttempts  int `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseSecs  int `env:"RETRY_BASE_SECS" envDefault:"2"`
	RetryMaxSecs   int `env:"RETRY_MAX_SECS" envDefault:"10"`
	CallTimeoutSec int `env:"CALL_TIMEOUT_SECS" envDefault:"60"`

	// Chunking
	ChunkSize       int `env:"CHUNK_SIZE" envDefault:"1000"`   // characters per chunk
	ChunkOverlap    int `env:"CHUNK_OVERLAP" envDefault:"200"` // trailing words carried into the next chunk
	MaxContextChunk int `env:"MAX_CONTEXT_CHUNKS" envDefault:"10"`
	UpsertBatchSize int `env:"UPSERT_BATCH_SIZE" envDefault:"100"`

	// OCR. Both thresholds are heuristics; keep them adjustable per deployment.
	ScannedTextThreshold int    `env:"SCANNED_TEXT_THRESHOLD" envDefault:"100"` // chars of direct PDF text below which we OCR
	OCRMinRegions        int    `env:"OCR_MIN_REGIONS" envDefault:"5"`          // fewer recognized regions triggers the fallback engine
	OCRPrimaryCmd        string `env:"OCR_PRIMARY_CMD" envDefault:"tesseract"`
	OCRFallbackCmd       string `env:"OCR_FALLBACK_CMD"`
	OCRLanguages         string `env:"OCR_LANGUAGES" envDefault:"eng"`
	RasterizeCmd         string `env:"RASTERIZE_CMD" envDefault:"pdftoppm"`
	RasterizeDPI         int    `env:"RASTERIZE_DPI" envDefault:"300"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
