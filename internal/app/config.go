package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/lexi-backend/internal/data/db"
	"github.com/yungbote/lexi-backend/internal/jobs/reindex"
	"github.com/yungbote/lexi-backend/internal/modules/documents"
	"github.com/yungbote/lexi-backend/internal/modules/ingestion"
	"github.com/yungbote/lexi-backend/internal/modules/retrieval"
	"github.com/yungbote/lexi-backend/internal/modules/vault"
	"github.com/yungbote/lexi-backend/internal/platform/envutil"
	"github.com/yungbote/lexi-backend/internal/platform/qdrant"
)

const configFileEnv = "LEXI_CONFIG"

const (
	VectorProviderQdrant = "qdrant"
	VectorProviderMemory = "memory"

	QueueMemory = "memory"
	QueueRedis  = "redis"
)

type Config struct {
	LogMode        string   `yaml:"log_mode"`
	Environment    string   `yaml:"environment"`
	HTTPAddr       string   `yaml:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	JWTSecretKey   string   `yaml:"jwt_secret_key"`
	MetricsEnabled bool     `yaml:"metrics_enabled"`

	Database  DatabaseConfig  `yaml:"database"`
	Cipher    CipherConfig    `yaml:"cipher"`
	Inference InferenceConfig `yaml:"inference"`
	Vector    VectorConfig    `yaml:"vector"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chat      ChatConfig      `yaml:"chat"`
	Reindex   ReindexConfig   `yaml:"reindex"`
	Otel      OtelConfig      `yaml:"otel"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// CipherConfig holds the vault key. The key is read from the environment only
// and is never logged.
type CipherConfig struct {
	Key       string `yaml:"-"`
	Algorithm string `yaml:"algorithm"`
}

type InferenceConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"-"`
	ChatModel        string        `yaml:"chat_model"`
	EmbedModel       string        `yaml:"embed_model"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	EmbedBatchSize   int           `yaml:"embed_batch_size"`
	EmbedConcurrency int           `yaml:"embed_concurrency"`
}

type VectorConfig struct {
	Provider   string        `yaml:"provider"`
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"-"`
	Collection string        `yaml:"collection"`
	VectorName string        `yaml:"vector_name"`
	Dim        int           `yaml:"dim"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type IngestionConfig struct {
	ChunkSize     int           `yaml:"chunk_size"`
	ChunkOverlap  int           `yaml:"chunk_overlap"`
	VerifyRetries int           `yaml:"verify_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

type ChatConfig struct {
	HistoryTurns int `yaml:"history_turns"`
}

type ReindexConfig struct {
	Queue         string        `yaml:"queue"`
	Workers       int           `yaml:"workers"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepMinAge   time.Duration `yaml:"sweep_min_age"`
	SweepBatch    int           `yaml:"sweep_batch"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	Headers     string  `yaml:"-"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func DefaultConfig() Config {
	return Config{
		LogMode:        "development",
		Environment:    "dev",
		HTTPAddr:       ":8080",
		MetricsEnabled: true,
		Database: DatabaseConfig{
			Driver:      db.DriverPostgres,
			AutoMigrate: true,
		},
		Cipher: CipherConfig{Algorithm: string(vault.AlgorithmAESGCM)},
		Inference: InferenceConfig{
			ChatModel:        "gpt-4o-mini",
			EmbedModel:       "text-embedding-3-small",
			Timeout:          60 * time.Second,
			MaxRetries:       3,
			EmbedBatchSize:   ingestion.DefaultEmbedBatchSize,
			EmbedConcurrency: ingestion.DefaultEmbedConcurrency,
		},
		Vector: VectorConfig{
			Provider:   VectorProviderQdrant,
			Collection: qdrant.DefaultCollection,
			VectorName: qdrant.DefaultVectorName,
			Timeout:    qdrant.DefaultTimeout,
			MaxRetries: qdrant.DefaultMaxRetries,
		},
		Ingestion: IngestionConfig{
			ChunkSize:     ingestion.DefaultChunkSize,
			ChunkOverlap:  ingestion.DefaultChunkOverlap,
			VerifyRetries: documents.DefaultVerifyRetries,
			RetryDelay:    documents.DefaultRetryDelay,
		},
		Retrieval: RetrievalConfig{TopK: retrieval.DefaultTopK},
		Chat:      ChatConfig{HistoryTurns: 6},
		Reindex: ReindexConfig{
			Queue:         QueueMemory,
			Workers:       2,
			JobTimeout:    2 * time.Minute,
			SweepInterval: reindex.DefaultSweepInterval,
			SweepMinAge:   time.Minute,
			SweepBatch:    reindex.DefaultSweepBatch,
			RedisKey:      reindex.DefaultRedisKey,
		},
		Otel: OtelConfig{
			ServiceName: "lexi",
			SampleRatio: 1,
		},
	}
}

// LoadConfig layers .env, defaults, the optional YAML file named by
// LEXI_CONFIG, and environment overrides, then validates the result.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)

	d := &cfg.Database
	d.Driver = strings.ToLower(envutil.String("DATABASE_DRIVER", d.Driver))
	d.DSN = envutil.String("DATABASE_DSN", d.DSN)
	d.MaxOpenConns = envutil.Int("DATABASE_MAX_OPEN_CONNS", d.MaxOpenConns)
	d.MaxIdleConns = envutil.Int("DATABASE_MAX_IDLE_CONNS", d.MaxIdleConns)
	d.AutoMigrate = envutil.Bool("DATABASE_AUTO_MIGRATE", d.AutoMigrate)

	cfg.Cipher.Key = envutil.String("LEXI_ENCRYPTION_KEY", cfg.Cipher.Key)
	cfg.Cipher.Algorithm = envutil.String("CIPHER_ALGORITHM", cfg.Cipher.Algorithm)

	in := &cfg.Inference
	in.BaseURL = envutil.String("INFERENCE_BASE_URL", in.BaseURL)
	in.APIKey = envutil.String("INFERENCE_API_KEY", envutil.String("OPENAI_API_KEY", in.APIKey))
	in.ChatModel = envutil.String("CHAT_MODEL", in.ChatModel)
	in.EmbedModel = envutil.String("EMBED_MODEL", in.EmbedModel)
	in.Timeout = envutil.Duration("INFERENCE_TIMEOUT", in.Timeout)
	in.MaxRetries = envutil.Int("INFERENCE_MAX_RETRIES", in.MaxRetries)
	in.EmbedBatchSize = envutil.Int("EMBED_BATCH_SIZE", in.EmbedBatchSize)
	in.EmbedConcurrency = envutil.Int("EMBED_CONCURRENCY", in.EmbedConcurrency)

	v := &cfg.Vector
	v.Provider = strings.ToLower(envutil.String("VECTOR_PROVIDER", v.Provider))
	v.URL = envutil.String("QDRANT_URL", v.URL)
	v.APIKey = envutil.String("QDRANT_API_KEY", v.APIKey)
	v.Collection = envutil.String("QDRANT_COLLECTION", v.Collection)
	v.VectorName = envutil.String("QDRANT_VECTOR_NAME", v.VectorName)
	v.Dim = envutil.Int("QDRANT_VECTOR_DIM", envutil.Int("VECTOR_DIM", v.Dim))
	v.Timeout = envutil.Duration("QDRANT_TIMEOUT", v.Timeout)
	v.MaxRetries = envutil.Int("QDRANT_MAX_RETRIES", v.MaxRetries)

	ing := &cfg.Ingestion
	ing.ChunkSize = envutil.Int("CHUNK_SIZE", ing.ChunkSize)
	ing.ChunkOverlap = envutil.Int("CHUNK_OVERLAP", ing.ChunkOverlap)
	ing.VerifyRetries = envutil.Int("VERIFY_RETRIES", ing.VerifyRetries)
	ing.RetryDelay = envutil.Duration("VERIFY_RETRY_DELAY", ing.RetryDelay)

	cfg.Retrieval.TopK = envutil.Int("RETRIEVAL_TOP_K", cfg.Retrieval.TopK)
	cfg.Retrieval.MinScore = envutil.Float("RETRIEVAL_MIN_SCORE", cfg.Retrieval.MinScore)
	cfg.Chat.HistoryTurns = envutil.Int("CHAT_HISTORY_TURNS", cfg.Chat.HistoryTurns)

	r := &cfg.Reindex
	r.Queue = strings.ToLower(envutil.String("REINDEX_QUEUE", r.Queue))
	r.Workers = envutil.Int("REINDEX_WORKERS", r.Workers)
	r.JobTimeout = envutil.Duration("REINDEX_JOB_TIMEOUT", r.JobTimeout)
	r.SweepInterval = envutil.Duration("REINDEX_SWEEP_INTERVAL", r.SweepInterval)
	r.SweepMinAge = envutil.Duration("REINDEX_SWEEP_MIN_AGE", r.SweepMinAge)
	r.SweepBatch = envutil.Int("REINDEX_SWEEP_BATCH", r.SweepBatch)
	r.RedisAddr = envutil.String("REDIS_ADDR", r.RedisAddr)
	r.RedisPassword = envutil.String("REDIS_PASSWORD", r.RedisPassword)
	r.RedisDB = envutil.Int("REDIS_DB", r.RedisDB)
	r.RedisKey = envutil.String("REINDEX_REDIS_KEY", r.RedisKey)

	o := &cfg.Otel
	o.Enabled = envutil.Bool("OTEL_ENABLED", o.Enabled)
	o.ServiceName = envutil.String("OTEL_SERVICE_NAME", o.ServiceName)
	o.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", o.Endpoint)
	o.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", o.Insecure)
	o.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", o.Headers)
	o.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", o.SampleRatio)
}

// Validate reports every missing or invalid field at once.
func (c Config) Validate() error {
	var errs []error
	missing := func(name string) { errs = append(errs, fmt.Errorf("%s is required", name)) }

	if strings.TrimSpace(c.JWTSecretKey) == "" {
		missing("JWT_SECRET_KEY")
	}

	switch c.Database.Driver {
	case db.DriverPostgres, db.DriverSQLite:
		if strings.TrimSpace(c.Database.DSN) == "" {
			missing("DATABASE_DSN")
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER=%q: expected postgres or sqlite", c.Database.Driver))
	}

	if strings.TrimSpace(c.Cipher.Key) == "" {
		missing("LEXI_ENCRYPTION_KEY")
	} else if _, err := vault.DecodeKey(c.Cipher.Key); err != nil {
		errs = append(errs, fmt.Errorf("LEXI_ENCRYPTION_KEY: %w", err))
	}
	if _, err := vault.ParseAlgorithm(c.Cipher.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("CIPHER_ALGORITHM: %w", err))
	}

	if strings.TrimSpace(c.Inference.BaseURL) == "" {
		missing("INFERENCE_BASE_URL")
	}

	switch c.Vector.Provider {
	case VectorProviderQdrant:
		if err := qdrant.ValidateConfig(c.qdrantConfig(), c.Vector.Dim != 0); err != nil {
			errs = append(errs, err)
		}
	case VectorProviderMemory:
		if c.Vector.Dim < 0 {
			errs = append(errs, fmt.Errorf("VECTOR_DIM=%d: expected zero or a positive integer", c.Vector.Dim))
		}
	default:
		errs = append(errs, fmt.Errorf("VECTOR_PROVIDER=%q: expected qdrant or memory", c.Vector.Provider))
	}

	if c.Ingestion.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE=%d: expected a positive integer", c.Ingestion.ChunkSize))
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP=%d: expected 0 <= overlap < chunk size", c.Ingestion.ChunkOverlap))
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_MIN_SCORE=%v: expected a value in [0, 1]", c.Retrieval.MinScore))
	}

	switch c.Reindex.Queue {
	case QueueMemory:
	case QueueRedis:
		if strings.TrimSpace(c.Reindex.RedisAddr) == "" {
			missing("REDIS_ADDR")
		}
	default:
		errs = append(errs, fmt.Errorf("REINDEX_QUEUE=%q: expected memory or redis", c.Reindex.Queue))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
}

func (c Config) qdrantConfig() qdrant.Config {
	return qdrant.Config{
		URL:        strings.TrimSpace(c.Vector.URL),
		APIKey:     c.Vector.APIKey,
		Collection: strings.TrimSpace(c.Vector.Collection),
		VectorName: strings.TrimSpace(c.Vector.VectorName),
		VectorDim:  c.Vector.Dim,
		Timeout:    c.Vector.Timeout,
		MaxRetries: c.Vector.MaxRetries,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
