package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Relational source (food catalog, read-only)
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"hereforus"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"hereforus"`

	// Vector store
	MilvusURL string `envconfig:"MILVUS_URL" default:"http://localhost:19530"`

	// CLOVA Studio embedding endpoint
	EmbeddingHost   string `envconfig:"CLOVASTUDIO_EMBEDDING_HOST"`
	EmbeddingPath   string `envconfig:"CLOVASTUDIO_EMBEDDING_URL"`
	EmbeddingAPIKey string `envconfig:"CLOVASTUDIO_EMBEDDING_API_KEY"`
	EmbeddingGWKey  string `envconfig:"CLOVASTUDIO_EMBEDDING_APIGW_API_KEY"`

	// CLOVA Studio completion endpoint
	ModelHost   string `envconfig:"CLOVASTUDIO_MODEL_HOST"`
	ModelPath   string `envconfig:"CLOVASTUDIO_MODEL_URL"`
	ModelAPIKey string `envconfig:"CLOVASTUDIO_MODEL_API_KEY"`
	ModelGWKey  string `envconfig:"CLOVASTUDIO_MODEL_APIGW_API_KEY"`

	// Upstream catalog endpoints. FOOD_URL switches the food source from the
	// relational table to a paginated HTTP endpoint.
	FestivalURL    string `envconfig:"FESTIVAL_URL"`
	PerformanceURL string `envconfig:"PERFORMANCE_URL"`
	MovieURL       string `envconfig:"MOVIE_URL"`
	FoodURL        string `envconfig:"FOOD_URL"`

	// Ingestion tuning
	FoodPageSize    int           `envconfig:"FOOD_PAGE_SIZE" default:"1000"`
	FoodTotalLimit  int           `envconfig:"FOOD_TOTAL_LIMIT" default:"1000"`
	FetchRetryCap   int           `envconfig:"FETCH_RETRY_CAP" default:"3"`
	EmbedRatePerSec float64       `envconfig:"EMBED_RATE_PER_SEC" default:"1"`
	IndexWait       time.Duration `envconfig:"INDEX_WAIT_TIMEOUT" default:"5m"`
	IndexPoll       time.Duration `envconfig:"INDEX_POLL_INTERVAL" default:"1s"`

	// Retrieval
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"5"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
}

func Load() (*Config, error) {
	// Env vars may already be set in the shell; .env files are best-effort.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: CLOVASTUDIO_EMBEDDING_HOST", ErrMissingRequired)
	}
	if c.ModelHost == "" {
		return fmt.Errorf("%w: CLOVASTUDIO_MODEL_HOST", ErrMissingRequired)
	}
	if c.MilvusURL == "" {
		return fmt.Errorf("%w: MILVUS_URL", ErrMissingRequired)
	}
	if c.FoodPageSize <= 0 {
		return fmt.Errorf("%w: FOOD_PAGE_SIZE must be positive", ErrMissingRequired)
	}
	return nil
}
