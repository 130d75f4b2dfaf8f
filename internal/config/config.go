package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	Index      IndexConfig
	Embedder   EmbedderConfig
	Oracle     OracleConfig
	Classifier ClassifierConfig
	Retriever  RetrieverConfig
	Review     ReviewConfig
	Worker     WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object storage settings for model artifacts and job inputs.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IndexConfig holds hybrid index backend settings.
type IndexConfig struct {
	OpenSearchURL    string        `mapstructure:"opensearch_url"`
	OpenSearchIndex  string        `mapstructure:"opensearch_index"`
	QdrantURL        string        `mapstructure:"qdrant_url"`
	QdrantCollection string        `mapstructure:"qdrant_collection"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// EmbedderConfig holds the external embedding service settings.
type EmbedderConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// OracleConfig holds judgment oracle settings.
type OracleConfig struct {
	Endpoint            string        `mapstructure:"endpoint"`
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// ClassifierConfig holds relevance model settings.
type ClassifierConfig struct {
	Store         string  `mapstructure:"store"` // "local" or "s3"
	ArtifactKey   string  `mapstructure:"artifact_key"`
	ThresholdHigh float64 `mapstructure:"threshold_high"`
	ThresholdLow  float64 `mapstructure:"threshold_low"`
}

// RetrieverConfig holds candidate retrieval settings.
type RetrieverConfig struct {
	TopN int `mapstructure:"top_n"`
	K    int `mapstructure:"k"`
}

// ReviewConfig holds per-run orchestration settings.
type ReviewConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// WorkerConfig holds the shared-secret token clients must present.
type WorkerConfig struct {
	Token string `mapstructure:"token"`
}

// Load reads configuration from environment variables with the DANA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "dana")
	v.SetDefault("db.password", "dana_secret")
	v.SetDefault("db.name", "dana_po")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "dana-po-artifacts")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Index defaults
	v.SetDefault("index.opensearch_url", "http://opensearch:9200")
	v.SetDefault("index.opensearch_index", "contracts")
	v.SetDefault("index.qdrant_url", "http://qdrant:6333")
	v.SetDefault("index.qdrant_collection", "chunks")
	v.SetDefault("index.timeout", "10s")

	// Embedder defaults
	v.SetDefault("embedder.endpoint", "https://api.openai.com/v1/embeddings")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.dimension", 1024)

	// Oracle defaults
	v.SetDefault("oracle.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "gpt-4o")
	v.SetDefault("oracle.timeout", "120s")
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.confidence_threshold", 0.5)

	// Classifier defaults
	v.SetDefault("classifier.store", "local")
	v.SetDefault("classifier.artifact_key", "models/clause_classifier.json")
	v.SetDefault("classifier.threshold_high", 0.55)
	v.SetDefault("classifier.threshold_low", 0.45)

	// Retriever defaults
	v.SetDefault("retriever.top_n", 50)
	v.SetDefault("retriever.k", 10)

	// Review defaults
	v.SetDefault("review.concurrency", 4)

	// Worker defaults
	v.SetDefault("worker.token", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "DANA_SERVER_PORT",
		"server.read_timeout":         "DANA_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "DANA_SERVER_WRITE_TIMEOUT",
		"server.environment":          "DANA_SERVER_ENVIRONMENT",
		"db.host":                     "DANA_DB_HOST",
		"db.port":                     "DANA_DB_PORT",
		"db.user":                     "DANA_DB_USER",
		"db.password":                 "DANA_DB_PASSWORD",
		"db.name":                     "DANA_DB_NAME",
		"db.sslmode":                  "DANA_DB_SSLMODE",
		"db.max_open":                 "DANA_DB_MAX_OPEN",
		"db.max_idle":                 "DANA_DB_MAX_IDLE",
		"s3.region":                   "DANA_S3_REGION",
		"s3.bucket":                   "DANA_S3_BUCKET",
		"s3.endpoint":                 "DANA_S3_ENDPOINT",
		"s3.access_key":               "DANA_S3_ACCESS_KEY",
		"s3.secret_key":               "DANA_S3_SECRET_KEY",
		"log.level":                   "DANA_LOG_LEVEL",
		"log.format":                  "DANA_LOG_FORMAT",
		"index.opensearch_url":        "DANA_INDEX_OPENSEARCH_URL",
		"index.opensearch_index":      "DANA_INDEX_OPENSEARCH_INDEX",
		"index.qdrant_url":            "DANA_INDEX_QDRANT_URL",
		"index.qdrant_collection":     "DANA_INDEX_QDRANT_COLLECTION",
		"index.timeout":               "DANA_INDEX_TIMEOUT",
		"embedder.endpoint":           "DANA_EMBEDDER_ENDPOINT",
		"embedder.api_key":            "DANA_EMBEDDER_API_KEY",
		"embedder.model":              "DANA_EMBEDDER_MODEL",
		"embedder.dimension":          "DANA_EMBEDDER_DIMENSION",
		"oracle.endpoint":             "DANA_ORACLE_ENDPOINT",
		"oracle.api_key":              "DANA_ORACLE_API_KEY",
		"oracle.model":                "DANA_ORACLE_MODEL",
		"oracle.timeout":              "DANA_ORACLE_TIMEOUT",
		"oracle.max_retries":          "DANA_ORACLE_MAX_RETRIES",
		"oracle.confidence_threshold": "DANA_ORACLE_CONFIDENCE_THRESHOLD",
		"classifier.store":            "DANA_CLASSIFIER_STORE",
		"classifier.artifact_key":     "DANA_CLASSIFIER_ARTIFACT_KEY",
		"classifier.threshold_high":   "DANA_CLASSIFIER_THRESHOLD_HIGH",
		"classifier.threshold_low":    "DANA_CLASSIFIER_THRESHOLD_LOW",
		"retriever.top_n":             "DANA_RETRIEVER_TOP_N",
		"retriever.k":                 "DANA_RETRIEVER_K",
		"review.concurrency":          "DANA_REVIEW_CONCURRENCY",
		"worker.token":                "DANA_WORKER_TOKEN",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DANA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DANA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Index = IndexConfig{
		OpenSearchURL:    v.GetString("index.opensearch_url"),
		OpenSearchIndex:  v.GetString("index.opensearch_index"),
		QdrantURL:        v.GetString("index.qdrant_url"),
		QdrantCollection: v.GetString("index.qdrant_collection"),
		Timeout:          v.GetDuration("index.timeout"),
	}
	cfg.Embedder = EmbedderConfig{
		Endpoint:  v.GetString("embedder.endpoint"),
		APIKey:    v.GetString("embedder.api_key"),
		Model:     v.GetString("embedder.model"),
		Dimension: v.GetInt("embedder.dimension"),
	}
	cfg.Oracle = OracleConfig{
		Endpoint:            v.GetString("oracle.endpoint"),
		APIKey:              v.GetString("oracle.api_key"),
		Model:               v.GetString("oracle.model"),
		Timeout:             v.GetDuration("oracle.timeout"),
		MaxRetries:          v.GetInt("oracle.max_retries"),
		ConfidenceThreshold: v.GetFloat64("oracle.confidence_threshold"),
	}
	cfg.Classifier = ClassifierConfig{
		Store:         v.GetString("classifier.store"),
		ArtifactKey:   v.GetString("classifier.artifact_key"),
		ThresholdHigh: v.GetFloat64("classifier.threshold_high"),
		ThresholdLow:  v.GetFloat64("classifier.threshold_low"),
	}
	cfg.Retriever = RetrieverConfig{
		TopN: v.GetInt("retriever.top_n"),
		K:    v.GetInt("retriever.k"),
	}
	cfg.Review = ReviewConfig{
		Concurrency: v.GetInt("review.concurrency"),
	}
	cfg.Worker = WorkerConfig{
		Token: v.GetString("worker.token"),
	}

	return cfg, nil
}
