package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL connection and pooling settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// ObjectStoreConfig selects and configures the blob backend.
// Backend is "gcs" (default) or "s3" for any S3-compatible store reached through MinIO.
type ObjectStoreConfig struct {
	Backend        string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
}

// VertexConfig holds the Vertex AI project and model settings.
type VertexConfig struct {
	ProjectID          string
	Region             string
	GenerativeModel    string
	EmbeddingModel     string
	EmbeddingDimension int
}

// TimeoutConfig bounds every remote call made while ingesting one object.
type TimeoutConfig struct {
	Fetch   time.Duration
	Embed   time.Duration
	Summary time.Duration
	Store   time.Duration
}

// LimitConfig holds the character budgets applied before model calls.
type LimitConfig struct {
	EmbeddingMaxChars int
	SummaryMaxChars   int
	MaxBodyBytes      int64
}

// AppConfig is the centralized configuration for the ingestion service.
type AppConfig struct {
	Port        string
	LogLevel    string
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	Vertex      VertexConfig
	Timeouts    TimeoutConfig
	Limits      LimitConfig
}

// Load reads configuration from environment variables.
// Real environment variables take precedence over a .env file loaded by godotenv/autoload.
func Load() *AppConfig {
	return &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		ObjectStore: ObjectStoreConfig{
			Backend:        strings.ToLower(getEnv("OBJECT_STORE_BACKEND", "gcs")),
			MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Vertex: VertexConfig{
			ProjectID:          getEnv("PROJECT_ID", ""),
			Region:             getEnv("VERTEX_AI_REGION", "us-central1"),
			GenerativeModel:    getEnv("VERTEX_GENERATIVE_MODEL", "gemini-2.5-flash"),
			EmbeddingModel:     getEnv("VERTEX_EMBEDDING_MODEL", "text-embedding-004"),
			EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 768),
		},
		Timeouts: TimeoutConfig{
			Fetch:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			Embed:   getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
			Summary: getEnvDuration("SUMMARY_TIMEOUT", 60*time.Second),
			Store:   getEnvDuration("STORE_TIMEOUT", 15*time.Second),
		},
		Limits: LimitConfig{
			EmbeddingMaxChars: getEnvInt("EMBEDDING_MAX_CHARS", 8000),
			SummaryMaxChars:   getEnvInt("SUMMARY_MAX_CHARS", 10000),
			MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		},
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *AppConfig) Validate() error {
	if c.Vertex.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.Vertex.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Vertex.EmbeddingDimension)
	}
	switch c.ObjectStore.Backend {
	case "gcs":
	case "s3":
		if c.ObjectStore.MinIOEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT must be set when OBJECT_STORE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported OBJECT_STORE_BACKEND %q", c.ObjectStore.Backend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
