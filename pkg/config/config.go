package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Postgres configuration (authoritative fact store)
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Neo4j configuration (graph projection)
	Neo4j Neo4jConfig `mapstructure:"neo4j"`

	// Weaviate configuration (vector index)
	Weaviate WeaviateConfig `mapstructure:"weaviate"`

	// OpenAI configuration (extraction and embeddings)
	OpenAI OpenAIConfig `mapstructure:"openai"`

	// Ingest configuration
	Ingest IngestConfig `mapstructure:"ingest"`

	// Screener configuration
	Screener ScreenerConfig `mapstructure:"screener"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// PostgresConfig holds fact store configuration
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Neo4jConfig holds graph projection configuration
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// WeaviateConfig holds vector index configuration
type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	Scheme string `mapstructure:"scheme"`
	APIKey string `mapstructure:"api_key"`
}

// OpenAIConfig holds model configuration for extraction and embeddings
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
}

// IngestConfig holds bulk ingestion configuration
type IngestConfig struct {
	Concurrency  int `mapstructure:"concurrency"`
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	MaxFailures  int `mapstructure:"max_failures"`
}

// ScreenerConfig holds signal screening configuration
type ScreenerConfig struct {
	EpsLookbackDays  int `mapstructure:"eps_lookback_days"`
	FlowLookbackDays int `mapstructure:"flow_lookback_days"`
	MaxResults       int `mapstructure:"max_results"`
}

// CircuitBreakerConfig holds configuration for circuit breaking around the
// model provider
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// IntervalDuration returns the breaker interval as a duration.
func (c CircuitBreakerConfig) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// TimeoutDuration returns the breaker open-state timeout as a duration.
func (c CircuitBreakerConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Set defaults
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Override with environment variables if present
	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Postgres defaults
	viper.SetDefault("postgres.dsn", "postgres://localhost:5432/factgraph?sslmode=disable")

	// Neo4j defaults
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")
	viper.SetDefault("neo4j.database", "neo4j")

	// Weaviate defaults
	viper.SetDefault("weaviate.host", "localhost:8090")
	viper.SetDefault("weaviate.scheme", "http")

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("openai.temperature", 0.0)

	// Ingest defaults
	viper.SetDefault("ingest.concurrency", 4)
	viper.SetDefault("ingest.chunk_size", 2000)
	viper.SetDefault("ingest.chunk_overlap", 200)
	viper.SetDefault("ingest.max_failures", 20)

	// Screener defaults
	viper.SetDefault("screener.eps_lookback_days", 90)
	viper.SetDefault("screener.flow_lookback_days", 28)
	viper.SetDefault("screener.max_results", 25)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 2)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		config.Postgres.DSN = dsn
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Neo4j.Password = pass
	}

	if host := os.Getenv("WEAVIATE_HOST"); host != "" {
		config.Weaviate.Host = host
	}
	if scheme := os.Getenv("WEAVIATE_SCHEME"); scheme != "" {
		config.Weaviate.Scheme = scheme
	}
	if apiKey := os.Getenv("WEAVIATE_API_KEY"); apiKey != "" {
		config.Weaviate.APIKey = apiKey
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		viper.Set("server.port", port)
	}
}
