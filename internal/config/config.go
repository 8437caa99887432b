package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"

	STTMock   = "mock"
	STTGoogle = "google"
)

// Config holds all configuration for the EchoLearn server
type Config struct {
	// Server configuration
	Port        string   `envconfig:"PORT" default:"8000"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	StaticDir   string   `envconfig:"STATIC_DIR" default:"static"`

	// Storage: memory, sqlite or mongo
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"echolearn"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"./data/echolearn.db"`

	// Gemini tutor; the mock tutor is used when the key is empty
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Speech-to-text: mock or google
	STTProvider string `envconfig:"STT_PROVIDER" default:"mock"`
	STTLanguage string `envconfig:"STT_LANGUAGE" default:"en-US"`

	// SignAll primary translator; only the local dictionary is used when the key is empty
	SignAllAPIKey      string        `envconfig:"SIGNALL_API_KEY"`
	SignAllBaseURL     string        `envconfig:"SIGNALL_BASE_URL" default:"https://api.signall.us"`
	SignAllTimeout     time.Duration `envconfig:"SIGNALL_TIMEOUT" default:"10s"`
	SignDictionaryPath string        `envconfig:"SIGN_DICTIONARY_PATH"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds

	// Access token guard; disabled when empty
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.STTProvider = strings.ToLower(cfg.STTProvider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and ranges
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory, StorageSQLite, StorageMongo:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of memory, sqlite, mongo; got %q", c.StorageDriver)
	}
	switch c.STTProvider {
	case STTMock, STTGoogle:
	default:
		return fmt.Errorf("STT_PROVIDER must be mock or google; got %q", c.STTProvider)
	}
	if c.CircuitBreakerMaxFailures < 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_MAX_FAILURES must be at least 1")
	}
	if c.CircuitBreakerResetTimeout < 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_RESET_TIMEOUT cannot be negative")
	}
	if c.SignAllTimeout <= 0 {
		return fmt.Errorf("SIGNALL_TIMEOUT must be positive")
	}
	return nil
}

// CircuitBreakerReset returns the reset window as a duration
func (c *Config) CircuitBreakerReset() time.Duration {
	return time.Duration(c.CircuitBreakerResetTimeout) * time.Second
}

// NewLogger builds the process logger: development output for LOG_LEVEL=debug,
// production JSON otherwise.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if strings.EqualFold(c.LogLevel, "debug") {
		return zap.NewDevelopment()
	}

	zapCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
