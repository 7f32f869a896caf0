package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Generation providers
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Generation    GenerationConfig    `yaml:"generation"`
	Assets        AssetsConfig        `yaml:"assets"`
	Observability ObservabilityConfig `yaml:"observability"`
	Environment   string              `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	// PublicBaseURL prefixes pdf_url and image url fields in query responses.
	// Empty means derive it from the request host.
	PublicBaseURL string `yaml:"public_base_url"`
	// DefaultTenant is used when a request carries no X-Tenant-ID. Empty rejects such requests.
	DefaultTenant string `yaml:"default_tenant"`
}

// StorageConfig selects and configures the fragment store
type StorageConfig struct {
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Database   DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string        `yaml:"url"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	Database         string        `yaml:"name"`
	SSLMode          string        `yaml:"sslmode"`
	MaxOpenConns     int           `yaml:"max_open_conns"`
	MaxIdleConns     int           `yaml:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime"`
}

// EmbedderConfig configures one OpenAI-compatible embeddings endpoint
type EmbedderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Dimensions  int           `yaml:"dimensions"`
}

// EmbeddingConfig holds the text and image-query embedders.
// Both spaces must match the embeddings stored at ingest time.
type EmbeddingConfig struct {
	Text      EmbedderConfig `yaml:"text"`
	Image     EmbedderConfig `yaml:"image"`
	CacheSize int            `yaml:"cache_size"`
	CacheTTL  time.Duration  `yaml:"cache_ttl"`
}

// GenerationConfig holds the chat completion provider configuration
type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Temperature float64       `yaml:"temperature"`
}

// AssetsConfig locates files served back to clients
type AssetsConfig struct {
	ImagesDir    string `yaml:"images_dir"`
	DocumentsDir string `yaml:"documents_dir"`
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or text
}

// Defaults returns the built-in configuration before file and env overrides
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Driver:     DriverPostgres,
			SQLitePath: "catalog-rag.db",
			Database: DatabaseConfig{
				Host:            "localhost",
				Port:            5432,
				User:            "rag",
				Password:        "rag",
				Database:        "catalog_rag",
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Embedding: EmbeddingConfig{
			Text: EmbedderConfig{
				BaseURL:     "https://api.openai.com/v1",
				Model:       "text-embedding-3-small",
				Timeout:     30 * time.Second,
				MaxAttempts: 1,
			},
			Image: EmbedderConfig{
				BaseURL:     "http://localhost:8081/v1",
				Model:       "clip-vit-base-patch32",
				Timeout:     30 * time.Second,
				MaxAttempts: 1,
			},
			CacheSize: 1000,
			CacheTTL:  10 * time.Minute,
		},
		Generation: GenerationConfig{
			Provider:    ProviderGroq,
			Model:       "llama-3.3-70b-versatile",
			Timeout:     60 * time.Second,
			MaxAttempts: 1,
			RetryDelay:  time.Second,
			Temperature: 0.2,
		},
		Assets: AssetsConfig{
			ImagesDir:    "extracted_images",
			DocumentsDir: "data",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// New creates a new Config instance from defaults, an optional YAML file and environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	s := &c.Server
	s.Host = getEnv("SERVER_HOST", s.Host)
	s.Port = getPort(s.Port)
	s.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	s.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", s.RequestTimeout)
	s.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", s.PublicBaseURL), "/")
	s.DefaultTenant = getEnv("DEFAULT_TENANT_ID", s.DefaultTenant)

	st := &c.Storage
	st.Driver = strings.ToLower(getEnv("STORAGE_DRIVER", st.Driver))
	st.SQLitePath = getEnv("SQLITE_PATH", st.SQLitePath)
	loadDatabaseConfig(&st.Database)

	e := &c.Embedding
	loadEmbedderConfig("TEXT_EMBEDDING", &e.Text)
	loadEmbedderConfig("IMAGE_EMBEDDING", &e.Image)
	if e.Text.APIKey == "" {
		e.Text.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	e.CacheSize = getEnvAsInt("EMBEDDING_CACHE_SIZE", e.CacheSize)
	e.CacheTTL = getEnvAsDuration("EMBEDDING_CACHE_TTL", e.CacheTTL)

	g := &c.Generation
	g.Provider = strings.ToLower(getEnv("LLM_PROVIDER", g.Provider))
	g.Model = getEnv("LLM_MODEL", g.Model)
	g.BaseURL = getEnv("LLM_BASE_URL", g.BaseURL)
	g.Timeout = getEnvAsDuration("LLM_TIMEOUT", g.Timeout)
	g.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", g.MaxAttempts)
	g.RetryDelay = getEnvAsDuration("LLM_RETRY_DELAY", g.RetryDelay)
	g.Temperature = getEnvAsFloat("LLM_TEMPERATURE", g.Temperature)
	switch g.Provider {
	case ProviderGroq:
		g.APIKey = getEnv("GROQ_API_KEY", g.APIKey)
	case ProviderOpenAI:
		g.APIKey = getEnv("OPENAI_API_KEY", g.APIKey)
	}
	g.APIKey = getEnv("LLM_API_KEY", g.APIKey)
	if g.BaseURL == "" {
		g.BaseURL = DefaultBaseURL(g.Provider)
	}

	a := &c.Assets
	a.ImagesDir = getEnv("IMAGES_DIR", a.ImagesDir)
	a.DocumentsDir = getEnv("DOCUMENTS_DIR", a.DocumentsDir)

	o := &c.Observability
	o.LogLevel = getEnv("LOG_LEVEL", o.LogLevel)
	o.LogFormat = getEnv("LOG_FORMAT", o.LogFormat)
}

// DefaultBaseURL returns the API root for a known generation provider
func DefaultBaseURL(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		db := c.Storage.Database
		if db.ConnectionString == "" && db.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if db.ConnectionString == "" {
			if db.User == "" {
				return fmt.Errorf("database user is required")
			}
			if db.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Generation.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderOllama:
	default:
		return fmt.Errorf("unknown llm provider %q", c.Generation.Provider)
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("llm max attempts must be at least 1")
	}

	if c.Embedding.Text.Model == "" || c.Embedding.Image.Model == "" {
		return fmt.Errorf("text and image embedding models are required")
	}
	if c.Embedding.Text.MaxAttempts < 1 || c.Embedding.Image.MaxAttempts < 1 {
		return fmt.Errorf("embedding max attempts must be at least 1")
	}

	// A hosted generation provider needs a key in production
	if c.IsProduction() && c.Generation.Provider != ProviderOllama && c.Generation.APIKey == "" {
		return fmt.Errorf("api key for llm provider %s is required in production", c.Generation.Provider)
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig overlays DATABASE_URL or DB_* env vars
func loadDatabaseConfig(db *DatabaseConfig) {
	db.ConnectionString = getEnv("DATABASE_URL", db.ConnectionString)
	db.Host = getEnv("DB_HOST", db.Host)
	db.Port = getEnvAsInt("DB_PORT", db.Port)
	db.User = getEnv("DB_USER", db.User)
	db.Password = getEnv("DB_PASSWORD", db.Password)
	db.Database = getEnv("DB_NAME", db.Database)
	db.SSLMode = getEnv("DB_SSLMODE", db.SSLMode)
	db.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", db.MaxOpenConns)
	db.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", db.MaxIdleConns)
	db.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", db.ConnMaxLifetime)
}

// loadEmbedderConfig overlays <prefix>_* env vars, e.g. TEXT_EMBEDDING_MODEL
func loadEmbedderConfig(prefix string, e *EmbedderConfig) {
	e.BaseURL = getEnv(prefix+"_BASE_URL", e.BaseURL)
	e.APIKey = getEnv(prefix+"_API_KEY", e.APIKey)
	e.Model = getEnv(prefix+"_MODEL", e.Model)
	e.Timeout = getEnvAsDuration(prefix+"_TIMEOUT", e.Timeout)
	e.MaxAttempts = getEnvAsInt(prefix+"_MAX_ATTEMPTS", e.MaxAttempts)
	e.Dimensions = getEnvAsInt(prefix+"_DIMENSIONS", e.Dimensions)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars
func getPort(defaultValue int) int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
