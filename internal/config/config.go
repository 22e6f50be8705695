package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Driver and provider names.
const (
	DriverQdrant   = "qdrant"
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	ScopeCollection = "collection"
	ScopeFilter     = "filter"
)

// DefaultScoreThreshold is used when query.score_threshold is unset.
const DefaultScoreThreshold = 0.75

// Config holds the docquery configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Admin       AdminConfig       `yaml:"admin"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
	Query       QueryConfig       `yaml:"query"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Content     ContentConfig     `yaml:"content"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds public HTTP server settings.
type HTTPConfig struct {
	Port             int   `yaml:"port"`
	ReadTimeoutSec   int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int   `yaml:"write_timeout_sec"`
	ShutdownSec      int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes     int64 `yaml:"max_body_bytes"`
	LivenessOKStatus bool  `yaml:"liveness_ok_status"`
}

// AdminConfig holds the operator listener settings. Port 0 disables it.
type AdminConfig struct {
	Port int `yaml:"port"`
}

// QueryConfig holds resolver settings.
type QueryConfig struct {
	Category            string   `yaml:"category"`
	ScoreThreshold      *float64 `yaml:"score_threshold"`
	CategoryFromRequest bool     `yaml:"category_from_request"`
}

// Threshold returns the configured score threshold or the default.
func (q QueryConfig) Threshold() float64 {
	if q.ScoreThreshold == nil {
		return DefaultScoreThreshold
	}
	return *q.ScoreThreshold
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string      `yaml:"provider"` // ollama (default), openai
	BaseURL          string      `yaml:"base_url"`
	APIKey           string      `yaml:"api_key"`
	Model            string      `yaml:"model"`
	Dimensions       int         `yaml:"dimensions"`
	QueryInstruction string      `yaml:"query_instruction"`
	TimeoutSec       int         `yaml:"timeout_sec"`
	Cache            CacheConfig `yaml:"cache"`
}

// Timeout returns the embedding call timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// CacheConfig holds the Redis-backed embedding cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// VectorStoreConfig holds vector store connection and scoping settings.
type VectorStoreConfig struct {
	Driver string `yaml:"driver"` // qdrant (default), redis, valkey, postgres

	// redis / valkey
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`

	// qdrant
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`

	// postgres
	DSN string `yaml:"dsn"`

	Collection          string `yaml:"collection"`
	CategoryScope       string `yaml:"category_scope"` // collection (default), filter
	PayloadKey          string `yaml:"payload_key"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	ReadinessTimeoutSec int    `yaml:"readiness_timeout_sec"`
}

// Timeout returns the search call timeout.
func (v VectorStoreConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSec) * time.Second
}

// ContentConfig holds document loading settings.
type ContentConfig struct {
	Root string `yaml:"root"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates a configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 64 * 1024
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOllama
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Provider == ProviderOllama {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 3600
	}

	vs := &c.VectorStore
	if vs.Driver == "" {
		vs.Driver = DriverQdrant
	}
	if vs.Driver == DriverQdrant {
		if vs.Host == "" {
			vs.Host = "localhost"
		}
		if vs.Port == 0 {
			vs.Port = 6334
		}
	}
	if vs.CategoryScope == "" {
		vs.CategoryScope = ScopeCollection
	}
	if vs.PayloadKey == "" {
		vs.PayloadKey = "id"
	}
	if vs.TimeoutSec <= 0 {
		vs.TimeoutSec = 10
	}

	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 &&
		(vs.Driver == DriverRedis || vs.Driver == DriverValkey) {
		c.Embedding.Cache.Addrs = vs.Addrs
		c.Embedding.Cache.Password = vs.Password
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Admin.Port < 0 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be between 0 and 65535, got %d", c.Admin.Port)
	}
	if c.Admin.Port != 0 && c.Admin.Port == c.HTTP.Port {
		return fmt.Errorf("admin.port must differ from http.port")
	}

	if c.Query.Category == "" {
		return fmt.Errorf("query.category is required")
	}
	if t := c.Query.Threshold(); math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("query.score_threshold must be finite")
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}
	return c.validateVectorStore()
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOllama, ProviderOpenAI, c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.BaseURL == "" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required for the openai provider without base_url")
	}
	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 {
		return fmt.Errorf("embedding.cache.addrs is required when the cache is enabled")
	}
	return nil
}

func (c *Config) validateVectorStore() error {
	vs := c.VectorStore
	switch vs.Driver {
	case DriverQdrant:
		if vs.Port <= 0 || vs.Port > 65535 {
			return fmt.Errorf("vector_store.port must be between 1 and 65535, got %d", vs.Port)
		}
	case DriverRedis, DriverValkey:
		if len(vs.Addrs) == 0 {
			return fmt.Errorf("vector_store.addrs is required for driver %s", vs.Driver)
		}
	case DriverPostgres:
		if vs.DSN == "" {
			return fmt.Errorf("vector_store.dsn is required for driver postgres")
		}
	default:
		return fmt.Errorf("vector_store.driver must be one of qdrant, redis, valkey, postgres, got %q", vs.Driver)
	}

	switch vs.CategoryScope {
	case ScopeCollection:
	case ScopeFilter:
		if vs.Collection == "" {
			return fmt.Errorf("vector_store.collection is required with category_scope filter")
		}
	default:
		return fmt.Errorf("vector_store.category_scope must be %q or %q, got %q",
			ScopeCollection, ScopeFilter, vs.CategoryScope)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
