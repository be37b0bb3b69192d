// Package config loads the application configuration from defaults, an
// optional YAML file, a .env file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nikkelr/chat-with-PDF/internal/models"
)

// PlaceholderAPIKey is the value shipped in example env files. It counts as unset.
const PlaceholderAPIKey = "your_openrouter_api_key_here"

// EnvPrefix prefixes every environment override, e.g. PDFCHAT_CHUNKING_SIZE.
const EnvPrefix = "PDFCHAT"

const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderOpenAI     = "openai"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Models used when llm.model is left empty.
const (
	DefaultOpenRouterModel = "openai/gpt-3.5-turbo"
	DefaultOllamaModel     = "llama3"
)

// ServerConfig configures the REST API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	LogFile         string        `mapstructure:"log_file" yaml:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ChunkingConfig controls how extracted text is split.
type ChunkingConfig struct {
	Size    int `mapstructure:"size" yaml:"size"`
	Overlap int `mapstructure:"overlap" yaml:"overlap"`
}

// RetrievalConfig controls how many chunks are used per answer.
type RetrievalConfig struct {
	K int `mapstructure:"k" yaml:"k"`
}

// LLMConfig selects the answering model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Host        string        `mapstructure:"host" yaml:"host"`
	AppName     string        `mapstructure:"app_name" yaml:"app_name"`
	AppURL      string        `mapstructure:"app_url" yaml:"app_url"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EmbeddingConfig selects the embedding provider and its batching limits.
type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	Host              string        `mapstructure:"host" yaml:"host"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"`
	BatchSize         int           `mapstructure:"batch_size" yaml:"batch_size"`
	MaxConcurrent     int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// IndexConfig selects where session indexes live.
type IndexConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Chunking  ChunkingConfig  `mapstructure:"chunking" yaml:"chunking"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Index     IndexConfig     `mapstructure:"index" yaml:"index"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.log_file", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("chunking.size", 1000)
	v.SetDefault("chunking.overlap", 200)

	v.SetDefault("retrieval.k", 4)

	v.SetDefault("llm.provider", ProviderOpenRouter)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.host", "")
	v.SetDefault("llm.app_name", "ChatWithPDF")
	v.SetDefault("llm.app_url", "http://localhost:8501")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("embedding.provider", ProviderOllama)
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.host", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.batch_size", 32)
	v.SetDefault("embedding.max_concurrent", 3)
	v.SetDefault("embedding.requests_per_second", 0.0)
	v.SetDefault("embedding.timeout", 30*time.Second)

	v.SetDefault("index.backend", BackendMemory)
	v.SetDefault("index.database_url", "")
}

// bindEnv maps the environment names used by existing deployments onto keys.
// PDFCHAT_<SECTION>_<KEY> works for every key through AutomaticEnv.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("llm.api_key", "PDFCHAT_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("llm.model", "PDFCHAT_LLM_MODEL", "OPENROUTER_MODEL")
	_ = v.BindEnv("llm.base_url", "PDFCHAT_LLM_BASE_URL", "OPENROUTER_API_BASE")
	_ = v.BindEnv("llm.app_name", "PDFCHAT_LLM_APP_NAME", "OPENROUTER_APP_NAME", "APP_NAME")
	_ = v.BindEnv("llm.app_url", "PDFCHAT_LLM_APP_URL", "OPENROUTER_APP_URL", "APP_URL")
	_ = v.BindEnv("index.database_url", "PDFCHAT_INDEX_DATABASE_URL", "DATABASE_URL")
}

// Load builds the configuration on v. A .env file in the working directory is
// loaded first without overriding variables already set. When path is empty,
// ./config.yaml is read if it exists.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	bindEnv(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.fillModel()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	cfg.LLM.fillModel()
	return &cfg
}

// fillModel picks the provider's default model when none is set.
func (c *LLMConfig) fillModel() {
	if strings.TrimSpace(c.Model) != "" {
		return
	}
	switch c.Provider {
	case ProviderOllama:
		c.Model = DefaultOllamaModel
	case ProviderOpenRouter:
		c.Model = DefaultOpenRouterModel
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return models.NewError(models.KindInvalidConfiguration, format, args...)
	}

	switch {
	case c.Chunking.Size <= 0 || c.Chunking.Overlap <= 0:
		return invalid("chunking.size and chunking.overlap must be positive (got %d/%d)", c.Chunking.Size, c.Chunking.Overlap)
	case c.Chunking.Overlap >= c.Chunking.Size:
		return invalid("chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	case c.Retrieval.K <= 0:
		return invalid("retrieval.k must be positive (got %d)", c.Retrieval.K)
	case c.LLM.Temperature < 0 || c.LLM.Temperature > 2:
		return invalid("llm.temperature must be between 0 and 2 (got %g)", c.LLM.Temperature)
	case c.LLM.MaxTokens <= 0:
		return invalid("llm.max_tokens must be positive (got %d)", c.LLM.MaxTokens)
	case c.Server.MaxUploadMB <= 0:
		return invalid("server.max_upload_mb must be positive (got %d)", c.Server.MaxUploadMB)
	case c.Embedding.BatchSize <= 0 || c.Embedding.MaxConcurrent <= 0:
		return invalid("embedding.batch_size and embedding.max_concurrent must be positive")
	}

	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOllama:
	default:
		return invalid("unknown llm.provider %q (want %s or %s)", c.LLM.Provider, ProviderOpenRouter, ProviderOllama)
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return invalid("unknown embedding.provider %q (want %s or %s)", c.Embedding.Provider, ProviderOllama, ProviderOpenAI)
	}
	switch c.Index.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Index.DatabaseURL == "" {
			return invalid("index.database_url is required for the %s backend", BackendPostgres)
		}
	default:
		return invalid("unknown index.backend %q (want %s or %s)", c.Index.Backend, BackendMemory, BackendPostgres)
	}
	return nil
}

// APIConfigured reports whether the language model can be called. Hosted
// providers need a real credential; a local Ollama needs none.
func (c *Config) APIConfigured() bool {
	if c.LLM.Provider == ProviderOllama {
		return true
	}
	key := strings.TrimSpace(c.LLM.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// EmbeddingAPIKey returns the embedding credential, falling back to the LLM
// key so one OpenAI-compatible account can serve both.
func (c *Config) EmbeddingAPIKey() string {
	if c.Embedding.APIKey != "" {
		return c.Embedding.APIKey
	}
	return c.LLM.APIKey
}

// MaxUploadBytes is the upload size limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Embedding.APIKey = mask(c.Embedding.APIKey)
	out.Index.DatabaseURL = maskURL(c.Index.DatabaseURL)
	return &out
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}

func maskURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	userinfo := raw[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":****"
	}
	return raw[:scheme+3] + userinfo + raw[at:]
}
