// Package config loads the application configuration from an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 5000
	DefaultMaxFileSize = 10 << 20
	DefaultCollection  = "restaurant_docs"
	DefaultPersistDir  = "./data/chroma_db"
	DefaultUploadDir   = "./data/documents"
	DefaultChunkSize   = 1000
	DefaultOverlap     = 200
	DefaultBatchSize   = 32

	DefaultEmbeddingProvider = "ollama"
	DefaultEmbeddingModel    = "all-minilm"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"
	DefaultLLMProvider       = "groq"
	DefaultLLMModel          = "llama-3.1-8b-instant"
)

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxFileSize    int64    `yaml:"max_file_size"`
	UploadDir      string   `yaml:"upload_dir"`
}

// StoreConfig selects where the collection snapshot lives. An empty DSN
// means a JSON file under PersistDir.
type StoreConfig struct {
	PersistDir string `yaml:"persist_dir"`
	Collection string `yaml:"collection"`
	DSN        string `yaml:"dsn"`
}

type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"-"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type LLMConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"-"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
}

// LoadDotEnv loads .env from the working directory if present.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads path (skipped when empty or missing), applies environment
// overrides and defaults, then validates.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML. API keys are never written.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when nothing is set.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *AppConfig, lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	var errs []error
	errs = append(errs, num(&cfg.Server.Port, "PORT"), num(&cfg.Server.Port, "FLASK_PORT"))
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_FILE_SIZE: %w", err))
		} else {
			cfg.Server.MaxFileSize = n
		}
	}
	str(&cfg.Server.UploadDir, "UPLOAD_DIR")

	str(&cfg.Store.PersistDir, "CHROMA_PERSIST_DIR")
	str(&cfg.Store.Collection, "COLLECTION_NAME")
	str(&cfg.Store.DSN, "STORE_DSN")

	errs = append(errs, num(&cfg.Chunker.Size, "CHUNK_SIZE"), num(&cfg.Chunker.Overlap, "CHUNK_OVERLAP"))

	str(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	str(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	str(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	str(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	errs = append(errs, num(&cfg.Embedding.BatchSize, "EMBEDDING_BATCH_SIZE"))

	str(&cfg.LLM.Provider, "LLM_PROVIDER")
	str(&cfg.LLM.Model, "LLM_MODEL", "GROQ_MODEL")
	str(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		str(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	case "anthropic":
		str(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	default:
		str(&cfg.LLM.APIKey, "GROQ_API_KEY")
	}

	return errors.Join(errs...)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.MaxFileSize == 0 {
		cfg.Server.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = DefaultUploadDir
	}

	if cfg.Store.PersistDir == "" {
		cfg.Store.PersistDir = DefaultPersistDir
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = DefaultCollection
	}

	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = DefaultChunkSize
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = DefaultOverlap
		}
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultEmbeddingProvider
	}
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel
		if cfg.Embedding.Provider == "openai" {
			cfg.Embedding.Model = DefaultOpenAIEmbedModel
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultBatchSize
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultLLMProvider
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
}

// Validate rejects settings the rest of the system cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxFileSize <= 0 {
		errs = append(errs, errors.New("server.max_file_size must be positive"))
	}
	if c.Chunker.Size <= 0 {
		errs = append(errs, errors.New("chunker.size must be positive"))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		errs = append(errs, fmt.Errorf("chunker.overlap %d must be in [0, %d)", c.Chunker.Overlap, c.Chunker.Size))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, errors.New("embedding.batch_size must be positive"))
	}
	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.LLM.Provider {
	case "groq", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
