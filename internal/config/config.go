package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Index and namespace names shared by ingestion and retrieval.
const (
	DefaultIndex            = "irfan-gpt-index"
	FAQNamespace            = "umt-faqs-namespace"
	ProgramNamespace        = "umt-programs-namespace"
	DefaultTopK             = 5
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultChatModel        = "gpt-4o-mini"
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultOpenAIAPIKeyEnv  = "OPENAI_API_KEY"
	DefaultQdrantAPIKeyEnv  = "QDRANT_API_KEY"
	defaultOpenAITimeoutSec = 30
	defaultQdrantTimeoutSec = 15
)

// OpenAIEmbedderConfig holds configuration for the OpenAI embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// RateLimit is requests per second; zero means unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// The retrieval index name is used as the collection.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	UseTLS      bool   `yaml:"use_tls"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig names the index, the namespaces searched per question and
// the number of results taken from each.
type RetrievalConfig struct {
	Index      string   `yaml:"index"`
	Namespaces []string `yaml:"namespaces"`
	TopK       int      `yaml:"top_k"`
}

// ChatConfig configures the chat completion model.
type ChatConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit,omitempty"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Chat        ChatConfig        `yaml:"chat"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/admissionsbot/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
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

// Validate reports settings that cannot be defaulted.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "openai":
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("unknown vector store: %q", c.VectorStore.Type)
	}
	if c.Chat.RateLimit < 0 || (c.Embedder.OpenAI != nil && c.Embedder.OpenAI.RateLimit < 0) {
		return errors.New("rate_limit must not be negative")
	}
	if c.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must not be negative, got %d", c.Retrieval.TopK)
	}
	if len(c.Retrieval.Namespaces) == 0 {
		return errors.New("retrieval.namespaces must not be empty")
	}
	if c.VectorStore.Type == "qdrant" {
		q := c.VectorStore.Qdrant
		if q == nil {
			return errors.New("qdrant config missing")
		}
		if q.Port <= 0 || q.Port > 65535 {
			return fmt.Errorf("invalid qdrant port: %d", q.Port)
		}
	}
	return nil
}

// TopK returns the per-namespace result count.
func (c *AppConfig) TopK() int {
	if c.Retrieval.TopK <= 0 {
		return DefaultTopK
	}
	return c.Retrieval.TopK
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "admissionsbot", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		VectorStore: VectorStoreConfig{Type: "qdrant"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = DefaultOpenAIBaseURL
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = DefaultOpenAIAPIKeyEnv
		}
		if o.Model == "" {
			o.Model = DefaultEmbeddingModel
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = defaultOpenAITimeoutSec
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.Host == "" {
			q.Host = "localhost"
		}
		if q.Port == 0 {
			q.Port = 6334
		}
		if q.APIKeyEnv == "" {
			q.APIKeyEnv = DefaultQdrantAPIKeyEnv
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = defaultQdrantTimeoutSec
		}
	}

	if cfg.Retrieval.Index == "" {
		cfg.Retrieval.Index = DefaultIndex
	}
	if len(cfg.Retrieval.Namespaces) == 0 {
		cfg.Retrieval.Namespaces = []string{FAQNamespace, ProgramNamespace}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}

	if cfg.Chat.Model == "" {
		cfg.Chat.Model = DefaultChatModel
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = DefaultOpenAIAPIKeyEnv
	}
	if cfg.Chat.TimeoutSecs == 0 {
		cfg.Chat.TimeoutSecs = defaultOpenAITimeoutSec
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
}
