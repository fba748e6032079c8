// Package config provides configuration loading and structs for the jourei server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Query      QueryConfig      `yaml:"query"`
	Vector     VectorConfig     `yaml:"vector"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
}

// SourceConfig holds the paths of the bylaws source text and the structuring artifacts.
type SourceConfig struct {
	RawPath        string `yaml:"raw_path"`
	FormattedPath  string `yaml:"formatted_path"`
	StructuredPath string `yaml:"structured_path"`
}

// StorageConfig holds paths for the persisted vector store and the record keyword index.
type StorageConfig struct {
	PersistDir     string `yaml:"persist_dir"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig selects and configures the embedding service.
// The same settings must be used for indexing and querying.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	APIKeyEnv   string `yaml:"api_key_env"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	CacheSize   int    `yaml:"cache_size"`
	// ModelPath and MaxTokens apply to the onnx provider only.
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GenerationConfig selects and configures the answer generation service.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// ChunkingConfig controls how text is split before embedding.
type ChunkingConfig struct {
	// Mode is "records" (chunk each structured record) or "raw" (chunk the normalized text).
	Mode         string   `yaml:"mode"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
}

// QueryConfig holds retrieval settings.
type QueryConfig struct {
	K int `yaml:"k"`
}

// VectorConfig selects the vector store implementation.
type VectorConfig struct {
	Type   string       `yaml:"type"`
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Load reads and parses the config file at path, applies defaults, expands paths, and validates.
// Returns an error if the file cannot be read or parsed, or if the values are inconsistent.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ExpandPaths(&cfg, filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ExpandPaths makes every configured filesystem path absolute relative to configDir.
func ExpandPaths(cfg *Config, configDir string) {
	cfg.Source.RawPath = expandPath(cfg.Source.RawPath, configDir)
	cfg.Source.FormattedPath = expandPath(cfg.Source.FormattedPath, configDir)
	cfg.Source.StructuredPath = expandPath(cfg.Source.StructuredPath, configDir)
	cfg.Storage.PersistDir = expandPath(cfg.Storage.PersistDir, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
}

// Validate reports configuration values that cannot work together.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}
	switch c.Chunking.Mode {
	case ChunkModeRecords, ChunkModeRaw:
	default:
		return fmt.Errorf("chunking.mode must be %q or %q, got %q", ChunkModeRecords, ChunkModeRaw, c.Chunking.Mode)
	}
	if c.Query.K <= 0 {
		return fmt.Errorf("query.k must be positive, got %d", c.Query.K)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
