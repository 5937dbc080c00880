// Package config provides configuration loading and structs for vectorscan.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory when none is given.
const DefaultFile = "vectorscan.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Index     IndexConfig     `yaml:"index"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Documents DocumentsConfig `yaml:"documents"`
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Dimension   int    `yaml:"dimension"`
	Type        string `yaml:"type"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

// MetadataConfig holds the metadata log location.
type MetadataConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// EmbeddingConfig selects and tunes the embedder.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	ModelPath         string        `yaml:"model_path"`
	MaxTokens         int           `yaml:"max_tokens"`
	CacheSize         int           `yaml:"cache_size"`
	OllamaURL         string        `yaml:"ollama_url"`
	Model             string        `yaml:"model"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ScannerConfig controls which files are scanned and how.
type ScannerConfig struct {
	Marker    string   `yaml:"marker"`
	Languages []string `yaml:"languages"`
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
	Workers   int      `yaml:"workers"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultK int    `yaml:"default_k"`
	Mode     string `yaml:"mode"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DocumentsConfig controls how document files given to index are split.
// Sizes count whitespace-separated words.
type DocumentsConfig struct {
	ChunkWords   int `yaml:"chunk_words"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns a config with every default applied. Relative paths stay relative to
// the working directory.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates.
// Returns an error if the file cannot be read or parsed.
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

	configDir := filepath.Dir(path)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)
	cfg.Metadata.Path = expandPath(cfg.Metadata.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists. A missing file yields Default.
// An empty path looks for DefaultFile in the working directory.
func LoadOrDefault(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Index.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("index.dimension must be positive, got %d", c.Index.Dimension))
	}
	if !oneOf(c.Index.Type, "flat", "faiss") {
		errs = append(errs, fmt.Errorf("index.type %q is not flat or faiss", c.Index.Type))
	}
	if !oneOf(c.Index.Compression, "none", "lz4", "zstd") {
		errs = append(errs, fmt.Errorf("index.compression %q is not none, lz4 or zstd", c.Index.Compression))
	}
	if !oneOf(c.Metadata.Backend, "file", "sqlite") {
		errs = append(errs, fmt.Errorf("metadata.backend %q is not file or sqlite", c.Metadata.Backend))
	}
	if !oneOf(c.Embedding.Provider, "hash", "onnx", "ollama") {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not hash, onnx or ollama", c.Embedding.Provider))
	}
	if !oneOf(c.Search.Mode, "snapshot", "live", "keyword") {
		errs = append(errs, fmt.Errorf("search.mode %q is not snapshot, live or keyword", c.Search.Mode))
	}
	if c.Search.DefaultK <= 0 {
		errs = append(errs, fmt.Errorf("search.default_k must be positive, got %d", c.Search.DefaultK))
	}
	if c.Documents.ChunkWords <= 0 {
		errs = append(errs, fmt.Errorf("documents.chunk_words must be positive, got %d", c.Documents.ChunkWords))
	} else if c.Documents.ChunkOverlap < 0 || c.Documents.ChunkOverlap >= c.Documents.ChunkWords {
		errs = append(errs, fmt.Errorf("documents.chunk_overlap %d must be in [0, %d)", c.Documents.ChunkOverlap, c.Documents.ChunkWords))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// expandPath converts a relative path to absolute. "~/" paths are relative to the home
// directory; other relative paths are relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
