package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 384
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "./vector_db/states/index.vsx"
	}
	if cfg.Index.Compression == "" {
		cfg.Index.Compression = "none"
	}
	if cfg.Metadata.Backend == "" {
		cfg.Metadata.Backend = "file"
	}
	if cfg.Metadata.Path == "" {
		cfg.Metadata.Path = "./vector_db/states/metadata.txt"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./vector_db/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OllamaURL == "" {
		cfg.Embedding.OllamaURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Scanner.Marker == "" {
		cfg.Scanner.Marker = "index_for_vector_db"
	}
	if cfg.Scanner.Languages == nil {
		cfg.Scanner.Languages = []string{"python", "go"}
	}
	if cfg.Scanner.Include == nil {
		cfg.Scanner.Include = []string{"**/*.py", "**/*.go"}
	}
	if cfg.Scanner.Exclude == nil {
		cfg.Scanner.Exclude = []string{"**/vendor/**", "**/.git/**", "**/node_modules/**"}
	}
	if cfg.Scanner.Workers == 0 {
		cfg.Scanner.Workers = 4
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 20
	}
	if cfg.Search.Mode == "" {
		cfg.Search.Mode = "snapshot"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Documents.ChunkWords == 0 {
		cfg.Documents.ChunkWords = 200
		if cfg.Documents.ChunkOverlap == 0 {
			cfg.Documents.ChunkOverlap = 40
		}
	}
}
