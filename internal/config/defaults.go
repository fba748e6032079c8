package config

// Chunking modes.
const (
	ChunkModeRecords = "records"
	ChunkModeRaw     = "raw"
)

// DefaultSeparators are the chunk boundaries tried from coarsest to finest
// before falling back to a hard character cut.
var DefaultSeparators = []string{"=== Article", "=== Section", "\n\n", "\n", ". ", " "}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.Source.RawPath == "" {
		cfg.Source.RawPath = "./bylaws_raw.txt"
	}
	if cfg.Source.FormattedPath == "" {
		cfg.Source.FormattedPath = "./data/bylaws_formatted.txt"
	}
	if cfg.Source.StructuredPath == "" {
		cfg.Source.StructuredPath = "./data/bylaws_structured.json"
	}
	if cfg.Storage.PersistDir == "" {
		cfg.Storage.PersistDir = "./data/vectors"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/records.bleve"
	}
	applyEmbeddingDefaults(&cfg.Embedding)
	applyGenerationDefaults(&cfg.Generation)
	if cfg.Chunking.Mode == "" {
		cfg.Chunking.Mode = ChunkModeRecords
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 100
	}
	if cfg.Chunking.Separators == nil {
		cfg.Chunking.Separators = append([]string(nil), DefaultSeparators...)
	}
	if cfg.Query.K == 0 {
		cfg.Query.K = 3
	}
	if cfg.Vector.Type == "" {
		cfg.Vector.Type = "local"
	}
	if cfg.Vector.Qdrant.URL == "" {
		cfg.Vector.Qdrant.URL = "http://localhost:6333"
	}
	if cfg.Vector.Qdrant.Collection == "" {
		cfg.Vector.Qdrant.Collection = "bylaws"
	}
	if cfg.Vector.Qdrant.TimeoutSecs == 0 {
		cfg.Vector.Qdrant.TimeoutSecs = 15
	}
}

func applyEmbeddingDefaults(e *EmbeddingConfig) {
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
	}
	if e.Dimensions == 0 {
		switch e.Provider {
		case "onnx", "mock":
			e.Dimensions = 384
		default:
			e.Dimensions = 1536
		}
	}
	if e.BatchSize == 0 {
		e.BatchSize = 50
	}
	if e.Concurrency == 0 {
		e.Concurrency = 1
	}
	if e.APIKeyEnv == "" {
		e.APIKeyEnv = "OPENAI_API_KEY"
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}
	if e.CacheSize == 0 {
		e.CacheSize = 1000
	}
	if e.MaxTokens == 0 {
		e.MaxTokens = 256
	}
}

// Temperature has no default; unset means 0.
func applyGenerationDefaults(g *GenerationConfig) {
	if g.Provider == "" {
		g.Provider = "openai"
	}
	if g.Model == "" {
		g.Model = "gpt-4o-mini"
	}
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "OPENAI_API_KEY"
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}
}
