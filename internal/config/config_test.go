package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: mock
query:
  k: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Query.K != 5 {
		t.Errorf("query.k = %d, want 5", cfg.Query.K)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("mock provider dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
source:
  raw_path: "./docs/bylaws_raw.txt"
storage:
  persist_dir: "./data/chroma"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "docs", "bylaws_raw.txt"); cfg.Source.RawPath != want {
		t.Errorf("raw_path = %s, want %s", cfg.Source.RawPath, want)
	}
	if want := filepath.Join(dir, "data", "chroma"); cfg.Storage.PersistDir != want {
		t.Errorf("persist_dir = %s, want %s", cfg.Storage.PersistDir, want)
	}
	if want := filepath.Join(dir, "data", "bylaws_structured.json"); cfg.Source.StructuredPath != want {
		t.Errorf("default structured_path = %s, want %s", cfg.Source.StructuredPath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap not smaller than size", "chunking:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"unknown chunk mode", "chunking:\n  mode: pages\n"},
		{"negative k", "query:\n  k: -1\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: %+v", cfg.Server)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("default origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 100 {
		t.Errorf("default chunking: %+v", cfg.Chunking)
	}
	if cfg.Chunking.Mode != ChunkModeRecords {
		t.Errorf("default chunk mode: %s", cfg.Chunking.Mode)
	}
	if len(cfg.Chunking.Separators) != len(DefaultSeparators) || cfg.Chunking.Separators[0] != "=== Article" {
		t.Errorf("default separators: %q", cfg.Chunking.Separators)
	}
	if cfg.Query.K != 3 {
		t.Errorf("default k: %d", cfg.Query.K)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Embedding.BatchSize != 50 {
		t.Errorf("default batch size: %d", cfg.Embedding.BatchSize)
	}
	if cfg.Generation.Model != "gpt-4o-mini" || cfg.Generation.Temperature != 0 {
		t.Errorf("default generation: %+v", cfg.Generation)
	}
	if cfg.Vector.Type != "local" || cfg.Vector.Qdrant.Collection != "bylaws" {
		t.Errorf("default vector: %+v", cfg.Vector)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_separatorsSliceNotShared(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Chunking.Separators[0] = "changed"
	if DefaultSeparators[0] != "=== Article" {
		t.Error("ApplyDefaults must copy DefaultSeparators")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{Server: ServerConfig{Host: "localhost", Port: 9090}}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
