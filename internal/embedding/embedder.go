// Package embedding computes text embeddings through OpenAI, a local ONNX model, or a deterministic mock.
package embedding

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
)

// Embedder produces vector embeddings for text. The same Embedder (same model)
// must be used at index time and at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Model identifies the embedding space, e.g. "openai/text-embedding-3-small".
	Model() string
	Close() error
}

// New builds the embedder selected by cfg.Provider, wrapped in an LRU cache when cfg.CacheSize > 0.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("embedding: %s is not set", cfg.APIKeyEnv)
		}
		e = NewOpenAIEmbedder(key, cfg, WithLogger(logger))
	case "onnx":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
