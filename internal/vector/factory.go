package vector

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
)

// StoreType names a vector store implementation.
type StoreType string

const (
	// StoreTypeLocal persists to SQLite under storage.persist_dir and searches in memory.
	StoreTypeLocal StoreType = "local"
	// StoreTypeQdrant talks to a Qdrant server over REST.
	StoreTypeQdrant StoreType = "qdrant"
	// StoreTypeMemory keeps nothing on disk. Used by tests and dry runs.
	StoreTypeMemory StoreType = "memory"
)

// NewStore opens the store selected by cfg.Vector.Type for vectors of the given dimension.
func NewStore(ctx context.Context, cfg *config.Config, dimensions int, logger *zap.Logger) (Store, error) {
	switch StoreType(cfg.Vector.Type) {
	case StoreTypeLocal, "":
		s, err := OpenLocalStore(ctx, cfg.Storage.PersistDir, dimensions, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreTypeQdrant:
		q := cfg.Vector.Qdrant
		s, err := NewQdrantStore(QdrantConfig{
			URL:        q.URL,
			APIKey:     os.Getenv(q.APIKeyEnv),
			Collection: q.Collection,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}, dimensions)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoreTypeMemory:
		s, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s (supported: local, qdrant, memory)", cfg.Vector.Type)
	}
}
