// Package vector holds the vector store boundary and its implementations:
// an in-memory brute-force index, a SQLite-backed local store, and a Qdrant REST client.
package vector

import (
	"context"

	"github.com/hyperjump/jourei/internal/models"
)

// Store persists indexed chunks and answers k-nearest-neighbor queries.
//
// Upsert commits one batch atomically. Stores do not merge: upserting a chunk id
// that is already present adds a second entry, so rebuilding requires Clear first.
type Store interface {
	Upsert(ctx context.Context, chunks []models.IndexedChunk) error
	// SimilaritySearch returns up to k chunks, most similar first.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// ModelTagger is implemented by stores that remember which embedding model produced their vectors.
type ModelTagger interface {
	EmbeddingModel(ctx context.Context) (string, error)
	SetEmbeddingModel(ctx context.Context, model string) error
}
