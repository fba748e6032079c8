package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/jourei/internal/models"
)

// MemoryIndex is an in-memory Store using brute-force inner product search.
// Searches take a read lock, so concurrent queries do not block each other.
type MemoryIndex struct {
	dimensions int
	entries    []models.IndexedChunk
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Upsert appends the batch. Every vector is checked before any is added.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	for _, ch := range chunks {
		if len(ch.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", ch.ID, len(ch.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range chunks {
		vec := make([]float32, m.dimensions)
		copy(vec, ch.Vector)
		ch.Vector = vec
		m.entries = append(m.entries, ch)
	}
	return nil
}

// SimilaritySearch scores every entry against query. Ties keep insertion order.
func (m *MemoryIndex) SimilaritySearch(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	scored := make([]models.ScoredChunk, len(m.entries))
	for i := range m.entries {
		scored[i] = models.ScoredChunk{Chunk: m.entries[i].Chunk, Score: InnerProduct(query, m.entries[i].Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MemoryIndex) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
