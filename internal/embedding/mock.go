package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/hyperjump/jourei/pkg/utils"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and offline runs.
// Each lowercased word is hashed into one dimension, so texts sharing words score
// higher than unrelated texts under inner product.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder with the given dimensions (default 384).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		emb[int(h.Sum32()%uint32(e.dimensions))]++
	}
	if len(words) == 0 {
		emb[0] = 1
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *MockEmbedder) Model() string {
	return fmt.Sprintf("mock/bow-%d", e.dimensions)
}

func (e *MockEmbedder) Close() error {
	return nil
}
