package vector

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/storage"
	"github.com/hyperjump/jourei/pkg/utils"
)

// DBFileName is the database file created under the persist directory.
const DBFileName = "jourei.db"

const metaEmbeddingModel = "embedding_model"

// LocalStore keeps chunks durably in SQLite and serves searches from an in-memory index
// loaded at open time.
type LocalStore struct {
	db     *storage.SQLiteStorage
	index  *MemoryIndex
	logger *zap.Logger
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) LocalOption {
	return func(s *LocalStore) {
		s.logger = utils.LoggerOrNop(l)
	}
}

// OpenLocalStore opens (or creates) the store under dir and loads every persisted chunk.
// It fails if stored vectors do not have the given dimension.
func OpenLocalStore(ctx context.Context, dir string, dimensions int, opts ...LocalOption) (*LocalStore, error) {
	index, err := NewMemoryIndex(dimensions)
	if err != nil {
		return nil, err
	}
	db, err := storage.NewSQLiteStorage(filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, err
	}
	s := &LocalStore{db: db, index: index, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	var batch []models.IndexedChunk
	err = db.ForEachChunk(ctx, func(ch models.IndexedChunk) error {
		batch = append(batch, ch)
		return nil
	})
	if err == nil {
		err = index.Upsert(ctx, batch)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load vector store %s: %w", dir, err)
	}
	s.logger.Debug("Loaded vector store", zap.String("dir", dir), zap.Int("chunks", len(batch)))
	return s, nil
}

// Upsert persists the batch in one transaction, then makes it searchable.
func (s *LocalStore) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	for _, ch := range chunks {
		if len(ch.Vector) != s.index.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", ch.ID, len(ch.Vector), s.index.dimensions)
		}
	}
	if err := s.db.InsertChunks(ctx, chunks); err != nil {
		return err
	}
	return s.index.Upsert(ctx, chunks)
}

func (s *LocalStore) SimilaritySearch(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	return s.index.SimilaritySearch(ctx, query, k)
}

func (s *LocalStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// Clear deletes every persisted chunk and empties the index.
func (s *LocalStore) Clear(ctx context.Context) error {
	if err := s.db.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear vector store: %w", err)
	}
	return s.index.Clear(ctx)
}

func (s *LocalStore) EmbeddingModel(ctx context.Context) (string, error) {
	return s.db.GetMeta(ctx, metaEmbeddingModel)
}

func (s *LocalStore) SetEmbeddingModel(ctx context.Context, model string) error {
	return s.db.SetMeta(ctx, metaEmbeddingModel, model)
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
