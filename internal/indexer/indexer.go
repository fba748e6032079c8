// Package indexer embeds chunks in batches and commits them to a vector store,
// and runs the full raw-text-to-store ingest pipeline.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/jourei/internal/embedding"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/vector"
	"github.com/hyperjump/jourei/pkg/utils"
)

// Indexer submits chunks to the embedder and persists them into the store.
// Each batch is embedded and upserted on its own, so a failed batch never
// undoes batches already committed.
type Indexer struct {
	embedder    embedding.Embedder
	store       vector.Store
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = utils.LoggerOrNop(l) }
}

// WithBatchSize bounds how many chunks go into one embedding request.
func WithBatchSize(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithConcurrency sets how many batches may be in flight at once.
func WithConcurrency(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.concurrency = n
		}
	}
}

// New creates an indexer. Defaults: batches of 50, one at a time.
func New(embedder embedding.Embedder, store vector.Store, opts ...Option) *Indexer {
	idx := &Indexer{
		embedder:    embedder,
		store:       store,
		batchSize:   50,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Result summarizes an indexing run.
type Result struct {
	Chunks           int `json:"chunks"`
	Batches          int `json:"batches"`
	CommittedBatches int `json:"committed_batches"`
	CommittedChunks  int `json:"committed_chunks"`
}

// Index embeds and stores chunks. On error the returned Result still reports
// what was committed; remaining batches are abandoned.
func (idx *Indexer) Index(ctx context.Context, chunks []models.Chunk) (Result, error) {
	res := Result{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return res, nil
	}
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for lo := 0; lo < len(chunks); lo += idx.batchSize {
		batch := chunks[lo:min(lo+idx.batchSize, len(chunks))]
		n := res.Batches
		res.Batches++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := idx.indexBatch(gctx, batch); err != nil {
				return fmt.Errorf("batch %d: %w", n, err)
			}
			mu.Lock()
			res.CommittedBatches++
			res.CommittedChunks += len(batch)
			mu.Unlock()
			idx.logger.Debug("Committed batch", zap.Int("batch", n), zap.Int("chunks", len(batch)))
			return nil
		})
	}
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		idx.logger.Error("Indexing stopped",
			zap.Int("committed_chunks", res.CommittedChunks),
			zap.Int("chunks", res.Chunks),
			zap.Error(err))
		return res, err
	}
	idx.logger.Info("Indexed chunks",
		zap.Int("chunks", res.Chunks),
		zap.Int("batches", res.Batches),
		zap.String("model", idx.embedder.Model()),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (idx *Indexer) indexBatch(ctx context.Context, batch []models.Chunk) error {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}
	items := make([]models.IndexedChunk, len(batch))
	for i, ch := range batch {
		items[i] = models.IndexedChunk{Chunk: ch, Vector: vectors[i]}
	}
	if err := idx.store.Upsert(ctx, items); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}
	return nil
}
