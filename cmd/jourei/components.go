package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/embedding"
	"github.com/hyperjump/jourei/internal/indexer"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/llm"
	"github.com/hyperjump/jourei/internal/query"
	"github.com/hyperjump/jourei/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Generator llm.Generator
	Store     vector.Store
	Records   *keyword.RecordIndex
	Engine    *query.Engine
	Indexer   *indexer.Indexer
	Pipeline  *indexer.Pipeline
}

// Close releases every opened service.
func (c *Components) Close() {
	if c.Records != nil {
		_ = c.Records.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// initializeComponents opens the embedder, vector store and record index. The
// generation service and the query engine are only created when withGenerator
// is set, so indexing works without generation credentials.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withGenerator bool) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var err error
	c.Embedder, err = embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Store, err = vector.NewStore(ctx, cfg, c.Embedder.Dimensions(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	c.Records, err = keyword.Open(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record index: %w", err)
	}
	logger.Info("Components initialized",
		zap.String("embedding_model", c.Embedder.Model()),
		zap.String("store", cfg.Vector.Type))

	c.Indexer = indexer.New(c.Embedder, c.Store,
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
		indexer.WithConcurrency(cfg.Embedding.Concurrency))
	c.Pipeline = indexer.NewPipeline(cfg, c.Indexer, c.Records)

	if withGenerator {
		c.Generator, err = llm.New(cfg.Generation, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		c.Engine = query.NewEngine(c.Embedder, c.Store, c.Generator,
			query.WithLogger(logger),
			query.WithK(cfg.Query.K))
	}
	ok = true
	return c, nil
}
