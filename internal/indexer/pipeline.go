package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/chunker"
	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/normalize"
	"github.com/hyperjump/jourei/internal/structure"
	"github.com/hyperjump/jourei/internal/vector"
	"github.com/hyperjump/jourei/pkg/utils"
)

// RecordIndex receives the structured records of every ingest run.
type RecordIndex interface {
	Rebuild(ctx context.Context, records []models.Record) error
}

// Pipeline runs raw text through normalization, structuring, chunking and indexing.
type Pipeline struct {
	cfg     *config.Config
	indexer *Indexer
	store   vector.Store
	model   string
	records RecordIndex
	logger  *zap.Logger
}

// NewPipeline wires a pipeline. records may be nil.
func NewPipeline(cfg *config.Config, idx *Indexer, records RecordIndex) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		indexer: idx,
		store:   idx.store,
		model:   idx.embedder.Model(),
		records: records,
		logger:  idx.logger,
	}
}

// StructureResult is the output of the structuring stage.
type StructureResult struct {
	Formatted string
	Records   []models.Record
	Stats     structure.Stats
}

// Report summarizes an ingest run.
type Report struct {
	Source   string          `json:"source"`
	Mode     string          `json:"mode"`
	Records  int             `json:"records"`
	Parse    structure.Stats `json:"parse"`
	Existing int             `json:"existing_chunks"`
	Cleared  bool            `json:"cleared"`
	Index    Result          `json:"index"`
}

// Structure normalizes and parses the raw source file, then writes the formatted
// text and the structured JSON as configured.
func (p *Pipeline) Structure(ctx context.Context) (*StructureResult, error) {
	return StructureSource(ctx, p.cfg.Source, p.logger)
}

// StructureSource runs the structuring stage alone. No service is contacted.
func StructureSource(ctx context.Context, src config.SourceConfig, logger *zap.Logger) (*StructureResult, error) {
	logger = utils.LoggerOrNop(logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(src.RawPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	formatted, records, stats := structure.Structure(normalize.Normalize(string(raw)))
	if stats.DroppedLines > 0 || stats.MalformedMarkers > 0 {
		logger.Debug("Parse anomalies",
			zap.Int("dropped_lines", stats.DroppedLines),
			zap.Int("malformed_markers", stats.MalformedMarkers))
	}
	if src.FormattedPath != "" {
		if err := structure.WriteFormatted(src.FormattedPath, formatted); err != nil {
			return nil, err
		}
	}
	if src.StructuredPath != "" {
		if err := structure.WriteJSON(src.StructuredPath, records); err != nil {
			return nil, err
		}
	}
	logger.Info("Structured source",
		zap.String("source", src.RawPath),
		zap.Int("records", len(records)))
	return &StructureResult{Formatted: formatted, Records: records, Stats: stats}, nil
}

// Chunks cuts the structuring output per the configured chunking mode.
func (p *Pipeline) Chunks(sr *StructureResult) []models.Chunk {
	c := p.cfg.Chunking
	ch := chunker.NewChunker(c.ChunkSize, c.ChunkOverlap, c.Separators)
	if c.Mode == config.ChunkModeRaw {
		return ch.ChunkText(p.cfg.Source.RawPath, sr.Formatted)
	}
	return ch.ChunkRecords(filepath.Base(p.cfg.Source.RawPath), sr.Records)
}

// Run ingests the source from scratch. Without clear, chunks are added on top of
// whatever the store already holds; duplicates are not detected.
func (p *Pipeline) Run(ctx context.Context, clear bool) (*Report, error) {
	sr, err := p.Structure(ctx)
	if err != nil {
		return nil, err
	}
	chunks := p.Chunks(sr)
	rep := &Report{
		Source:  p.cfg.Source.RawPath,
		Mode:    p.cfg.Chunking.Mode,
		Records: len(sr.Records),
		Parse:   sr.Stats,
		Cleared: clear,
	}

	if rep.Existing, err = p.store.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count stored chunks: %w", err)
	}
	if clear {
		if err := p.store.Clear(ctx); err != nil {
			return nil, err
		}
	} else if rep.Existing > 0 {
		p.logger.Warn("Store is not empty; re-indexing will duplicate entries (use --clear)",
			zap.Int("existing_chunks", rep.Existing))
	}
	if err := p.tagModel(ctx, clear || rep.Existing == 0); err != nil {
		return nil, err
	}

	if p.records != nil {
		if err := p.records.Rebuild(ctx, sr.Records); err != nil {
			return nil, fmt.Errorf("failed to index records: %w", err)
		}
	}

	rep.Index, err = p.indexer.Index(ctx, chunks)
	if err != nil {
		return rep, err
	}
	return rep, nil
}

// tagModel records the embedding model on stores that support it. Adding to a store
// built with another model is refused, since the vectors would not be comparable.
func (p *Pipeline) tagModel(ctx context.Context, fresh bool) error {
	tagger, ok := p.store.(vector.ModelTagger)
	if !ok {
		return nil
	}
	if !fresh {
		prev, err := tagger.EmbeddingModel(ctx)
		if err != nil {
			return err
		}
		if prev != "" && prev != p.model {
			return fmt.Errorf("store was built with embedding model %s, current model is %s; re-run with --clear", prev, p.model)
		}
	}
	return tagger.SetEmbeddingModel(ctx, p.model)
}
