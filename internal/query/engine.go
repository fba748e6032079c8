// Package query answers questions by embedding them, retrieving the nearest
// chunks and asking the generation service for a grounded, cited answer.
package query

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/embedding"
	"github.com/hyperjump/jourei/internal/llm"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/vector"
	"github.com/hyperjump/jourei/pkg/utils"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 3

// State is a stage of answering one question.
type State int

const (
	StateIdle State = iota
	StateEmbedding
	StateRetrieving
	StateGenerating
	StateResponding
)

var stateNames = [...]string{"idle", "embedding", "retrieving", "generating", "responding"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Engine holds the shared, read-only service handles. Each Ask call runs its own
// pipeline, so one Engine serves concurrent questions.
type Engine struct {
	embedder  embedding.Embedder
	store     vector.Store
	generator llm.Generator
	k         int
	observe   func(State)
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = utils.LoggerOrNop(l) }
}

// WithK sets how many chunks to retrieve.
func WithK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithObserver registers fn to be called on every state a question enters.
func WithObserver(fn func(State)) Option {
	return func(e *Engine) { e.observe = fn }
}

// NewEngine creates an engine. The embedder must be the one the store was indexed with.
func NewEngine(embedder embedding.Embedder, store vector.Store, generator llm.Generator, opts ...Option) *Engine {
	e := &Engine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		k:         DefaultK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// K returns the retrieval depth.
func (e *Engine) K() int {
	return e.k
}

func (e *Engine) enter(s State, question string) {
	e.logger.Debug("Query state", zap.Stringer("state", s), zap.String("question", utils.Truncate(question, 80)))
	if e.observe != nil {
		e.observe(s)
	}
}

// Ask answers question. A blank question fails with ErrInvalidQuestion before any
// service is called. Service failures come back as *ServiceError. An empty store
// is not an error: generation still runs, with an empty context.
func (e *Engine) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	e.enter(StateIdle, question)
	if strings.TrimSpace(question) == "" {
		return nil, ErrInvalidQuestion
	}
	start := time.Now()

	e.enter(StateEmbedding, question)
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &ServiceError{Service: "embedding", Err: err}
	}

	e.enter(StateRetrieving, question)
	matches, err := e.store.SimilaritySearch(ctx, vec, e.k)
	if err != nil {
		return nil, &ServiceError{Service: "vector store", Err: err}
	}
	matches = dedupe(matches)

	e.enter(StateGenerating, question)
	answer, err := e.generator.Generate(ctx, RenderPrompt(BuildContext(matches), question))
	if err != nil {
		return nil, &ServiceError{Service: "generation", Err: err}
	}

	e.enter(StateResponding, question)
	sources := make([]string, len(matches))
	for i, m := range matches {
		sources[i] = SourceOf(m.Metadata)
	}
	e.logger.Info("Answered question",
		zap.Int("matches", len(matches)),
		zap.Duration("took", time.Since(start)))
	return &models.QueryResult{Answer: strings.TrimSpace(answer), Sources: sources}, nil
}

// dedupe drops later matches whose chunk id was already seen, keeping rank order.
// Distinct chunks citing the same section are all kept.
func dedupe(matches []models.ScoredChunk) []models.ScoredChunk {
	seen := make(map[string]bool, len(matches))
	out := make([]models.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if m.ID != "" && seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}
