package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/pkg/utils"
)

// Option configures an OpenAIEmbedder.
type Option func(*OpenAIEmbedder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *OpenAIEmbedder) {
		e.logger = utils.LoggerOrNop(l)
	}
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint (or any compatible server at BaseURL).
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an embedder for cfg.Model. Retries are left to the caller.
func NewOpenAIEmbedder(apiKey string, cfg config.EmbeddingConfig, opts ...Option) *OpenAIEmbedder {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSecs > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	e := &OpenAIEmbedder{
		client:     openai.NewClient(reqOpts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in a single request. Results are placed by the index the server reports.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	// Only the text-embedding-3 family accepts a dimensions override.
	if e.dimensions > 0 && strings.HasPrefix(e.model, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to embed batch of %d: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		out[d.Index] = utils.Float64To32(d.Embedding)
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embedding response missing index %d", i)
		}
	}
	e.logger.Debug("Embedded batch",
		zap.Int("texts", len(texts)),
		zap.String("model", e.model),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OpenAIEmbedder) Model() string {
	return "openai/" + e.model
}

func (e *OpenAIEmbedder) Close() error {
	return nil
}
