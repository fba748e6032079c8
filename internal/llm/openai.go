package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/pkg/utils"
)

// Option configures an OpenAIGenerator.
type Option func(*OpenAIGenerator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *OpenAIGenerator) {
		g.logger = utils.LoggerOrNop(l)
	}
}

// OpenAIGenerator sends the prompt as a single user message to the chat completions endpoint.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	logger      *zap.Logger
}

// NewOpenAIGenerator creates a chat generator for cfg.Model at cfg.Temperature.
func NewOpenAIGenerator(apiKey string, cfg config.GenerationConfig, opts ...Option) *OpenAIGenerator {
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
	g := &OpenAIGenerator{
		client:      openai.NewClient(reqOpts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation response has no choices")
	}
	g.logger.Debug("Generated answer",
		zap.String("model", g.model),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) Model() string {
	return "openai/" + g.model
}
