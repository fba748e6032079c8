// Package llm is the text-generation boundary: prompt in, answer out.
package llm

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
)

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// New builds the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("generation: %s is not set", cfg.APIKeyEnv)
		}
		return NewOpenAIGenerator(key, cfg, WithLogger(logger)), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("generation: unknown provider %q", cfg.Provider)
	}
}
