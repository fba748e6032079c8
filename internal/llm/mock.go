package llm

import (
	"context"
	"strings"
	"sync"
)

// NoInformationAnswer is what MockGenerator says when the prompt carries no context.
const NoInformationAnswer = "I could not find relevant information in the bylaws to answer that question."

// MockGenerator answers deterministically from the prompt: it echoes the first
// context line, or NoInformationAnswer when the context block is empty.
// It records every prompt it receives.
type MockGenerator struct {
	mu      sync.Mutex
	prompts []string
	Err     error
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	block := contextBlock(prompt)
	if block == "" {
		return NoInformationAnswer, nil
	}
	first, _, _ := strings.Cut(block, "\n")
	return "According to the bylaws: " + first, nil
}

func (g *MockGenerator) Model() string {
	return "mock/echo"
}

// Prompts returns the prompts received so far.
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// contextBlock extracts the text between "CONTEXT:" and "QUESTION:".
func contextBlock(prompt string) string {
	_, after, ok := strings.Cut(prompt, "CONTEXT:")
	if !ok {
		return ""
	}
	before, _, _ := strings.Cut(after, "QUESTION:")
	return strings.TrimSpace(before)
}
