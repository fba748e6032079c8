package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/jourei/internal/config"
)

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator()
	ctx := context.Background()

	got, err := g.Generate(ctx, "CONTEXT:\nDues are $50.\nmore\n\nQUESTION: dues?\n\nAnswer")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Dues are $50.") {
		t.Errorf("answer should echo context, got %q", got)
	}

	got, _ = g.Generate(ctx, "CONTEXT:\n\n\nQUESTION: anything\n\nAnswer")
	if got != NoInformationAnswer {
		t.Errorf("empty context should yield the no-information answer, got %q", got)
	}
	if len(g.Prompts()) != 2 {
		t.Errorf("Prompts()=%d", len(g.Prompts()))
	}

	g.Err = errors.New("down")
	if _, err := g.Generate(ctx, "x"); err == nil {
		t.Error("expected configured error")
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var gotReq struct {
		Model       string   `json:"model"`
		Temperature *float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Per Article I, Section 1."}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	cfg := config.GenerationConfig{Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1/", TimeoutSecs: 5}
	g := NewOpenAIGenerator("test-key", cfg)
	answer, err := g.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "Per Article I, Section 1." {
		t.Errorf("answer=%q", answer)
	}
	if gotReq.Model != "gpt-4o-mini" || gotReq.Temperature == nil || *gotReq.Temperature != 0 {
		t.Errorf("unexpected request %+v", gotReq)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" || gotReq.Messages[0].Content != "the prompt" {
		t.Errorf("unexpected messages %+v", gotReq.Messages)
	}
}

func TestNew(t *testing.T) {
	t.Setenv("JOUREI_TEST_KEY", "")
	if _, err := New(config.GenerationConfig{Provider: "mock"}, nil); err != nil {
		t.Errorf("mock: %v", err)
	}
	if _, err := New(config.GenerationConfig{Provider: "openai", APIKeyEnv: "JOUREI_TEST_KEY"}, nil); err == nil {
		t.Error("expected missing key error")
	}
	if _, err := New(config.GenerationConfig{Provider: "other"}, nil); err == nil {
		t.Error("expected unknown provider error")
	}
}
