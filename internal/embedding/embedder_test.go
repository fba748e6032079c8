package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/jourei/internal/config"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i] * b[i])
	}
	return s
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Members shall pay annual dues.")
	b, _ := e.Embed(ctx, "members shall pay annual dues")
	c, _ := e.Embed(ctx, "The president presides over meetings.")
	if len(a) != 64 {
		t.Fatalf("len=%d", len(a))
	}
	if math.Abs(dot(a, a)-1) > 1e-5 {
		t.Errorf("embedding should be unit length, got %f", dot(a, a))
	}
	if math.Abs(dot(a, b)-1) > 1e-5 {
		t.Errorf("case and punctuation should not matter, got %f", dot(a, b))
	}
	if dot(a, c) >= dot(a, b) {
		t.Errorf("unrelated text should score lower")
	}
	empty, _ := e.Embed(ctx, "")
	if math.Abs(dot(empty, empty)-1) > 1e-5 {
		t.Error("empty text should still embed to a unit vector")
	}
}

func TestMockEmbedder_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockEmbedder(8).Embed(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}

func fakeOpenAI(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"unavailable","type":"server_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Object string `json:"object"`
			Data   []item `json:"data"`
			Model  string `json:"model"`
			Usage  struct {
				PromptTokens int `json:"prompt_tokens"`
				TotalTokens  int `json:"total_tokens"`
			} `json:"usage"`
		}{Object: "list", Model: req.Model}
		// answer in reverse order to exercise index placement
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, item{Object: "embedding", Index: i, Embedding: []float64{float64(i), 1, 0}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv, calls := fakeOpenAI(t, http.StatusOK)
	cfg := config.EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 3, BaseURL: srv.URL + "/v1/", TimeoutSecs: 5}
	e := NewOpenAIEmbedder("test-key", cfg)

	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected one request per batch, got %d", *calls)
	}
	for i, v := range out {
		if v[0] != float32(i) {
			t.Errorf("vector %d out of place: %v", i, v)
		}
	}
	if e.Model() != "openai/text-embedding-3-small" {
		t.Errorf("Model()=%s", e.Model())
	}
}

func TestOpenAIEmbedder_serverError(t *testing.T) {
	srv, _ := fakeOpenAI(t, http.StatusServiceUnavailable)
	cfg := config.EmbeddingConfig{Model: "text-embedding-3-small", BaseURL: srv.URL + "/v1/"}
	if _, err := NewOpenAIEmbedder("k", cfg).Embed(context.Background(), "q"); err == nil {
		t.Fatal("expected error from unavailable service")
	}
}

func TestNew(t *testing.T) {
	t.Setenv("JOUREI_TEST_KEY", "")
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		wantErr bool
	}{
		{"mock", config.EmbeddingConfig{Provider: "mock", Dimensions: 16}, false},
		{"mock cached", config.EmbeddingConfig{Provider: "mock", Dimensions: 16, CacheSize: 4}, false},
		{"openai without key", config.EmbeddingConfig{Provider: "openai", APIKeyEnv: "JOUREI_TEST_KEY"}, true},
		{"unknown", config.EmbeddingConfig{Provider: "word2vec"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err == nil && e.Dimensions() != 16 {
				t.Errorf("Dimensions()=%d", e.Dimensions())
			}
		})
	}
}
