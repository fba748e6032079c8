package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/jourei/internal/models"
)

// fakeQdrant implements the handful of REST endpoints QdrantStore uses.
type fakeQdrant struct {
	mu     sync.Mutex
	exists bool
	points []qdrantPoint
	apiKey string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = r.Header.Get("api-key")
	path := strings.TrimPrefix(r.URL.Path, "/collections/bylaws")
	if !f.exists && !(r.Method == http.MethodPut && path == "") {
		http.NotFound(w, r)
		return
	}
	switch {
	case r.Method == http.MethodGet && path == "":
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.Method == http.MethodPut && path == "":
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodDelete && path == "":
		f.exists = false
		f.points = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && path == "/points":
		var body struct {
			Points []qdrantPoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && path == "/points/count":
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]int{"count": len(f.points)}})
	case r.Method == http.MethodPost && path == "/points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			Score   float64       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		}
		var hits []hit
		for _, p := range f.points {
			hits = append(hits, hit{Score: InnerProduct(body.Vector, p.Vector), Payload: p.Payload})
		}
		for i := 1; i < len(hits); i++ {
			for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
				hits[j], hits[j-1] = hits[j-1], hits[j]
			}
		}
		if len(hits) > body.Limit {
			hits = hits[:body.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func TestQdrantStore(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	s, err := NewQdrantStore(QdrantConfig{URL: srv.URL, APIKey: "secret", Collection: "bylaws"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count on missing collection = %d, %v", n, err)
	}
	if res, err := s.SimilaritySearch(ctx, []float32{1, 0}, 3); err != nil || len(res) != 0 {
		t.Fatalf("search on missing collection = %v, %v", res, err)
	}

	if err := s.Upsert(ctx, []models.IndexedChunk{chunk("a", 1, 0), chunk("b", 0, 1)}); err != nil {
		t.Fatal(err)
	}
	if fake.apiKey != "secret" {
		t.Errorf("api-key header = %q", fake.apiKey)
	}
	if err := s.Upsert(ctx, []models.IndexedChunk{chunk("a", 1, 0)}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Errorf("Count=%d, want 3 (duplicates kept)", n)
	}

	res, err := s.SimilaritySearch(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ID != "b" || res[0].Metadata.Article != "Article I: Name" {
		t.Fatalf("unexpected search result %+v", res)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count after Clear=%d", n)
	}
	if err := s.Upsert(ctx, []models.IndexedChunk{chunk("c", 1, 0)}); err != nil {
		t.Fatalf("upsert after clear should recreate the collection: %v", err)
	}
}

func TestNewQdrantStore_requiresConfig(t *testing.T) {
	if _, err := NewQdrantStore(QdrantConfig{URL: "http://x"}, 2); err == nil {
		t.Error("expected error without collection")
	}
}
