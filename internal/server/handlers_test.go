package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/jourei/internal/chunker"
	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/embedding"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/llm"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/query"
	"github.com/hyperjump/jourei/internal/structure"
	"github.com/hyperjump/jourei/internal/vector"
)

const bylaws = "=== Article I: Name === This org is named Alpha. " +
	"=== Section 1: Purpose === To promote scholarship and brotherhood. " +
	"=== Article II: Membership === === Section 1: Dues === Annual dues are fifty dollars."

type stubAsker struct {
	res   *models.QueryResult
	err   error
	calls int
}

func (a *stubAsker) Ask(ctx context.Context, question string) (*models.QueryResult, error) {
	a.calls++
	return a.res, a.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	dir := t.TempDir()
	cfg.Storage.PersistDir = dir + "/vectors"
	cfg.Storage.BleveIndexPath = dir + "/records.bleve"
	cfg.Vector.Type = "memory"
	cfg.Embedding.Provider = "mock"
	return cfg
}

// newTestServer indexes the sample bylaws into memory and serves them with mock services.
func newTestServer(t *testing.T) (*Server, *llm.MockGenerator) {
	t.Helper()
	cfg := testConfig(t)
	emb := embedding.NewMockEmbedder(256)
	store, err := vector.NewMemoryIndex(256)
	if err != nil {
		t.Fatal(err)
	}
	_, records, _ := structure.Structure(bylaws)
	chunks := chunker.NewChunker(1000, 100, config.DefaultSeparators).ChunkRecords("bylaws_raw.txt", records)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := emb.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	indexed := make([]models.IndexedChunk, len(chunks))
	for i := range chunks {
		indexed[i] = models.IndexedChunk{Chunk: chunks[i], Vector: vecs[i]}
	}
	if err := store.Upsert(context.Background(), indexed); err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })
	if err := kw.Rebuild(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	gen := llm.NewMockGenerator()
	engine := query.NewEngine(emb, store, gen)
	return NewServer(engine, store, cfg, WithRecords(kw)), gen
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestPingAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/ping", "")
	var ping map[string]string
	decode(t, w, &ping)
	if w.Code != http.StatusOK || ping["pong"] != "pong" {
		t.Errorf("ping: %d %v", w.Code, ping)
	}

	w = do(t, h, http.MethodGet, "/health", "")
	var health map[string]string
	decode(t, w, &health)
	if w.Code != http.StatusOK || health["status"] != "ok" {
		t.Errorf("health: %d %v", w.Code, health)
	}
}

func TestHandleQuery(t *testing.T) {
	srv, gen := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/query", `{"question":"How much are annual dues?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var res models.QueryResult
	decode(t, w, &res)
	if len(res.Sources) != 2 || res.Sources[0] != "Article II: Membership > Section 1: Dues" {
		t.Errorf("sources = %v", res.Sources)
	}
	if !strings.Contains(res.Answer, "Annual dues are fifty dollars.") {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(gen.Prompts()) != 1 {
		t.Errorf("generator calls = %d", len(gen.Prompts()))
	}
}

func TestHandleQuery_invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty question", `{"question":""}`, "Question cannot be empty."},
		{"whitespace question", `{"question":"   "}`, "Question cannot be empty."},
		{"missing question", `{}`, "Question cannot be empty."},
		{"bad json", `{"question":`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &stubAsker{}
			srv := NewServer(asker, nil, testConfig(t))
			w := do(t, srv.Handler(), http.MethodPost, "/query", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var body map[string]string
			decode(t, w, &body)
			if body["error"] != tt.want {
				t.Errorf("error = %q, want %q", body["error"], tt.want)
			}
			if asker.calls != 0 {
				t.Errorf("engine called %d times", asker.calls)
			}
		})
	}
}

func TestHandleQuery_errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"service unavailable", &query.ServiceError{Service: "embedding", Err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable},
		{"invalid from engine", query.ErrInvalidQuestion, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&stubAsker{err: tt.err}, nil, testConfig(t))
			w := do(t, srv.Handler(), http.MethodPost, "/query", `{"question":"q"}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleQuery_duringRebuild(t *testing.T) {
	asker := &stubAsker{res: &models.QueryResult{Answer: "a", Sources: []string{}}}
	srv := NewServer(asker, nil, testConfig(t))
	h := srv.Handler()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- srv.Rebuild(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if w := do(t, h, http.MethodPost, "/query", `{"question":"q"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("during rebuild: status = %d, want 503", w.Code)
	}
	if err := srv.Rebuild(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrRebuildInProgress) {
		t.Errorf("concurrent rebuild err = %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if w := do(t, h, http.MethodPost, "/query", `{"question":"q"}`); w.Code != http.StatusOK {
		t.Errorf("after rebuild: status = %d, want 200", w.Code)
	}
	if asker.calls != 1 {
		t.Errorf("engine calls = %d, want 1", asker.calls)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var st models.Status
	decode(t, w, &st)
	if st.Chunks != 2 || st.Records != 2 || st.StoreType != "memory" || st.K != 3 {
		t.Errorf("status = %+v", st)
	}
	if st.Chunking.ChunkSize != 1000 || st.Chunking.ChunkOverlap != 100 || st.Chunking.Mode != config.ChunkModeRecords {
		t.Errorf("chunking = %+v", st.Chunking)
	}
}

func TestHandleRecords(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/v1/records?q=dues", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp RecordsResponse
	decode(t, w, &resp)
	if len(resp.Hits) != 1 || resp.Hits[0].Record.SectionLabel() != "Section 1: Dues" {
		t.Errorf("hits = %+v", resp.Hits)
	}

	w = do(t, h, http.MethodGet, "/api/v1/records?q=scholarshp", "")
	resp = RecordsResponse{}
	decode(t, w, &resp)
	if len(resp.Hits) != 0 || resp.Suggestion != "scholarship" {
		t.Errorf("misspelled lookup = %+v", resp)
	}

	w = do(t, h, http.MethodGet, "/api/v1/records?q=scholarshp&fuzzy=1", "")
	resp = RecordsResponse{}
	decode(t, w, &resp)
	if len(resp.Hits) != 1 {
		t.Errorf("fuzzy lookup hits = %d, want 1", len(resp.Hits))
	}

	for _, target := range []string{"/api/v1/records", "/api/v1/records?q=x&limit=0", "/api/v1/records?q=x&fuzzy=3"} {
		if w := do(t, h, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestHandleRecords_disabled(t *testing.T) {
	srv := NewServer(&stubAsker{}, nil, testConfig(t))
	if w := do(t, srv.Handler(), http.MethodGet, "/api/v1/records?q=x", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := NewServer(&stubAsker{}, nil, testConfig(t))
	h := srv.Handler()

	r := httptest.NewRequest(http.MethodOptions, "/query", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", "POST")
	r.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code < 200 || w.Code > 299 {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow credentials = %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("max age = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("allow headers = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("simple request: status %d, allow origin %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}

	r = httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}
