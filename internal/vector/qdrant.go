package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/jourei/internal/models"
)

// QdrantConfig holds connection details for QdrantStore.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantStore is a minimal REST client for a Qdrant collection using cosine distance.
// The collection is created on first upsert. Each upserted chunk gets a fresh point id,
// so re-upserting a chunk id adds a second point.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	dimensions int
	client     *http.Client

	mu      sync.Mutex
	ensured bool
}

var errNotFound = errors.New("qdrant: not found")

// NewQdrantStore creates a client. No request is made until first use.
func NewQdrantStore(cfg QdrantConfig, dimensions int) (*QdrantStore, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, errors.New("qdrant: url and collection are required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantStore{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type qdrantPayload struct {
	ChunkID       string `json:"chunk_id"`
	Text          string `json:"text"`
	Article       string `json:"article"`
	Section       string `json:"section"`
	SequenceIndex int    `json:"sequence_index"`
	Source        string `json:"source,omitempty"`
	RecordIndex   int    `json:"record_index"`
	Overlap       int    `json:"overlap"`
}

type qdrantPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload qdrantPayload `json:"payload"`
}

func (s *QdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, nil)
	if errors.Is(err, errNotFound) {
		body := map[string]any{
			"vectors": map[string]any{"size": s.dimensions, "distance": "Cosine"},
		}
		err = s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", s.collection, err)
	}
	s.ensured = true
	return nil
}

// Upsert sends the batch in a single request with wait=true, which Qdrant applies atomically.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	points := make([]qdrantPoint, len(chunks))
	for i, ch := range chunks {
		if len(ch.Vector) != s.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", ch.ID, len(ch.Vector), s.dimensions)
		}
		m := ch.Metadata
		points[i] = qdrantPoint{
			ID:     uuid.New().String(),
			Vector: ch.Vector,
			Payload: qdrantPayload{
				ChunkID: ch.ID, Text: ch.Text,
				Article: m.Article, Section: m.Section, SequenceIndex: m.SequenceIndex,
				Source: m.Source, RecordIndex: m.RecordIndex, Overlap: m.Overlap,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *QdrantStore) SimilaritySearch(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := r.Payload
		out = append(out, models.ScoredChunk{
			Chunk: models.Chunk{
				ID:   p.ChunkID,
				Text: p.Text,
				Metadata: models.ChunkMetadata{
					Article: p.Article, Section: p.Section, SequenceIndex: p.SequenceIndex,
					Source: p.Source, RecordIndex: p.RecordIndex, Overlap: p.Overlap,
				},
			},
			Score: r.Score,
		})
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", map[string]any{"exact": true}, &resp)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. It is recreated on the next upsert.
func (s *QdrantStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.ensured = false
	s.mu.Unlock()
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
