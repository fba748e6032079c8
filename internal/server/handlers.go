package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/jourei/internal/config"
	"github.com/hyperjump/jourei/internal/keyword"
	"github.com/hyperjump/jourei/internal/models"
	"github.com/hyperjump/jourei/internal/query"
	"github.com/hyperjump/jourei/internal/storage"
	"github.com/hyperjump/jourei/internal/vector"
)

const (
	defaultRecordLimit = 10
	maxRecordLimit     = 100
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"pong": "pong"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Blank() {
		s.respondError(w, http.StatusBadRequest, query.ErrInvalidQuestion.Error())
		return
	}
	if s.Rebuilding() {
		s.respondError(w, http.StatusServiceUnavailable, ErrRebuildInProgress.Error())
		return
	}
	res, err := s.engine.Ask(r.Context(), req.Question)
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusOK, res)
	case errors.Is(err, query.ErrInvalidQuestion):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, query.ErrServiceUnavailable):
		s.logger.Error("Query failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("Query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := CollectStatus(r.Context(), s.cfg, s.store, s.records)
	if err != nil {
		s.logger.Error("Status failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	st.Rebuilding = s.Rebuilding()
	s.respondJSON(w, http.StatusOK, st)
}

// CollectStatus reports the stored chunk count, record count and configuration.
// records may be nil.
func CollectStatus(ctx context.Context, cfg *config.Config, store vector.Store, records RecordSearcher) (*models.Status, error) {
	chunks, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	st := &models.Status{
		Chunks:         chunks,
		StoreType:      cfg.Vector.Type,
		EmbeddingModel: cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		Chunking: models.ChunkingStatus{
			Mode:         cfg.Chunking.Mode,
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		},
		K: cfg.Query.K,
	}
	if tagger, ok := store.(vector.ModelTagger); ok {
		if m, err := tagger.EmbeddingModel(ctx); err == nil && m != "" {
			st.EmbeddingModel = m
		}
	}
	if records != nil {
		if n, err := records.Count(); err == nil {
			st.Records = n
		}
	}
	if n, err := storage.DiskUsage(cfg.Storage.PersistDir, cfg.Storage.BleveIndexPath); err == nil {
		st.DiskUsageBytes = n
	}
	return st, nil
}

// RecordsResponse is the body of a record lookup.
type RecordsResponse struct {
	Query      string        `json:"query"`
	Hits       []keyword.Hit `json:"hits"`
	Suggestion string        `json:"suggestion,omitempty"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		s.respondError(w, http.StatusNotImplemented, "record lookup not enabled")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := defaultRecordLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecordLimit)
	}
	var opts *keyword.SearchOptions
	if v := r.URL.Query().Get("fuzzy"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 2 {
			s.respondError(w, http.StatusBadRequest, "fuzzy must be 0, 1 or 2")
			return
		}
		opts = &keyword.SearchOptions{Fuzziness: n}
	}

	hits, err := s.records.Search(r.Context(), q, limit, opts)
	if err != nil {
		s.logger.Error("Record lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := RecordsResponse{Query: q, Hits: hits}
	if resp.Hits == nil {
		resp.Hits = []keyword.Hit{}
	}
	if len(hits) == 0 {
		if terms, err := s.records.Terms(); err == nil {
			resp.Suggestion, _ = keyword.Suggest(q, terms, 2)
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
