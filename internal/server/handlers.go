package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/coordinator"
	"github.com/olegasics/VectorScan/internal/models"
	"github.com/olegasics/VectorScan/internal/storage"
	"github.com/olegasics/VectorScan/internal/vector"
)

type indexRequest struct {
	Texts   []string                `json:"texts"`
	Records []models.MetadataRecord `json:"records"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n := len(req.Texts) + len(req.Records)
	if n == 0 {
		s.respondError(w, http.StatusBadRequest, "texts or records are required")
		return
	}
	s.logger.Debug("index request", zap.Int("texts", len(req.Texts)), zap.Int("records", len(req.Records)))

	err := s.backend.IndexTexts(r.Context(), req.Texts)
	if err == nil && len(req.Records) > 0 {
		err = s.backend.IndexRecords(r.Context(), req.Records)
	}
	if err == nil {
		err = s.backend.Save()
	}
	s.metrics.observe("index", err)
	if err != nil {
		s.fail(w, "indexing failed", err)
		return
	}
	size := s.backend.CurrentSize()
	s.metrics.indexSize.Set(float64(size))
	s.respondJSON(w, http.StatusCreated, map[string]int{"added": n, "size": size})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if query.Mode == "" {
		query.Mode = string(s.defaultMode)
	}
	if err := query.Validate(s.defaultK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("k", query.K), zap.String("mode", query.Mode))

	start := time.Now()
	hits, err := s.backend.SearchHits(r.Context(), query.Query, query.K, coordinator.Mode(query.Mode))
	elapsed := time.Since(start)
	s.metrics.observe("search", err)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.metrics.searchDuration.WithLabelValues(query.Mode).Observe(elapsed.Seconds())
	if hits == nil {
		hits = []models.SearchHit{}
	}
	s.respondJSON(w, http.StatusOK, &models.SearchResponse{
		Query:     query.Query,
		Mode:      query.Mode,
		K:         query.K,
		Hits:      hits,
		Total:     len(hits),
		QueryTime: elapsed.Milliseconds(),
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	suggestion, err := s.backend.Suggest(r.Context(), q)
	if err != nil {
		s.fail(w, "suggest failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"query": q, "suggestion": suggestion})
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]int{"size": s.backend.CurrentSize()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.backend.Stats()
	if n, err := storage.DiskUsageBytes(stats.IndexPath, vector.TombstonePath(stats.IndexPath), stats.MetadataPath); err == nil {
		stats.DiskUsageBytes = n
	} else {
		s.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	err := s.backend.Save()
	s.metrics.observe("save", err)
	if err != nil {
		s.fail(w, "save failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "saved", "size": s.backend.CurrentSize()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "position must be an integer")
		return
	}
	s.logger.Debug("delete request", zap.Int("position", pos))
	err = s.backend.Delete(r.Context(), pos)
	if err == nil {
		err = s.backend.Save()
	}
	s.metrics.observe("delete", err)
	if err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "deleted", "position": pos})
}

func (s *Server) handleCompact(w http.ResponseWriter, r *http.Request) {
	removed, err := s.backend.Compact(r.Context())
	s.metrics.observe("compact", err)
	if err != nil {
		s.fail(w, "compaction failed", err)
		return
	}
	size := s.backend.CurrentSize()
	s.metrics.indexSize.Set(float64(size))
	s.respondJSON(w, http.StatusOK, map[string]int{"removed": removed, "size": size})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vector.ErrDimensionMismatch), errors.Is(err, vector.ErrInvalidPosition):
		return http.StatusBadRequest
	case errors.Is(err, vector.ErrNotFound), errors.Is(err, storage.ErrIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrInconsistentIndex):
		return http.StatusConflict
	case errors.Is(err, coordinator.ErrEmbeddingFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
