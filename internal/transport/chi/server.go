// Package chi exposes the HTTP API: query (sync and SSE), bookmark and
// tag management, summaries, health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	bookmarkuc "github.com/hypermemo/hypermemo/internal/usecase/bookmark"
	healthuc "github.com/hypermemo/hypermemo/internal/usecase/health"
	queryuc "github.com/hypermemo/hypermemo/internal/usecase/query"
)

// bookmarkService is the bookmark use case surface the API consumes.
type bookmarkService interface {
	Save(ctx context.Context, ownerID string, in bookmarkuc.SaveInput) (domain.Bookmark, bool, error)
	Get(ctx context.Context, ownerID, id string) (domain.Bookmark, error)
	List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error)
	Delete(ctx context.Context, ownerID, id string) error
	Summarize(ctx context.Context, title, content, url string) (string, error)
	SuggestTags(ctx context.Context, title, content string) ([]string, error)
}

type tagService interface {
	Create(ctx context.Context, ownerID, name string) (domain.Tag, error)
	List(ctx context.Context, ownerID string) ([]domain.Tag, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type queryService interface {
	Ask(ctx context.Context, req *queryuc.Request) (*queryuc.Answer, error)
	Stream(ctx context.Context, req *queryuc.Request) (<-chan domain.StreamEvent, error)
}

type healthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	bookmarks     bookmarkService
	tags          tagService
	query         queryService
	health        healthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	bookmarks bookmarkService,
	tags tagService,
	query queryService,
	health healthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		bookmarks: bookmarks,
		tags:      tags,
		query:     query,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrQuestionTooShort, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrBookmarkNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrTagNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrEmptyEmbedding, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.Query)

		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", s.ListBookmarks)
			r.Post("/", s.SaveBookmark)
			r.Get("/{id}", s.GetBookmark)
			r.Delete("/{id}", s.DeleteBookmark)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.ListTags)
			r.Post("/", s.CreateTag)
			r.Delete("/{id}", s.DeleteTag)
		})

		r.Post("/summaries", s.Summarize)
		r.Post("/summaries/tags", s.SuggestTags)
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Query handles POST /api/v1/query. With "stream": true the answer is
// delivered as server-sent events; otherwise as a single JSON response.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ucReq := queryRequestFromDTO(OwnerFromContext(r.Context()), req)

	if req.Stream {
		s.streamQuery(w, r, ucReq)
		return
	}

	answer, err := s.query.Ask(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:  answer.Answer,
		Matches: matchesToDTO(answer.Matches),
	})
}

func (s *Server) streamQuery(w http.ResponseWriter, r *http.Request, req *queryuc.Request) {
	events, err := s.query.Stream(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.logger.Error("streaming unsupported by response writer")
		writeError(w, http.StatusInternalServerError, codeInternalError, "streaming unsupported")
		return
	}

	for ev := range events {
		if err := sse.Write(ev); err != nil {
			// Client went away; the pipeline stops via request context.
			s.logger.Debug("SSE write failed", zap.Error(err))
			return
		}
	}
}

// ListBookmarks handles GET /api/v1/bookmarks.
func (s *Server) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	items, total, err := s.bookmarks.List(r.Context(), OwnerFromContext(r.Context()), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := bookmarkListResponse{Items: make([]bookmarkResponse, len(items)), Total: total}
	for i, b := range items {
		resp.Items[i] = bookmarkToDTO(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveBookmark handles POST /api/v1/bookmarks. A body without an ID
// creates a bookmark; with an ID it updates the existing one.
func (s *Server) SaveBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b, created, err := s.bookmarks.Save(r.Context(), OwnerFromContext(r.Context()), saveInputFromDTO(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/bookmarks/"+b.ID)
	}
	writeJSON(w, status, bookmarkToDTO(b))
}

// GetBookmark handles GET /api/v1/bookmarks/{id}.
func (s *Server) GetBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.bookmarks.Get(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkToDTO(b))
}

// DeleteBookmark handles DELETE /api/v1/bookmarks/{id}.
func (s *Server) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.bookmarks.Delete(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/v1/tags.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := tagListResponse{Items: make([]tagResponse, len(tags))}
	for i, t := range tags {
		resp.Items[i] = tagResponse{ID: t.ID, Name: t.Name}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTag handles POST /api/v1/tags.
func (s *Server) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tag, err := s.tags.Create(r.Context(), OwnerFromContext(r.Context()), req.Name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagResponse{ID: tag.ID, Name: tag.Name})
}

// DeleteTag handles DELETE /api/v1/tags/{id}.
func (s *Server) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.tags.Delete(r.Context(), OwnerFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summarize handles POST /api/v1/summaries.
func (s *Server) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	summary, err := s.bookmarks.Summarize(r.Context(), req.Title, req.Content, req.URL)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

// SuggestTags handles POST /api/v1/summaries/tags.
func (s *Server) SuggestTags(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tags, err := s.bookmarks.SuggestTags(r.Context(), req.Title, req.Content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, suggestedTagsResponse{Tags: tags})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client
// without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrQuestionTooShort,
		domain.ErrInvalidInput,
		domain.ErrBookmarkNotFound,
		domain.ErrTagNotFound,
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrEmptyEmbedding,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler matching a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
