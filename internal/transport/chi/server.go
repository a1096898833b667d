// Package chi is the HTTP API: request parsing, domain error mapping,
// and response shaping. Business logic stays in the usecase layer.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

const defaultFeedbackLimit = 50

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// RequestDefaults are applied when the ask body omits a field. Zero
// values fall back to the domain constants.
type RequestDefaults struct {
	TopK      int
	Threshold float64
}

// Server holds the HTTP handlers.
type Server struct {
	ask           AskService
	ingest        IngestService
	feedback      FeedbackService
	cache         CacheAdmin
	usage         UsageService
	health        HealthService
	defaults      RequestDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. cache may be nil when no result
// cache is configured.
func NewServer(
	ask AskService,
	ingest IngestService,
	fb FeedbackService,
	cache CacheAdmin,
	usage UsageService,
	health HealthService,
	defaults RequestDefaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ask:      ask,
		ingest:   ingest,
		feedback: fb,
		cache:    cache,
		usage:    usage,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrTokenQuotaExceeded, http.StatusPaymentRequired, codeTokenQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingUnavailable),
		sentinelHandler(domain.ErrLLMUnavailable, http.StatusBadGateway, codeLLMUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Router builds the chi router. Middlewares are installed before any
// route so they cover the whole API.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Put("/", s.handleIngest)
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
		})

		r.Post("/feedback", s.handleFeedback)
		r.Get("/feedback", s.handleListFeedback)

		r.Get("/cache/stats", s.handleCacheStats)
		r.Post("/cache/clear", s.handleCacheClear)

		r.Get("/usage", s.handleUsage)
	})

	return r
}

// handleAsk handles POST /api/v1/ask. The engine never fails once the
// request parses: degradations are reported inside the 200 body.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := s.askRequestToDomain(body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	res := s.ask.Ask(r.Context(), req)
	writeJSON(w, http.StatusOK, askResponseFrom(res))
}

func (s *Server) askRequestToDomain(body askRequest) (request.Request, error) {
	sc := scope.All()
	if body.DocumentID != nil && *body.DocumentID != "" {
		sc = scope.Document(*body.DocumentID)
	}

	topK := body.TopK
	if topK == 0 {
		topK = s.defaults.TopK // 0 falls through to request.DefaultTopK
	}
	threshold := s.defaults.Threshold
	if threshold == 0 {
		threshold = request.DefaultThreshold
	}
	if body.Threshold != nil {
		threshold = *body.Threshold
	}
	strictness := request.DefaultStrictness
	if body.Strictness != nil {
		strictness = *body.Strictness
	}
	includeAnswer := true
	if body.IncludeAnswer != nil {
		includeAnswer = *body.IncludeAnswer
	}
	useCache := true
	if body.UseCache != nil {
		useCache = *body.UseCache
	}

	return request.New(
		body.Query, sc, topK, threshold, strictness,
		mode.Mode(body.Mode), includeAnswer, useCache,
	)
}

// handleIngest handles PUT /api/v1/documents/{id}.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	var body ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	stored, err := s.ingest.Ingest(r.Context(), documentID, body.Passages)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{DocumentID: documentID, Stored: stored})
}

// handleGetDocument handles GET /api/v1/documents/{id}.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	passages, err := s.ingest.Document(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if len(passages) == 0 {
		writeError(w, http.StatusNotFound, codeDocumentNotFound, domain.ErrDocumentNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, documentResponseFrom(documentID, passages))
}

// handleDeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	deleted, err := s.ingest.Delete(r.Context(), documentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{DocumentID: documentID, Deleted: deleted})
}

// handleFeedback handles POST /api/v1/feedback. The write is queued;
// 202 means accepted, not persisted.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	sc := scope.All()
	if body.DocumentID != nil && *body.DocumentID != "" {
		sc = scope.Document(*body.DocumentID)
	}

	if err := s.feedback.Record(r.Context(), body.Query, sc, body.Rating); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleListFeedback handles GET /api/v1/feedback.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedbackLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.feedback.List(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]feedbackItem, 0, len(records))
	for i := range records {
		items = append(items, feedbackItemFrom(&records[i]))
	}
	writeJSON(w, http.StatusOK, feedbackListResponse{Items: items})
}

func feedbackItemFrom(rec *feedback.Record) feedbackItem {
	item := feedbackItem{
		ID:        rec.ID(),
		Query:     rec.Query(),
		Rating:    rec.Rating(),
		CreatedAt: rec.CreatedAt(),
	}
	if !rec.Scope().IsAll() {
		id := rec.Scope().DocumentID()
		item.DocumentID = &id
	}
	return item
}

// handleCacheStats handles GET /api/v1/cache/stats.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, cacheStatsResponse{})
		return
	}
	stats := s.cache.Stats()
	writeJSON(w, http.StatusOK, cacheStatsResponse{
		Entries: stats.Entries,
		Hits:    stats.Hits,
		Misses:  stats.Misses,
		HitRate: stats.HitRate(),
	})
}

// handleCacheClear handles POST /api/v1/cache/clear.
func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUsage handles GET /api/v1/usage.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "", "month":
	case "day":
		period = domusage.PeriodDay
	case "total":
		period = domusage.PeriodTotal
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed, "period must be day, month or total")
		return
	}

	reports := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageResponseFrom(period, reports))
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
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

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
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

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrDocumentNotFound,
		domain.ErrRateLimited,
		domain.ErrTokenQuotaExceeded,
		domain.ErrEmbeddingUnavailable,
		domain.ErrLLMUnavailable,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
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
