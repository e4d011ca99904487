package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openpermit/permitsearch/internal/domain"
	dombatch "github.com/openpermit/permitsearch/internal/domain/batch"
	domdoc "github.com/openpermit/permitsearch/internal/domain/document"
	"github.com/openpermit/permitsearch/internal/domain/search/filter"
	"github.com/openpermit/permitsearch/internal/domain/search/mode"
	"github.com/openpermit/permitsearch/internal/domain/search/request"
	"github.com/openpermit/permitsearch/internal/domain/search/result"
	domusage "github.com/openpermit/permitsearch/internal/domain/usage"
	batchuc "github.com/openpermit/permitsearch/internal/usecase/batch"
	documentuc "github.com/openpermit/permitsearch/internal/usecase/document"
	healthuc "github.com/openpermit/permitsearch/internal/usecase/health"
	searchuc "github.com/openpermit/permitsearch/internal/usecase/search"
	usageuc "github.com/openpermit/permitsearch/internal/usecase/usage"
)

const maxBatchSize = 100

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API for the permit search service.
type Server struct {
	search        *searchuc.Service
	documents     *documentuc.Service
	batch         *batchuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	documents *documentuc.Service,
	batch *batchuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:    search,
		documents: documents,
		batch:     batch,
		usage:     usage,
		health:    health,
		logger:    logger,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeValidationFailed),
			sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
			sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeNotFound),
			sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
			sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
			sentinelHandler(domain.ErrKeywordSearchNotSupported, http.StatusNotImplemented, codeNotImplemented),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstreamError),
		},
	}
}

// sentinelHandler builds an errorHandler matching one domain sentinel.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.Healthz)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
	r.Get("/usage", s.GetUsage)

	r.Post("/search", s.Search)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Post("/batch", s.BatchUpsertDocuments)
		r.Put("/{id}", s.UpsertDocument)
		r.Get("/{id}", s.GetDocument)
		r.Delete("/{id}", s.DeleteDocument)
	})
}

// --- Search ---

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromJSON(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	domReq, err := request.New(
		req.Query,
		mode.Mode(derefString(req.Mode, "")),
		filters,
		derefInt(req.TopK, request.DefaultTopK),
		derefFloat(req.MinScore, 0),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, &domReq)
	if err != nil {
		s.handleDomainError(w, err, "search failed")
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, toSearchResponse(results))
}

// --- Health ---

// Healthz handles GET /healthz. Liveness only, never consults dependencies.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthzResponse{OK: true})
}

// Health handles GET /health and reports readiness of the store and the
// embedding provider. Degraded reports get a 503.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	resp := HealthResponse{
		Status: string(report.Status),
		Checks: make([]HealthCheckItem, 0, len(report.Checks)),
	}
	for _, c := range report.Checks {
		resp.Checks = append(resp.Checks, HealthCheckItem{
			Component: c.Component,
			Status:    string(c.Status),
			Detail:    c.Detail,
		})
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Documents ---

// UpsertDocument handles PUT /documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpsertDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	tags, numerics, err := splitMetadataJSON(req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	doc, err := domdoc.New(id, req.Content, tags, numerics)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	created, err := s.documents.Upsert(ctx, &doc)
	if err != nil {
		s.handleDomainError(w, err, "upsert document failed")
		return
	}

	setEmbeddingHeaders(w, usage)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/documents/"+doc.ID())
	}
	writeJSON(w, status, toDocumentResponse(&doc))
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err, "get document failed")
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(&doc))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err, "delete document failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	docs, nextCursor, err := s.documents.List(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, err, "list documents failed")
		return
	}

	total, err := s.documents.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err, "count documents failed")
		return
	}

	resp := DocumentListResponse{
		Items:   make([]DocumentResponse, 0, len(docs)),
		HasMore: nextCursor != "",
		Total:   total,
	}
	for i := range docs {
		resp.Items = append(resp.Items, toDocumentResponse(&docs[i]))
	}
	if nextCursor != "" {
		resp.NextCursor = &nextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

// BatchUpsertDocuments handles POST /documents/batch.
func (s *Server) BatchUpsertDocuments(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "batch must contain at least one item")
		return
	}
	if len(req.Items) > maxBatchSize {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("batch size exceeds %d", maxBatchSize))
		return
	}

	// Ошибки конструирования не прерывают батч: остальные элементы идут дальше.
	items := make([]BatchItemResult, 0, len(req.Items))
	docs := make([]domdoc.Document, 0, len(req.Items))
	for _, item := range req.Items {
		doc, err := batchItemToDocument(item)
		if err != nil {
			items = append(items, BatchItemResult{
				ID:     item.ID,
				Status: string(dombatch.StatusError),
				Code:   codeValidationFailed,
				Error:  err.Error(),
			})
			continue
		}
		docs = append(docs, doc)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	for _, res := range s.batch.Upsert(ctx, docs) {
		items = append(items, toBatchItemResult(res))
	}

	succeeded := 0
	for _, item := range items {
		if item.Status == string(dombatch.StatusOK) {
			succeeded++
		}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, BatchUpsertResponse{
		Items:     items,
		Succeeded: succeeded,
		Failed:    len(items) - succeeded,
	})
}

// --- Usage ---

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodMonth
	switch r.URL.Query().Get("period") {
	case "", "month":
	case "day":
		period = domusage.PeriodDay
	case "total":
		period = domusage.PeriodTotal
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "period must be one of: day, month, total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, toUsageResponse(&report))
}

// --- Request converters ---

// filtersFromJSON converts the request filter object to domain conditions.
// Strings become tag matches, numbers numeric equality, objects numeric
// ranges. Conditions are combined with logical AND.
func filtersFromJSON(raw map[string]any) (filter.Filter, error) {
	if len(raw) == 0 {
		return filter.Filter{}, nil
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]filter.Condition, 0, len(raw))
	for _, key := range keys {
		var (
			cond filter.Condition
			err  error
		)
		switch v := raw[key].(type) {
		case string:
			cond, err = filter.NewMatch(key, v)
		case float64:
			cond, err = filter.NewNumericEquals(key, v)
		case map[string]any:
			cond, err = rangeConditionFromJSON(key, v)
		default:
			return filter.Filter{}, fmt.Errorf("filter %q: value must be a string, a number or a range object", key)
		}
		if err != nil {
			return filter.Filter{}, fmt.Errorf("filter %q: %w", key, err)
		}
		conditions = append(conditions, cond)
	}

	return filter.New(conditions)
}

// rangeConditionFromJSON builds a numeric range condition from a JSON
// object of the form {"gte": 10000, "lt": 50000}.
func rangeConditionFromJSON(key string, raw map[string]any) (filter.Condition, error) {
	var gt, gte, lt, lte *float64
	for op, val := range raw {
		num, ok := val.(float64)
		if !ok {
			return filter.Condition{}, fmt.Errorf("range bound %q must be a number", op)
		}
		switch op {
		case "gt":
			gt = &num
		case "gte":
			gte = &num
		case "lt":
			lt = &num
		case "lte":
			lte = &num
		default:
			return filter.Condition{}, fmt.Errorf("unknown range operator %q", op)
		}
	}

	rng, err := filter.NewRangeFilter(gt, gte, lt, lte)
	if err != nil {
		return filter.Condition{}, err
	}
	return filter.NewRange(key, rng)
}

// splitMetadataJSON splits a JSON metadata object into string tags and
// numeric fields. Other value types are rejected.
func splitMetadataJSON(raw map[string]any) (map[string]string, map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}

	tags := make(map[string]string)
	numerics := make(map[string]float64)
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			tags[k] = val
		case float64:
			numerics[k] = val
		default:
			return nil, nil, fmt.Errorf("metadata field %q: value must be a string or a number", k)
		}
	}
	return tags, numerics, nil
}

func batchItemToDocument(item BatchUpsertItem) (domdoc.Document, error) {
	tags, numerics, err := splitMetadataJSON(item.Metadata)
	if err != nil {
		return domdoc.Document{}, err
	}
	return domdoc.New(item.ID, item.Content, tags, numerics)
}

// --- Response converters ---

func toSearchResponse(results []result.Result) SearchResponse {
	items := make([]SearchResultItem, 0, len(results))
	for i := range results {
		items = append(items, SearchResultItem{
			Document:        results[i].Content(),
			Metadata:        mergedMetadata(&results[i]),
			SimilarityScore: round4(results[i].Score()),
		})
	}
	return SearchResponse{Results: items}
}

// mergedMetadata flattens tags and numeric fields into one object.
func mergedMetadata(res *result.Result) map[string]any {
	md := make(map[string]any, len(res.Tags())+len(res.Numerics()))
	for k, v := range res.Tags() {
		md[k] = v
	}
	for k, v := range res.Numerics() {
		md[k] = v
	}
	return md
}

func toDocumentResponse(doc *domdoc.Document) DocumentResponse {
	md := make(map[string]any, len(doc.Tags())+len(doc.Numerics()))
	for k, v := range doc.Tags() {
		md[k] = v
	}
	for k, v := range doc.Numerics() {
		md[k] = v
	}
	return DocumentResponse{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Metadata: md,
	}
}

func toBatchItemResult(res dombatch.Result) BatchItemResult {
	item := BatchItemResult{
		ID:     res.ID(),
		Status: string(res.Status()),
	}
	if err := res.Err(); err != nil {
		item.Code = batchErrorCode(err)
		item.Error = safeDomainMessage(err)
	}
	return item
}

// batchErrorCode maps a per-item batch error to a response error code.
func batchErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSchema), errors.Is(err, domain.ErrVectorDimMismatch):
		return codeValidationFailed
	case errors.Is(err, domain.ErrDocumentNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return codeQuotaExceeded
	case errors.Is(err, domain.ErrRateLimited):
		return codeRateLimited
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return codeUpstreamError
	default:
		return codeInternal
	}
}

func toUsageResponse(report *domusage.Report) UsageResponse {
	m := report.Metrics()
	b := report.Budget()

	resp := UsageResponse{
		Period:            string(report.Period()),
		Collection:        report.Collection(),
		EmbeddingRequests: m.EmbeddingRequests(),
		TokensUsed:        m.Tokens(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			Exhausted:       b.IsExhausted(),
		},
	}
	if start := report.PeriodStart(); start > 0 {
		resp.PeriodStart = &start
	}
	if end := report.PeriodEnd(); end > 0 {
		resp.PeriodEnd = &end
	}
	if cost := m.CostMillidollars(); cost > 0 {
		resp.CostMillidollars = &cost
	}
	if resets := b.ResetsAt(); resets > 0 {
		resp.Budget.ResetsAt = &resets
	}
	return resp
}

// --- Error handling ---

// handleDomainError maps a domain error to an HTTP response. Unmatched
// errors become an opaque 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error, msg string) {
	s.logger.Warn("domain error", zap.String("context", msg), zap.Error(err))

	for _, handle := range s.errorHandlers {
		if handle(w, err, msg) {
			return
		}
	}

	s.logger.Error("unhandled domain error", zap.String("context", msg), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

// safeDomainMessage extracts error text safe to return to API clients.
// Validation failures keep their wrapped detail; other known sentinels
// collapse to the sentinel text so upstream responses never leak through.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidSchema) || errors.Is(err, domain.ErrVectorDimMismatch) {
		return err.Error()
	}
	for _, sentinel := range []error{
		domain.ErrDocumentNotFound,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrRateLimited,
		domain.ErrKeywordSearchNotSupported,
		domain.ErrEmbeddingProviderError,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// setEmbeddingHeaders reports embedding token usage for the request.
// Set only when an embedding call actually happened.
func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage == nil || !usage.Used {
		return
	}
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func derefString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
