package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mongods/internal/core"
	"mongods/internal/logger"
	"mongods/internal/metrics"
	"mongods/internal/service"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes      = 1 << 20
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

type Handler struct {
	datasource *service.DataSource
	auditRepo  core.AuditRepository
	authSvc    *service.AuthService
	limiter    *RateLimiter
	web        *WebHandler
}

// NewHandler wires the HTTP surface. auditRepo and limiter may be nil.
func NewHandler(datasource *service.DataSource, auditRepo core.AuditRepository, authSvc *service.AuthService, limiter *RateLimiter) *Handler {
	return &Handler{
		datasource: datasource,
		auditRepo:  auditRepo,
		authSvc:    authSvc,
		limiter:    limiter,
		web:        NewWebHandler(auditRepo),
	}
}

type optionsPayload struct {
	Options core.Options `json:"options"`
}

type configChangeRequest struct {
	Options core.Options        `json:"options"`
	Event   service.ChangeEvent `json:"event"`
}

type queryPayload struct {
	Query core.Query `json:"query"`
}

type queryChangeRequest struct {
	Query     core.Query `json:"query"`
	QueryText string     `json:"queryText"`
}

type prepareRequest struct {
	Query      core.Query     `json:"query"`
	ScopedVars core.Variables `json:"scopedVars"`
	Variables  core.Variables `json:"variables"`
}

type dsQueryRequest struct {
	RequestID  string         `json:"requestId"`
	Queries    []core.Query   `json:"queries"`
	ScopedVars core.Variables `json:"scopedVars"`
	Variables  core.Variables `json:"variables"`
	From       string         `json:"from"`
	To         string         `json:"to"`
}

func (h *Handler) ConfigChange(w http.ResponseWriter, r *http.Request) {
	var req configChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	options, err := service.ApplyChange(req.Options, req.Event)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.EditorChanges.WithLabelValues(req.Event.Field).Inc()

	writeJSON(w, http.StatusOK, optionsPayload{Options: options})
}

func (h *Handler) ConfigResetPassword(w http.ResponseWriter, r *http.Request) {
	var req optionsPayload
	if !decodeJSON(w, r, &req) {
		return
	}

	var options core.Options
	service.NewConfigEditor(req.Options, func(o core.Options) { options = o }).OnResetPassword()
	metrics.EditorChanges.WithLabelValues(service.FieldResetPassword).Inc()

	writeJSON(w, http.StatusOK, optionsPayload{Options: options})
}

func (h *Handler) ConfigForm(w http.ResponseWriter, r *http.Request) {
	var req optionsPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, service.NewConfigEditor(req.Options, nil).View())
}

func (h *Handler) QueryDefaults(w http.ResponseWriter, r *http.Request) {
	var req queryPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, queryPayload{Query: req.Query.WithDefaults()})
}

func (h *Handler) QueryChange(w http.ResponseWriter, r *http.Request) {
	var req queryChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var query core.Query
	service.NewQueryEditor(req.Query, func(q core.Query) { query = q }).OnQueryTextChange(req.QueryText)
	metrics.EditorChanges.WithLabelValues("queryText").Inc()

	writeJSON(w, http.StatusOK, queryPayload{Query: query})
}

func (h *Handler) QueryForm(w http.ResponseWriter, r *http.Request) {
	var req queryPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, service.NewQueryEditor(req.Query, nil).View())
}

// PrepareQuery applies template variables to a single query without running it.
func (h *Handler) PrepareQuery(w http.ResponseWriter, r *http.Request) {
	var req prepareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ds := h.datasource.WithTemplateSrv(core.NewTemplateSrv(req.Variables))
	writeJSON(w, http.StatusOK, queryPayload{Query: ds.ApplyTemplateVariables(req.Query, req.ScopedVars)})
}

func (h *Handler) DSQuery(w http.ResponseWriter, r *http.Request) {
	var req dsQueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = r.Header.Get("X-Request-Id")
	}

	ds := h.datasource.WithTemplateSrv(core.NewTemplateSrv(req.Variables))
	result, err := ds.Query(r.Context(), service.QueryRequest{
		RequestID:  requestID,
		Targets:    req.Queries,
		ScopedVars: req.ScopedVars,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		logger.Error.Printf("Query forward failed: %v", err)
		writeError(w, backendStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DSHealth(w http.ResponseWriter, r *http.Request) {
	result, err := h.datasource.TestDatasource(r.Context())
	if err != nil {
		writeError(w, backendStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	if h.auditRepo == nil {
		writeError(w, http.StatusNotFound, "audit trail is disabled")
		return
	}

	limit := defaultAuditLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	logs, err := h.auditRepo.GetRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Router setup
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)

	// Public probes
	r.Get("/healthz", h.Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.authSvc))
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}

		r.Route("/api", func(r chi.Router) {
			r.Route("/config", func(r chi.Router) {
				r.Post("/change", h.ConfigChange)
				r.Post("/reset-password", h.ConfigResetPassword)
				r.Post("/form", h.ConfigForm)
			})
			r.Route("/query", func(r chi.Router) {
				r.Post("/defaults", h.QueryDefaults)
				r.Post("/change", h.QueryChange)
				r.Post("/form", h.QueryForm)
				r.Post("/prepare", h.PrepareQuery)
			})
			r.Post("/ds/query", h.DSQuery)
			r.Get("/ds/health", h.DSHealth)
			r.Get("/audit", h.AuditLogs)
		})

		h.web.RegisterRoutes(r)
	})

	return r
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
	return false
}

func backendStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNoDatasourceUID):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
