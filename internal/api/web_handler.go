package api

import (
	"embed"
	"html/template"
	"mongods/internal/core"
	"mongods/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

// WebHandler renders the settings and query forms as HTML fragments for hosts
// that embed them directly.
type WebHandler struct {
	auditRepo core.AuditRepository
	templates *template.Template
}

func NewWebHandler(auditRepo core.AuditRepository) *WebHandler {
	return &WebHandler{
		auditRepo: auditRepo,
		templates: template.Must(template.New("").ParseFS(templateFS, "templates/*.html")),
	}
}

func (h *WebHandler) ConfigForm(w http.ResponseWriter, r *http.Request) {
	var req optionsPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	h.render(w, "config_form.html", "MongoDB Settings", service.NewConfigEditor(req.Options, nil).View())
}

func (h *WebHandler) QueryForm(w http.ResponseWriter, r *http.Request) {
	var req queryPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	h.render(w, "query_form.html", "Query", service.NewQueryEditor(req.Query, nil).View())
}

func (h *WebHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	if h.auditRepo == nil {
		http.Error(w, "Audit trail is disabled", http.StatusNotFound)
		return
	}
	logs, err := h.auditRepo.GetRecent(defaultAuditLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.render(w, "audit_logs.html", "Audit Logs", map[string]interface{}{
		"Logs": logs,
	})
}

func (h *WebHandler) render(w http.ResponseWriter, tmplName, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// Execute layout which yields the specific template
	err := h.templates.ExecuteTemplate(w, "layout.html", map[string]interface{}{
		"Title": title,
		"Page":  tmplName,
		"Data":  data,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes mounts the HTML views under /ui.
func (h *WebHandler) RegisterRoutes(r chi.Router) {
	r.Route("/ui", func(r chi.Router) {
		r.Post("/config", h.ConfigForm)
		r.Post("/query", h.QueryForm)
		r.Get("/audit", h.AuditLogs)
	})
}
