package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mtlprog/taskindexer/internal/handler/dto"
	"github.com/mtlprog/taskindexer/internal/metrics"
	"github.com/mtlprog/taskindexer/internal/middleware"
	"github.com/mtlprog/taskindexer/internal/query"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	query   *query.Service
	metrics *metrics.Metrics
}

// New creates a new Handler instance with all dependencies.
func New(q *query.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		query:   q,
		metrics: m,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	// Read-only API v1
	mux.HandleFunc("GET /api/v1/tasks", h.handleListTasks)
	mux.HandleFunc("GET /api/v1/tasks/{kind}/{id}", h.handleGetTask)
	mux.HandleFunc("GET /api/v1/disputes", h.handleListDisputes)
	mux.HandleFunc("GET /api/v1/disputes/{id}", h.handleGetDispute)
	mux.HandleFunc("GET /api/v1/users/{address}", h.handleGetUser)
	mux.HandleFunc("GET /api/v1/users/{address}/bids", h.handleListUserBids)
	mux.HandleFunc("GET /api/v1/admins", h.handleListAdmins)
	mux.HandleFunc("GET /api/v1/admins/{address}", h.handleGetAdmin)
	mux.HandleFunc("GET /api/v1/stats", h.handleGetStats)
}

// Routes returns the API wrapped in logging, metrics and panic recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return middleware.Observe(h.metrics, middleware.Recover(mux))
}

// handleHealthz returns 200 OK if the store is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.query.Ping(ctx); err != nil {
		slog.Error("store health check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondQueryError maps a query error onto the standard error response.
func respondQueryError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapQueryError(err)
	respondError(w, status, code, message)
}
