package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/entry-proxy/internal/apperr"
	"github.com/shehryarbajwa/entry-proxy/internal/metrics"
)

const welcomeMessage = "Welcome to the Entry API. Use /api/{project-id} to fetch project data."

// ProjectFetcher resolves a project id to its JSON document
type ProjectFetcher interface {
	FetchProject(ctx context.Context, id string) ([]byte, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	projects ProjectFetcher
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewHandler creates a new HTTP handler. m may be nil.
func NewHandler(projects ProjectFetcher, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		projects: projects,
		logger:   logger,
		metrics:  m,
	}
}

// Welcome handles /
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	io.WriteString(w, welcomeMessage)
}

// GetProject handles /api/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	project, err := h.projects.FetchProject(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.ObserveRequest("ok")
	w.Header().Set("Content-Type", "application/json")
	w.Write(project)
}

// MissingProjectID handles /api/
func (h *Handler) MissingProjectID(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apperr.Validation("Project ID is required."))
}

// NotFound handles every unrouted path
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apperr.NotFound())
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Unexpected("An unexpected error occurred", err)
	}

	h.metrics.ObserveRequest(appErr.Kind.String())
	if appErr.Kind != apperr.KindRouting {
		fields := []zap.Field{
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("kind", appErr.Kind.String()),
			zap.Int("status", appErr.StatusCode()),
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.Error(appErr.Cause))
		}
		h.logger.Warn("project request failed", fields...)
	}

	if appErr.Body != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(appErr.StatusCode())
		w.Write(appErr.Body)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(appErr.StatusCode())
	io.WriteString(w, appErr.Message)
}
