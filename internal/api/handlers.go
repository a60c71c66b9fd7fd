package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/exportservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *exportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *exportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// SetActiveRequest is the body of PUT /api/active.
type SetActiveRequest struct {
	Path string `json:"path"`
}

// writeError maps domain sentinels to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnknownFormat):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNoDocuments),
		errors.Is(err, apperr.ErrNoActiveDocument),
		errors.Is(err, apperr.ErrBatchRunning):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     len(items),
	})
}

// GetActive handles GET /api/active.
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Active(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNoActiveDocument) {
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
			return
		}
		writeError(w, "get active", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SetActive handles PUT /api/active.
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	item, err := h.svc.SetActive(r.Context(), req.Path)
	if err != nil {
		writeError(w, "set active", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ClearActive handles DELETE /api/active.
func (h *Handler) ClearActive(w http.ResponseWriter, _ *http.Request) {
	h.svc.ClearActive()
	w.WriteHeader(http.StatusNoContent)
}

// Capabilities handles GET /api/capabilities.
func (h *Handler) Capabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Capabilities())
}

// RefreshCapabilities handles POST /api/capabilities/refresh.
func (h *Handler) RefreshCapabilities(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.RefreshCapabilities(r.Context())
	if err != nil {
		writeError(w, "refresh capabilities", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Formats handles GET /api/formats.
func (h *Handler) Formats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": h.svc.Formats()})
}

// Eligibility handles GET /api/eligibility?format=.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("format is required"))
		return
	}
	el, err := h.svc.Eligibility(name)
	if err != nil {
		writeError(w, "eligibility", err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// ListCommands handles GET /api/commands.
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": h.svc.Commands(r.Context())})
}

// RunCommand handles POST /api/commands/{id}. The command runs in the
// background; progress arrives as notices on /api/events.
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.RunCommand(r.Context(), id); err != nil {
		writeError(w, "run command", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "started"})
}
