package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/kenaz-export/internal/exportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *exportservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)

	r.Get("/active", h.GetActive)
	r.Put("/active", h.SetActive)
	r.Delete("/active", h.ClearActive)

	r.Get("/capabilities", h.Capabilities)
	r.Post("/capabilities/refresh", h.RefreshCapabilities)
	r.Get("/formats", h.Formats)
	r.Get("/eligibility", h.Eligibility)

	r.Get("/commands", h.ListCommands)
	r.Post("/commands/{id}", h.RunCommand)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
