package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Context assembly and AI operations. chi matches these static
	// routes ahead of the /documents/* wildcard.
	r.Get("/documents/context", h.GetContext)
	r.Post("/documents/ai/reply", h.Reply)
	r.Post("/documents/ai/route", h.Route)
	r.Post("/documents/ai/redact", h.Redact)

	// Documents CRUD by path.
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Projects and context files.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Post("/context-files", h.UpsertContextFile)

	// Interaction log and search.
	r.Get("/interactions", h.Interactions)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
