package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes, to be mounted at /api.
// Everything tied to a session lives under its workspace ID.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Workspaces.
	r.Post("/workspaces", h.CreateWorkspace)
	r.Route("/workspaces/{id}", func(r chi.Router) {
		r.Get("/", h.GetWorkspace)
		r.Delete("/", h.DeleteWorkspace)

		r.Post("/nodes", h.CreateNode)
		r.Delete("/nodes/*", h.DeleteNode)

		r.Get("/files/*", h.SelectFile)
		r.Put("/files/*", h.WriteFile)

		r.Get("/snapshot", h.Snapshot)
		r.Post("/run", h.Run)
		r.Get("/runs", h.ListRuns)
		r.Get("/events", h.Events)
	})

	// Execution.
	r.Post("/exec", h.Exec)

	return r
}
