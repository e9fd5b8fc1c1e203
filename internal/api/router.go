package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/storygraph/internal/nodemanager"
	"github.com/starford/storygraph/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(mgr nodemanager.Manager, illustrations storage.Provider, sseHandler http.Handler) chi.Router {
	h := NewHandler(mgr)
	ih := NewIllustrationHandler(illustrations)

	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		// Nodes.
		r.Post("/nodes", h.CreateNode)
		r.Patch("/nodes", h.UpdateNode)
		r.Get("/nodes/find", h.FindNodes)
		r.Get("/nodes/{id}", h.GetNode)
		r.Patch("/nodes/{id}", h.UpdateNode)
		r.Delete("/nodes/{id}", h.DeleteNode)

		// Edges.
		r.Get("/nodes/{id}/children", h.ListChildren)
		r.Get("/nodes/{id}/parents", h.ListParents)

		r.Post("/illustrations", ih.Upload)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
