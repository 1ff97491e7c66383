// internal/app/features/meetings/routes.go
package meetings

import (
	"github.com/go-chi/chi/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /meetings requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeMeeting)
		pr.Put("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Patch("/{id}/status", h.HandleUpdateStatus)
	})

	return r
}
