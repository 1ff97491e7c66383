// internal/app/features/topics/routes.go
package topics

import (
	"github.com/go-chi/chi/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /topics requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/user", h.ServeUserTopics)
		pr.Get("/{id}", h.ServeTopic)
		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/join", h.HandleJoin)
	})

	return r
}
