// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Public: account creation and login.
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)

	// Everything else requires a bearer token.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/profile", h.ServeProfile)
		pr.Put("/profile", h.HandleUpdateProfile)
	})

	return r
}
