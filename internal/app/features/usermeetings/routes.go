// internal/app/features/usermeetings/routes.go
package usermeetings

import (
	"github.com/go-chi/chi/v5"
	"github.com/knowledgeconnect/knowledgeconnect/internal/app/system/auth"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /user-meetings requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Post("/join/{meetingID}", h.HandleJoin)
		pr.Patch("/leave/{meetingID}", h.HandleLeave)
		pr.Get("/user", h.ServeUserMeetings)
		pr.Get("/meeting/{meetingID}", h.ServeMeetingParticipants)
		pr.Get("/meetings/{meetingID}/stats", h.ServeStats)
		pr.Get("/meetings/{meetingID}/count", h.ServeCount)
		pr.Delete("/meeting/{meetingID}/all", h.HandleDeleteAll)
	})

	return r
}
