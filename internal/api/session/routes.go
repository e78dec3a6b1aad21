package session

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Patch("/", h.UpdateSession)
			r.Delete("/", h.DeleteSession)

			r.Post("/chat", h.Chat)
			r.Post("/chat/stream", h.ChatStream)

			r.Get("/messages", h.ListMessages)

			r.Get("/pages", h.ListPages)
			r.Get("/pages/{page_id}", h.GetPage)
			r.Get("/pages/{page_id}/history", h.GetPageHistory)

			r.Post("/resources", h.UploadResource)

			r.Get("/export", h.ExportRequirements)
		})
	})
}
