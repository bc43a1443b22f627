package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	api.Get("/health", h.Health)
	if opts.Metrics != nil {
		api.Get("/metrics", opts.Metrics)
	}

	api.Get("/academy", h.GetAcademyInfo)
	api.Get("/sessions", h.ListSessions)
	api.Get("/sessions/:id", h.GetSession)
	api.Get("/announcements", h.ListAnnouncements)
	api.Post("/contact", opts.limiter(), h.SubmitContact)
}
