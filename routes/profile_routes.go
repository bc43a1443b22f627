package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	profile := api.Group("/profile/me", middleware.Protected(opts.JWTSecret))
	profile.Get("", h.GetProfile)
	profile.Put("", h.UpdateProfile)
	profile.Get("/progress", h.GetMyProgress)
}

func CoachRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	coach := api.Group("/coach", middleware.Protected(opts.JWTSecret), middleware.CoachRequired())
	coach.Get("/sessions", h.GetCoachSessions)
}
