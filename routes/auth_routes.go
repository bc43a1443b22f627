package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	auth := api.Group("/auth", opts.limiter())
	auth.Post("/register", h.RegisterUser)
	auth.Post("/login", h.LoginUser)
}
