package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	uploads := api.Group("/uploads", middleware.Protected(opts.JWTSecret), middleware.AdminRequired())
	uploads.Get("/signature", h.GenerateUploadSignature)
}
