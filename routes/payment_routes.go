package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/gofiber/fiber/v2"
)

// PaymentRoutes are called by PayFast and the buyer's browser, never with a token.
func PaymentRoutes(api fiber.Router, h *handlers.Handler) {
	payfast := api.Group("/payments/payfast")
	payfast.Post("/notify", h.HandlePayFastNotify)
	payfast.Get("/return", h.PayFastReturn)
	payfast.Get("/cancel", h.PayFastCancel)
}
