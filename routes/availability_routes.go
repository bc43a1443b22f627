package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func AvailabilityRoutes(api fiber.Router, h *handlers.Handler) {
	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/availability", websocket.New(h.ServeAvailability))
}
