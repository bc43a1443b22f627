package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	booking := api.Group("/bookings", middleware.Protected(opts.JWTSecret))
	booking.Get("/me", h.GetMyBookings)
	booking.Post("/cash", opts.limiter(), h.CreateCashBooking)
	booking.Post("/payfast", opts.limiter(), h.CreatePayFastBooking)
	booking.Post("/:bookingId/cancel", h.CancelMyBooking)
}
