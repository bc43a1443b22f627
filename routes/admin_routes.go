package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(api fiber.Router, h *handlers.Handler, opts Options) {
	admin := api.Group("/admin", middleware.Protected(opts.JWTSecret), middleware.AdminRequired())

	programs := admin.Group("/programs")
	programs.Get("", h.AdminListPrograms)
	programs.Post("", h.AdminCreateProgram)

	sessions := admin.Group("/sessions")
	sessions.Get("", h.AdminListSessions)
	sessions.Post("", h.AdminCreateSession)
	sessions.Post("/:sessionId/cancel", h.AdminCancelSession)
	sessions.Post("/:sessionId/image", h.UploadSessionImage)

	bookings := admin.Group("/bookings")
	bookings.Get("", h.AdminListBookings)
	bookings.Post("/:bookingId/cancel", h.AdminCancelBooking)
	bookings.Post("/:bookingId/complete", h.AdminCompleteBooking)
	bookings.Post("/:bookingId/move", h.AdminMoveBooking)

	admin.Get("/payments/summary", h.AdminPaymentsSummary)
	admin.Post("/payments/:paymentId/received", h.AdminMarkCashReceived)

	admin.Post("/announcements", h.AdminPublishAnnouncement)

	contact := admin.Group("/contact-messages")
	contact.Get("", h.ListContactMessages)
	contact.Post("/:messageId/handled", h.MarkContactHandled)

	admin.Get("/settings", h.AdminGetSettings)
	admin.Put("/settings", h.AdminUpdateSettings)

	users := admin.Group("/users")
	users.Get("", h.GetAllUsers)
	users.Put("/:userId", h.UpdateUser)
}
