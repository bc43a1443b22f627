package routes

import (
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/gofiber/fiber/v2"
)

// Options are the cross-cutting handlers the route groups mount.
type Options struct {
	JWTSecret string
	// RateLimit guards the auth and booking endpoints. Nil disables it.
	RateLimit fiber.Handler
	// Metrics serves the Prometheus scrape endpoint. Nil leaves it unmounted.
	Metrics fiber.Handler
}

func (o Options) limiter() fiber.Handler {
	if o.RateLimit == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return o.RateLimit
}

// Setup mounts every route group under /api/v1.
func Setup(app *fiber.App, h *handlers.Handler, opts Options) {
	api := app.Group("/api/v1")

	PublicRoutes(api, h, opts)
	AuthRoutes(api, h, opts)
	PaymentRoutes(api, h)
	BookingRoutes(api, h, opts)
	ProfileRoutes(api, h, opts)
	CoachRoutes(api, h, opts)
	AdminRoutes(api, h, opts)
	UploadRoutes(api, h, opts)
	AvailabilityRoutes(api, h)
}
