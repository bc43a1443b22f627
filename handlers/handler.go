package handlers

import (
	"errors"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/anjiri1684/training_academy/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

// Handler carries the services the HTTP endpoints call into.
type Handler struct {
	Config config.Config
	DB     *gorm.DB
	Clock  utils.Clock
	Log    logrus.FieldLogger

	Reservations *services.ReservationService
	Reconciler   *services.ReconciliationService
	Schedule     *services.ScheduleService
	Admin        *services.AdminService
	Contact      *services.ContactService
	Settings     *services.SettingsStore
	PayFast      *payments.PayFastService
	Images       services.ImageStore
	Hub          *websocket.Hub
}

func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func userID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := middleware.CurrentUserID(c)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}
	return id, nil
}

// ErrorHandler renders errors that escape a handler.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		} else {
			log.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("unhandled error")
		}
		return c.Status(code).JSON(fiber.Map{"status": "error", "code": code, "error": msg})
	}
}

// fail renders business rule violations with their status and hides
// everything else behind a 500.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return err
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrSessionFull),
		errors.Is(err, services.ErrDuplicateBooking),
		errors.Is(err, services.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrSessionNotAvailable),
		errors.Is(err, services.ErrCancelTooLate):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidSettings):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrUploadsDisabled):
		status = fiber.StatusServiceUnavailable
	}

	if status == fiber.StatusInternalServerError {
		h.Log.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
