package handlers

import (
	"net/url"
	"strings"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

type PayFastCheckoutResponse struct {
	Booking   models.Booking    `json:"booking"`
	Reference string            `json:"reference"`
	ActionURL string            `json:"action_url"`
	Fields    map[string]string `json:"fields"`
}

func (h *Handler) reserve(c *fiber.Ctx, method models.PaymentMethod) (*services.Reservation, error) {
	customerID, err := userID(c)
	if err != nil {
		return nil, err
	}
	var req CreateBookingRequest
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	sessionID, _ := uuid.Parse(req.SessionID)

	return h.Reservations.Reserve(c.UserContext(), services.ReserveInput{
		SessionID:  sessionID,
		CustomerID: customerID,
		Method:     method,
	})
}

// CreateCashBooking books a seat to be paid in person.
func (h *Handler) CreateCashBooking(c *fiber.Ctx) error {
	res, err := h.reserve(c, models.MethodCash)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Booking confirmed. Please pay at the academy.",
		"booking":   res.Booking,
		"reference": res.Reference(),
	})
}

// CreatePayFastBooking holds a seat and returns the signed form that sends the
// customer to PayFast. The seat is released if no payment arrives in time.
func (h *Handler) CreatePayFastBooking(c *fiber.Ctx) error {
	res, err := h.reserve(c, models.MethodPayFast)
	if err != nil {
		return h.fail(c, err)
	}

	var customer models.User
	if err := h.DB.WithContext(c.UserContext()).Select("email").First(&customer, "id = ?", res.Booking.CustomerID).Error; err != nil {
		return h.fail(c, err)
	}

	form := h.PayFast.BuildOnceOffForm(payments.FormInput{
		Reference:  res.Reference(),
		ItemName:   res.Session.Title,
		Amount:     res.Payment.Amount,
		BuyerEmail: customer.Email,
		ReturnURL:  h.publicURL("/api/v1/payments/payfast/return", res.Reference()),
		CancelURL:  h.publicURL("/api/v1/payments/payfast/cancel", res.Reference()),
		NotifyURL:  h.publicURL("/api/v1/payments/payfast/notify", ""),
	})

	return c.Status(fiber.StatusCreated).JSON(PayFastCheckoutResponse{
		Booking:   res.Booking,
		Reference: res.Reference(),
		ActionURL: form.ActionURL,
		Fields:    form.Fields,
	})
}

// publicURL builds a callback URL on this service. Configured PayFast URLs win.
func (h *Handler) publicURL(path, ref string) string {
	switch {
	case strings.HasSuffix(path, "/return") && h.Config.PayFast.ReturnURL != "",
		strings.HasSuffix(path, "/cancel") && h.Config.PayFast.CancelURL != "",
		strings.HasSuffix(path, "/notify") && h.Config.PayFast.NotifyURL != "":
		return ""
	}
	u := strings.TrimRight(h.Config.PublicBaseURL, "/") + path
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	customerID, err := userID(c)
	if err != nil {
		return err
	}
	bookings, err := h.Schedule.MyBookings(c.UserContext(), customerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) CancelMyBooking(c *fiber.Ctx) error {
	customerID, err := userID(c)
	if err != nil {
		return err
	}
	bookingID, err := paramID(c, "bookingId")
	if err != nil {
		return err
	}
	booking, err := h.Reservations.CancelByCustomer(c.UserContext(), bookingID, customerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Booking cancelled", "booking": booking})
}
