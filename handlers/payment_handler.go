package handlers

import (
	"net/url"

	"github.com/anjiri1684/training_academy/models"
	"github.com/gofiber/fiber/v2"
)

// HandlePayFastNotify receives the gateway's server-to-server notification.
// PayFast retries anything but a 200, so every outcome except a storage or
// validate-endpoint failure is acknowledged with an empty body.
func (h *Handler) HandlePayFastNotify(c *fiber.Ctx) error {
	fields, err := url.ParseQuery(string(c.Body()))
	if err != nil {
		h.Log.WithError(err).Warn("malformed gateway notification body")
		return c.Status(fiber.StatusOK).Send(nil)
	}

	if _, err := h.Reconciler.HandleNotification(c.UserContext(), fields); err != nil {
		h.Log.WithError(err).WithField("reference", fields.Get("m_payment_id")).Error("reconcile gateway notification")
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// PayFastReturn is where the buyer lands after paying. The notification,
// not this redirect, settles the payment.
func (h *Handler) PayFastReturn(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Thank you. Your booking will be confirmed as soon as the payment clears.",
		"payment": h.paymentState(c),
	})
}

func (h *Handler) PayFastCancel(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Payment was cancelled. Your seat is held until the reservation expires.",
		"payment": h.paymentState(c),
	})
}

func (h *Handler) paymentState(c *fiber.Ctx) fiber.Map {
	ref := c.Query("ref")
	if ref == "" {
		return nil
	}
	var p models.Payment
	if err := h.DB.WithContext(c.UserContext()).Where("reference = ?", ref).First(&p).Error; err != nil {
		return nil
	}
	return fiber.Map{"reference": p.Reference, "status": p.Status, "amount": p.Amount.StringFixed(2)}
}
