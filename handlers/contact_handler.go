package handlers

import (
	"github.com/anjiri1684/training_academy/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) SubmitContact(c *fiber.Ctx) error {
	var req services.ContactInput
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.Contact.Submit(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Thanks, we will be in touch.", "id": msg.ID})
}

func (h *Handler) ListContactMessages(c *fiber.Ctx) error {
	msgs, err := h.Contact.List(c.UserContext(), c.QueryBool("open"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msgs)
}

func (h *Handler) MarkContactHandled(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "messageId")
	if err != nil {
		return err
	}
	msg, err := h.Contact.MarkHandled(c.UserContext(), id, adminID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(msg)
}
