package handlers

import (
	"github.com/anjiri1684/training_academy/services"
	"github.com/gofiber/fiber/v2"
)

// GenerateUploadSignature signs a direct browser upload to the image host.
func (h *Handler) GenerateUploadSignature(c *fiber.Ctx) error {
	if h.Images == nil {
		return h.fail(c, services.ErrUploadsDisabled)
	}
	sig, err := h.Images.SignUpload(h.Clock.Now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sig)
}

// UploadSessionImage accepts a multipart "image" file and stores it as the
// session's picture.
func (h *Handler) UploadSessionImage(c *fiber.Ctx) error {
	sessionID, err := paramID(c, "sessionId")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing image file")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Unreadable image file")
	}
	defer f.Close()

	session, err := services.SetSessionImage(c.UserContext(), h.DB, h.Images, sessionID, f, c.FormValue("alt"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(session)
}
