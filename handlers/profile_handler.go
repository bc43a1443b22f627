package handlers

import (
	"strings"

	"github.com/anjiri1684/training_academy/models"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var user models.User
	if err := h.DB.WithContext(c.UserContext()).First(&user, "id = ?", id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) > 0 {
		if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return h.fail(c, err)
		}
	}
	return h.GetProfile(c)
}

// GetMyProgress totals the sessions a customer has attended.
func (h *Handler) GetMyProgress(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	var done []models.Booking
	err = h.DB.WithContext(c.UserContext()).
		Preload("Session").
		Where("customer_id = ? AND status = ?", id, models.BookingCompleted).
		Find(&done).Error
	if err != nil {
		return h.fail(c, err)
	}

	var hours float64
	for _, b := range done {
		hours += b.Session.EndAt.Sub(b.Session.StartAt).Hours()
	}
	return c.JSON(fiber.Map{
		"total_sessions_completed": len(done),
		"total_hours_trained":      hours,
	})
}
