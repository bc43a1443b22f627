package handlers

import (
	"math"
	"strconv"
	"strings"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type MoveBookingRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
}

type CashReceivedRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) AdminCreateProgram(c *fiber.Ctx) error {
	var req services.ProgramInput
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Admin.CreateProgram(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *Handler) AdminListPrograms(c *fiber.Ctx) error {
	var programs []models.TrainingProgram
	if err := h.DB.WithContext(c.UserContext()).Order("name asc").Find(&programs).Error; err != nil {
		return h.fail(c, err)
	}
	return c.JSON(programs)
}

func (h *Handler) AdminCreateSession(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	var req services.SessionInput
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Admin.CreateSession(c.UserContext(), req, adminID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

func (h *Handler) AdminListSessions(c *fiber.Ctx) error {
	sessions, err := h.Schedule.ListAll(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessions)
}

func (h *Handler) AdminCancelSession(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	sessionID, err := paramID(c, "sessionId")
	if err != nil {
		return err
	}
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	affected, err := h.Admin.CancelSession(c.UserContext(), sessionID, adminID, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Session cancelled", "bookings_cancelled": len(affected)})
}

func (h *Handler) AdminListBookings(c *fiber.Ctx) error {
	bookings, err := h.Admin.ListBookings(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(bookings)
}

func (h *Handler) AdminCancelBooking(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	bookingID, err := paramID(c, "bookingId")
	if err != nil {
		return err
	}
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	b, err := h.Admin.CancelBooking(c.UserContext(), bookingID, adminID, req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(b)
}

func (h *Handler) AdminCompleteBooking(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	bookingID, err := paramID(c, "bookingId")
	if err != nil {
		return err
	}
	b, err := h.Admin.CompleteBooking(c.UserContext(), bookingID, adminID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(b)
}

func (h *Handler) AdminMoveBooking(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	bookingID, err := paramID(c, "bookingId")
	if err != nil {
		return err
	}
	var req MoveBookingRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	target, _ := uuid.Parse(req.SessionID)
	b, err := h.Admin.MoveBooking(c.UserContext(), bookingID, target, adminID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(b)
}

func (h *Handler) AdminMarkCashReceived(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	paymentID, err := paramID(c, "paymentId")
	if err != nil {
		return err
	}
	var req CashReceivedRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	p, err := h.Admin.MarkPaymentReceived(c.UserContext(), paymentID, adminID, req.Note)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) AdminPaymentsSummary(c *fiber.Ctx) error {
	sum, err := h.Admin.PaymentsSummary(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sum)
}

func (h *Handler) AdminPublishAnnouncement(c *fiber.Ctx) error {
	adminID, err := userID(c)
	if err != nil {
		return err
	}
	var req services.AnnouncementInput
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Admin.PublishAnnouncement(c.UserContext(), req, adminID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *Handler) ListAnnouncements(c *fiber.Ctx) error {
	out, err := h.Admin.ListAnnouncements(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) AdminGetSettings(c *fiber.Ctx) error {
	return c.JSON(h.Settings.Current())
}

func (h *Handler) AdminUpdateSettings(c *fiber.Ctx) error {
	in := h.Settings.Current()
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	st, err := h.Settings.Update(c.UserContext(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}

func (h *Handler) GetAllUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	search := strings.TrimSpace(c.Query("search"))

	query := func() *gorm.DB {
		q := h.DB.WithContext(c.UserContext()).Model(&models.User{})
		if search != "" {
			term := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", term, term)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return h.fail(c, err)
	}
	var users []models.User
	if err := query().Order("created_at desc").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"data": users,
		"meta": fiber.Map{
			"total_users":  total,
			"total_pages":  int(math.Ceil(float64(total) / float64(limit))),
			"current_page": page,
		},
	})
}

type UpdateUserRequest struct {
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin coach customer"`
}

// UpdateUser toggles a user's access or changes their role, e.g. to coach.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updates := map[string]any{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Nothing to update")
	}

	res := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return h.fail(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	return c.JSON(fiber.Map{"message": "User updated successfully."})
}
