package handlers

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.Schedule.ListOpenSessions(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessions)
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	session, err := h.Schedule.GetSession(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(session)
}

// GetCoachSessions lists the caller's own sessions with their bookings.
func (h *Handler) GetCoachSessions(c *fiber.Ctx) error {
	coachID, err := userID(c)
	if err != nil {
		return err
	}
	sessions, err := h.Schedule.CoachSessions(c.UserContext(), coachID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sessions)
}

// GetAcademyInfo exposes the public part of the academy settings.
func (h *Handler) GetAcademyInfo(c *fiber.Ctx) error {
	st := h.Settings.Current()
	return c.JSON(fiber.Map{
		"coach_name":          st.CoachName,
		"coach_bio":           st.CoachBio,
		"contact_email":       st.ContactEmail,
		"contact_phone":       st.ContactPhone,
		"time_zone":           st.TimeZone,
		"cancel_cutoff_hours": st.CancelCutoffHours,
	})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
