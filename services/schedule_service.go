package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionAvailability struct {
	models.Session
	SeatsLeft int `json:"seats_left"`
}

type ScheduleService struct {
	db    *gorm.DB
	clock utils.Clock
}

func NewScheduleService(db *gorm.DB, clock utils.Clock) *ScheduleService {
	return &ScheduleService{db: db, clock: clock}
}

// ListOpenSessions returns scheduled sessions that have not started, soonest first.
func (s *ScheduleService) ListOpenSessions(ctx context.Context) ([]SessionAvailability, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Preload("Program").
		Where("status = ? AND start_at > ?", models.SessionScheduled, s.clock.Now()).
		Order("start_at asc").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return s.withSeats(ctx, sessions)
}

func (s *ScheduleService) ListAll(ctx context.Context) ([]SessionAvailability, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Order("start_at desc").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return s.withSeats(ctx, sessions)
}

func (s *ScheduleService) GetSession(ctx context.Context, id uuid.UUID) (*SessionAvailability, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Preload("Program").Preload("Coach").First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	out, err := s.withSeats(ctx, []models.Session{session})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// CoachSessions returns a coach's sessions with their bookings and customers.
func (s *ScheduleService) CoachSessions(ctx context.Context, coachID uuid.UUID) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Preload("Bookings", "status IN ?", []models.BookingStatus{models.BookingPending, models.BookingBooked, models.BookingCompleted}).
		Preload("Bookings.Customer").
		Where("coach_id = ?", coachID).
		Order("start_at asc").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list coach sessions: %w", err)
	}
	return sessions, nil
}

func (s *ScheduleService) withSeats(ctx context.Context, sessions []models.Session) ([]SessionAvailability, error) {
	if len(sessions) == 0 {
		return []SessionAvailability{}, nil
	}
	ids := make([]uuid.UUID, len(sessions))
	for i, ss := range sessions {
		ids[i] = ss.ID
	}

	var rows []struct {
		SessionID uuid.UUID
		Active    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Select("session_id, count(*) as active").
		Where("session_id IN ? AND status IN ?", ids, models.ActiveBookingStatuses).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count seats: %w", err)
	}
	active := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		active[r.SessionID] = r.Active
	}

	out := make([]SessionAvailability, len(sessions))
	for i, ss := range sessions {
		out[i] = SessionAvailability{Session: ss, SeatsLeft: SeatsLeft(ss.Capacity, active[ss.ID])}
	}
	return out, nil
}

// MyBookings lists a customer's bookings, newest first.
func (s *ScheduleService) MyBookings(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Session").
		Preload("Payments").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}
