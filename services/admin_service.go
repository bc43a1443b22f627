package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgramInput struct {
	Name            string          `json:"name" validate:"required,min=2,max=120"`
	Description     string          `json:"description"`
	Level           string          `json:"level" validate:"max=40"`
	DurationMinutes int             `json:"duration_minutes" validate:"min=15,max=600"`
	Price           decimal.Decimal `json:"price"`
}

type SessionInput struct {
	Title     string          `json:"title" validate:"required,min=2,max=120"`
	Level     string          `json:"level" validate:"max=40"`
	Location  string          `json:"location" validate:"max=200"`
	Capacity  int             `json:"capacity" validate:"min=0,max=200"`
	Price     decimal.Decimal `json:"price"`
	StartAt   time.Time       `json:"start_at" validate:"required"`
	EndAt     time.Time       `json:"end_at" validate:"required"`
	ProgramID *uuid.UUID      `json:"program_id"`
	CoachID   *uuid.UUID      `json:"coach_id"`
}

type AnnouncementInput struct {
	Title     string     `json:"title" validate:"required,max=150"`
	Body      string     `json:"body" validate:"required"`
	SessionID *uuid.UUID `json:"session_id"`
}

type PaymentsSummary struct {
	Currency string          `json:"currency"`
	Expected decimal.Decimal `json:"expected"`
	Paid     decimal.Decimal `json:"paid"`
	Pending  decimal.Decimal `json:"pending"`
	Count    int             `json:"count"`
}

type AdminService struct {
	Deps
	mailer notifications.Mailer
	guard  CapacityGuard
}

func NewAdminService(d Deps, mailer notifications.Mailer) *AdminService {
	d = d.withDefaults()
	if mailer == nil {
		mailer = notifications.LogMailer{Log: d.Log}
	}
	return &AdminService{Deps: d, mailer: mailer}
}

func (s *AdminService) CreateProgram(ctx context.Context, in ProgramInput) (*models.TrainingProgram, error) {
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	p := models.TrainingProgram{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		Level:           in.Level,
		DurationMinutes: in.DurationMinutes,
		Price:           in.Price.Round(2),
		IsActive:        true,
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}
	return &p, nil
}

func (s *AdminService) CreateSession(ctx context.Context, in SessionInput, adminID uuid.UUID) (*models.Session, error) {
	if !in.EndAt.After(in.StartAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	capacity := in.Capacity
	if capacity == 0 {
		capacity = s.Settings.Current().DefaultCapacity
	}

	session := models.Session{
		Title:     strings.TrimSpace(in.Title),
		Level:     in.Level,
		Location:  in.Location,
		Capacity:  capacity,
		Price:     in.Price.Round(2),
		StartAt:   in.StartAt.UTC(),
		EndAt:     in.EndAt.UTC(),
		Status:    models.SessionScheduled,
		ProgramID: in.ProgramID,
		CoachID:   in.CoachID,
		CreatedAt: s.Clock.Now(),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&session).Error; err != nil {
			return err
		}
		return s.Audit.Log(ctx, tx, AuditRecord{
			Action: "session.created", EntityType: "session", EntityID: session.ID,
			Data: map[string]any{"title": session.Title, "start_at": session.StartAt, "capacity": session.Capacity},
			PerformedBy: &adminID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// CancelSession cancels a scheduled session together with its active
// bookings and their pending payments.
func (s *AdminService) CancelSession(ctx context.Context, sessionID, adminID uuid.UUID, reason string) ([]uuid.UUID, error) {
	var affected []uuid.UUID
	err := database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		now := s.Clock.Now()
		affected = nil

		var session models.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, "id = ?", sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		if session.Status != models.SessionScheduled {
			return ErrInvalidTransition
		}

		if err := tx.Model(&models.Session{}).Where("id = ?", session.ID).
			Update("status", models.SessionCancelled).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Booking{}).
			Where("session_id = ? AND status IN ?", session.ID, models.ActiveBookingStatuses).
			Pluck("id", &affected).Error; err != nil {
			return err
		}
		for _, id := range affected {
			b := models.Booking{ID: id, SessionID: session.ID}
			b.Cancel(now, &adminID)
			if err := saveBooking(tx, &b); err != nil {
				return err
			}
			if err := cancelPendingPayments(tx, id, now); err != nil {
				return err
			}
		}

		return s.Audit.Log(ctx, tx, AuditRecord{
			Action: "session.cancelled", EntityType: "session", EntityID: session.ID,
			Data: map[string]any{"bookings_cancelled": len(affected)}, Reason: reason, PerformedBy: &adminID,
		})
	})
	if err != nil {
		return nil, wrapAdmin("cancel session", err)
	}

	for _, id := range affected {
		s.Events.BookingCancelled(ctx, id, reason)
	}
	s.Events.AvailabilityChanged(ctx, sessionID)
	return affected, nil
}

func (s *AdminService) CancelBooking(ctx context.Context, bookingID, adminID uuid.UUID, reason string) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, adminID, func(tx *gorm.DB, b *models.Booking, now time.Time) (AuditRecord, error) {
		if !b.Status.Active() {
			return AuditRecord{}, ErrInvalidTransition
		}
		b.Cancel(now, &adminID)
		if err := cancelPendingPayments(tx, b.ID, now); err != nil {
			return AuditRecord{}, err
		}
		return AuditRecord{Action: "booking.cancelled", Reason: reason}, nil
	})
	if err != nil {
		return nil, wrapAdmin("cancel booking", err)
	}
	s.Events.BookingCancelled(ctx, b.ID, reason)
	return b, nil
}

func (s *AdminService) CompleteBooking(ctx context.Context, bookingID, adminID uuid.UUID) (*models.Booking, error) {
	b, err := s.transition(ctx, bookingID, adminID, func(tx *gorm.DB, b *models.Booking, now time.Time) (AuditRecord, error) {
		if b.Status != models.BookingBooked {
			return AuditRecord{}, ErrInvalidTransition
		}
		b.Status = models.BookingCompleted
		return AuditRecord{Action: "booking.completed"}, nil
	})
	if err != nil {
		return nil, wrapAdmin("complete booking", err)
	}
	return b, nil
}

// MoveBooking reassigns a booked seat to another open session with room.
func (s *AdminService) MoveBooking(ctx context.Context, bookingID, targetSessionID, adminID uuid.UUID) (*models.Booking, error) {
	var from uuid.UUID
	b, err := s.transition(ctx, bookingID, adminID, func(tx *gorm.DB, b *models.Booking, now time.Time) (AuditRecord, error) {
		if b.Status != models.BookingBooked {
			return AuditRecord{}, ErrInvalidTransition
		}
		if b.SessionID == targetSessionID {
			return AuditRecord{}, fmt.Errorf("%w: booking is already in that session", ErrInvalidInput)
		}

		var target models.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&target, "id = ?", targetSessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuditRecord{}, ErrSessionNotAvailable
		}
		if err != nil {
			return AuditRecord{}, err
		}
		if !target.OpenForBooking(now) {
			return AuditRecord{}, ErrSessionNotAvailable
		}
		if err := s.guard.Check(tx, &target); err != nil {
			return AuditRecord{}, err
		}

		var dup int64
		if err := tx.Model(&models.Booking{}).
			Where("session_id = ? AND customer_id = ? AND status IN ?", target.ID, b.CustomerID, models.ActiveBookingStatuses).
			Count(&dup).Error; err != nil {
			return AuditRecord{}, err
		}
		if dup > 0 {
			return AuditRecord{}, ErrDuplicateBooking
		}

		from = b.SessionID
		b.SessionID = target.ID
		return AuditRecord{Action: "booking.moved", Data: map[string]any{"from": from, "to": target.ID}}, nil
	})
	if err != nil {
		return nil, wrapAdmin("move booking", err)
	}
	s.Events.AvailabilityChanged(ctx, from)
	s.Events.AvailabilityChanged(ctx, b.SessionID)
	return b, nil
}

type bookingChange func(tx *gorm.DB, b *models.Booking, now time.Time) (AuditRecord, error)

func (s *AdminService) transition(ctx context.Context, bookingID, adminID uuid.UUID, change bookingChange) (*models.Booking, error) {
	var booking models.Booking
	err := database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		now := s.Clock.Now()
		booking = models.Booking{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", bookingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		rec, err := change(tx, &booking, now)
		if err != nil {
			return err
		}
		if err := saveBooking(tx, &booking); err != nil {
			return err
		}

		rec.EntityType = "booking"
		rec.EntityID = booking.ID
		rec.PerformedBy = &adminID
		return s.Audit.Log(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// MarkPaymentReceived settles a cash payment collected at the academy.
func (s *AdminService) MarkPaymentReceived(ctx context.Context, paymentID, adminID uuid.UUID, note string) (*models.Payment, error) {
	var payment models.Payment
	err := database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		now := s.Clock.Now()
		payment = models.Payment{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return err
		}
		if payment.Method != models.MethodCash || payment.Status != models.PaymentPending {
			return ErrInvalidTransition
		}

		models.MarkPaid(&payment, now)
		updates := map[string]any{"status": payment.Status, "paid_at": payment.PaidAt, "updated_at": payment.UpdatedAt}
		if note != "" {
			payment.AdminNote = &note
			updates["admin_note"] = note
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return err
		}
		return s.Audit.Log(ctx, tx, AuditRecord{
			Action: "payment.cash_received", EntityType: "payment", EntityID: payment.ID,
			Data: map[string]any{"amount": payment.Amount.StringFixed(2)}, PerformedBy: &adminID,
		})
	})
	if err != nil {
		return nil, wrapAdmin("mark payment received", err)
	}
	return &payment, nil
}

// PaymentsSummary totals what is owed for live bookings against what has been paid.
func (s *AdminService) PaymentsSummary(ctx context.Context) (*PaymentsSummary, error) {
	var rows []models.Payment
	err := s.DB.WithContext(ctx).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.status IN ? AND payments.status IN ?",
			[]models.BookingStatus{models.BookingPending, models.BookingBooked, models.BookingCompleted},
			[]models.PaymentStatus{models.PaymentPending, models.PaymentPaid}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("payments summary: %w", err)
	}

	sum := PaymentsSummary{Currency: s.Currency, Expected: decimal.Zero, Paid: decimal.Zero, Pending: decimal.Zero}
	for _, p := range rows {
		sum.Count++
		sum.Expected = sum.Expected.Add(p.Amount)
		if p.Status == models.PaymentPaid {
			sum.Paid = sum.Paid.Add(p.Amount)
		} else {
			sum.Pending = sum.Pending.Add(p.Amount)
		}
	}
	return &sum, nil
}

func (s *AdminService) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.WithContext(ctx).
		Preload("Session").Preload("Customer").Preload("Payments").
		Order("created_at desc").
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// PublishAnnouncement stores the announcement and, when it is scoped to a
// session, emails every customer booked on it.
func (s *AdminService) PublishAnnouncement(ctx context.Context, in AnnouncementInput, authorID uuid.UUID) (*models.Announcement, error) {
	a := models.Announcement{
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		SessionID: in.SessionID,
		AuthorID:  authorID,
		CreatedAt: s.Clock.Now(),
	}

	var recipients []models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.SessionID != nil {
			var n int64
			if err := tx.Model(&models.Session{}).Where("id = ?", *in.SessionID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrSessionNotFound
			}
			if err := tx.Model(&models.User{}).
				Joins("JOIN bookings ON bookings.customer_id = users.id").
				Where("bookings.session_id = ? AND bookings.status = ?", *in.SessionID, models.BookingBooked).
				Find(&recipients).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		return s.Audit.Log(ctx, tx, AuditRecord{
			Action: "announcement.published", EntityType: "announcement", EntityID: a.ID,
			Data: map[string]any{"recipients": len(recipients)}, PerformedBy: &authorID,
		})
	})
	if err != nil {
		return nil, wrapAdmin("publish announcement", err)
	}

	if len(recipients) > 0 {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			for _, u := range recipients {
				notifications.Deliver(bg, s.mailer, notifications.Message{
					ToName:  u.FullName,
					ToEmail: u.Email,
					Subject: a.Title,
					HTML:    "<p>" + html.EscapeString(a.Body) + "</p>",
				}, s.Log.WithFields(logrus.Fields{"announcement_id": a.ID}))
			}
		}()
	}
	return &a, nil
}

func (s *AdminService) ListAnnouncements(ctx context.Context, limit int) ([]models.Announcement, error) {
	var out []models.Announcement
	if err := s.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return out, nil
}

func wrapAdmin(op string, err error) error {
	if isBusinessError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
