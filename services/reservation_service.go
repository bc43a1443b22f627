package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReserveInput struct {
	SessionID  uuid.UUID
	CustomerID uuid.UUID
	Method     models.PaymentMethod
}

// Reservation is the committed result of Reserve. Payment.Reference is the
// merchant reference the gateway will echo back.
type Reservation struct {
	Booking models.Booking
	Payment models.Payment
	Session models.Session
}

func (r *Reservation) Reference() string { return r.Payment.Reference }

type ReservationService struct {
	Deps
	guard CapacityGuard
}

func NewReservationService(d Deps) *ReservationService {
	return &ReservationService{Deps: d.withDefaults()}
}

// Reserve checks availability, capacity and duplicates and inserts the
// booking with its payment in one serializable transaction.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (*Reservation, error) {
	if !in.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.Method)
	}

	var res *Reservation
	err := database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		res = nil
		now := s.Clock.Now()

		var session models.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&session, "id = ?", in.SessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotAvailable
		}
		if err != nil {
			return err
		}
		if !session.OpenForBooking(now) {
			return ErrSessionNotAvailable
		}

		if err := s.guard.Check(tx, &session); err != nil {
			return err
		}

		var dup int64
		err = tx.Model(&models.Booking{}).
			Where("session_id = ? AND customer_id = ? AND status IN ?", session.ID, in.CustomerID, models.ActiveBookingStatuses).
			Count(&dup).Error
		if err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateBooking
		}

		booking := models.Booking{
			SessionID:     session.ID,
			CustomerID:    in.CustomerID,
			Status:        models.BookingPending,
			PaymentMethod: in.Method,
			CreatedAt:     now,
		}
		prefix := utils.PayFastReferencePrefix
		if in.Method == models.MethodCash {
			booking.Status = models.BookingBooked
			prefix = utils.CashReferencePrefix
		}
		if err := tx.Omit(clause.Associations).Create(&booking).Error; err != nil {
			return err
		}

		payment := models.Payment{
			BookingID: booking.ID,
			Amount:    session.Price,
			Currency:  s.Currency,
			Method:    in.Method,
			Status:    models.PaymentPending,
			Reference: utils.PaymentReference(prefix, booking.ID, now),
			CreatedAt: now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		res = &Reservation{Booking: booking, Payment: payment, Session: session}
		return nil
	})
	if err != nil {
		metrics.Reservations.WithLabelValues(string(in.Method), outcomeLabel(err)).Inc()
		if isBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve session %s: %w", in.SessionID, err)
	}

	metrics.Reservations.WithLabelValues(string(in.Method), "created").Inc()
	s.Log.WithFields(logrus.Fields{
		"booking_id": res.Booking.ID,
		"session_id": res.Session.ID,
		"method":     in.Method,
		"reference":  res.Payment.Reference,
	}).Info("reservation created")

	if in.Method == models.MethodCash {
		s.Events.BookingConfirmed(ctx, res.Booking.ID)
	} else {
		s.Events.AvailabilityChanged(ctx, res.Session.ID)
	}
	return res, nil
}

// CancelByCustomer releases a customer's own booking while the session is
// still outside the cancellation cutoff.
func (s *ReservationService) CancelByCustomer(ctx context.Context, bookingID, customerID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		now := s.Clock.Now()

		booking = models.Booking{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ? AND customer_id = ?", bookingID, customerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}
		if !booking.Status.Active() {
			return ErrInvalidTransition
		}

		var session models.Session
		if err := tx.First(&session, "id = ?", booking.SessionID).Error; err != nil {
			return err
		}
		if session.StartAt.Sub(now) <= s.Settings.Current().CancelCutoff() {
			return ErrCancelTooLate
		}

		booking.Cancel(now, &customerID)
		if err := saveBooking(tx, &booking); err != nil {
			return err
		}
		if err := cancelPendingPayments(tx, booking.ID, now); err != nil {
			return err
		}
		return s.Audit.Log(ctx, tx, AuditRecord{
			Action:      "booking.cancelled_by_customer",
			EntityType:  "booking",
			EntityID:    booking.ID,
			PerformedBy: &customerID,
		})
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}

	s.Events.AvailabilityChanged(ctx, booking.SessionID)
	return &booking, nil
}

func saveBooking(tx *gorm.DB, b *models.Booking) error {
	return tx.Model(&models.Booking{}).Where("id = ?", b.ID).
		Updates(map[string]any{
			"session_id":      b.SessionID,
			"status":          b.Status,
			"cancelled_at":    b.CancelledAt,
			"cancelled_by_id": b.CancelledByID,
		}).Error
}

func cancelPendingPayments(tx *gorm.DB, bookingID uuid.UUID, now time.Time) error {
	var pending []models.Payment
	if err := tx.Where("booking_id = ? AND status = ?", bookingID, models.PaymentPending).Find(&pending).Error; err != nil {
		return err
	}
	for i := range pending {
		p := &pending[i]
		models.MarkCancelled(p, now)
		err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", p.ID, models.PaymentPending).
			Updates(map[string]any{"status": p.Status, "updated_at": p.UpdatedAt}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		ErrSessionNotAvailable, ErrSessionFull, ErrDuplicateBooking, ErrSessionNotFound,
		ErrBookingNotFound, ErrPaymentNotFound, ErrMessageNotFound, ErrInvalidTransition, ErrCancelTooLate,
		ErrInvalidInput, ErrInvalidSettings,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrSessionFull):
		return "full"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate"
	case errors.Is(err, ErrSessionNotAvailable):
		return "not_available"
	default:
		return "error"
	}
}
