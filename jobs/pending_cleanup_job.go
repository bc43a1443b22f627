package jobs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSweepSafety keeps the sweeper away from payments whose gateway
// notification may still be in flight.
const DefaultSweepSafety = 2 * time.Minute

var errAlreadySettled = errors.New("payment settled concurrently")

// PendingCleanupJob releases seats held by online reservations that were
// never paid.
type PendingCleanupJob struct {
	db       *gorm.DB
	clock    utils.Clock
	settings services.SettingsProvider
	events   services.BookingEvents
	policy   database.TxPolicy
	safety   time.Duration
	log      logrus.FieldLogger
}

func NewPendingCleanupJob(d services.Deps, safety time.Duration) *PendingCleanupJob {
	if safety <= 0 {
		safety = DefaultSweepSafety
	}
	j := &PendingCleanupJob{
		db:       d.DB,
		clock:    d.Clock,
		settings: d.Settings,
		events:   d.Events,
		policy:   d.Policy,
		safety:   safety,
		log:      d.Log,
	}
	if j.clock == nil {
		j.clock = utils.SystemClock{}
	}
	if j.settings == nil {
		j.settings = services.StaticSettings(models.DefaultAcademySetting())
	}
	if j.events == nil {
		j.events = services.NopEvents{}
	}
	if j.policy.Attempts == 0 {
		j.policy = database.DefaultPolicy()
	}
	if j.log == nil {
		j.log = logrus.StandardLogger()
	}
	return j
}

func (j *PendingCleanupJob) Name() string { return "pending_cleanup" }

func (j *PendingCleanupJob) Run(ctx context.Context) error {
	n, err := j.Sweep(ctx)
	if n > 0 {
		j.log.WithField("released", n).Info("released stale pending reservations")
	}
	return err
}

// unsettled are the gateway payment states that leave a pending booking
// holding a seat. A failed payment got there through a rejected notification.
var unsettled = []models.PaymentStatus{models.PaymentPending, models.PaymentFailed}

// Sweep cancels every still-pending booking whose gateway payment is older
// than the seat hold and was never settled. Each pair is released in its own
// transaction; one failure does not stop the rest.
func (j *PendingCleanupJob) Sweep(ctx context.Context) (int, error) {
	now := j.clock.Now()
	cutoff := now.Add(-j.settings.Current().HoldTTL())
	if safe := now.Add(-j.safety); safe.Before(cutoff) {
		cutoff = safe
	}

	var stale []models.Payment
	err := j.db.WithContext(ctx).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("payments.method = ? AND payments.status IN ? AND payments.created_at <= ? AND bookings.status = ?",
			models.MethodPayFast, unsettled, cutoff, models.BookingPending).
		Order("payments.created_at asc").
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("find stale payments: %w", err)
	}

	var (
		released int
		errs     []error
		sessions = map[uuid.UUID]struct{}{}
	)
	for _, p := range stale {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		sessionID, err := j.release(ctx, p, now)
		if errors.Is(err, errAlreadySettled) {
			j.log.WithField("reference", p.Reference).Debug("stale payment settled before sweep")
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", p.Reference, err))
			continue
		}
		released++
		sessions[sessionID] = struct{}{}
		j.log.WithFields(logrus.Fields{"reference": p.Reference, "booking_id": p.BookingID}).Info("released unpaid reservation")
	}

	metrics.SweptReservations.Add(float64(released))
	for id := range sessions {
		j.events.AvailabilityChanged(ctx, id)
	}
	return released, errors.Join(errs...)
}

// release only moves rows that are still unsettled, so a confirmation that
// commits first wins and the transaction rolls back. A pending payment is
// cancelled; a failed one keeps its status as the record of the rejection.
func (j *PendingCleanupJob) release(ctx context.Context, p models.Payment, now time.Time) (uuid.UUID, error) {
	var sessionID uuid.UUID
	err := database.RunInTx(ctx, j.db, j.policy, func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", p.ID).Error; err != nil {
			return err
		}
		var booking models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", p.BookingID).Error; err != nil {
			return err
		}

		from := payment.Status
		if booking.Status != models.BookingPending || !slices.Contains(unsettled, from) {
			return errAlreadySettled
		}

		if from == models.PaymentPending {
			models.MarkCancelled(&payment, now)
			res := tx.Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, from).
				Updates(map[string]any{"status": payment.Status, "updated_at": payment.UpdatedAt})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errAlreadySettled
			}
		}

		booking.Cancel(now, nil)
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, models.BookingPending).
			Updates(map[string]any{"status": booking.Status, "cancelled_at": booking.CancelledAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadySettled
		}
		sessionID = booking.SessionID
		return nil
	})
	return sessionID, err
}
