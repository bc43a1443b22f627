package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxRawPayload = 4000

type ReconciliationService struct {
	Deps
	verifier payments.Verifier
}

func NewReconciliationService(d Deps, verifier payments.Verifier) *ReconciliationService {
	return &ReconciliationService{Deps: d.withDefaults(), verifier: verifier}
}

// HandleNotification applies a gateway notification to the payment named by
// m_payment_id. Malformed and unknown references are ignored. A non-nil error
// means the data store or the gateway's validate endpoint failed and the
// gateway should retry; nothing has been changed in that case.
func (s *ReconciliationService) HandleNotification(ctx context.Context, fields url.Values) (Outcome, error) {
	start := time.Now()
	defer func() { metrics.NotificationDuration.Observe(time.Since(start).Seconds()) }()

	ref := strings.TrimSpace(fields.Get("m_payment_id"))
	log := s.Log.WithFields(logrus.Fields{"reference": ref, "pf_payment_id": fields.Get("pf_payment_id")})
	if ref == "" {
		log.Warn("gateway notification without m_payment_id")
		return s.done(OutcomeIgnored), nil
	}
	if prefix, _, err := utils.ParsePaymentReference(ref); err != nil || prefix != utils.PayFastReferencePrefix {
		log.Warn("gateway notification with malformed m_payment_id")
		return s.done(OutcomeIgnored), nil
	}

	var payment models.Payment
	err := s.DB.WithContext(ctx).Where("reference = ?", ref).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("gateway notification for unknown reference")
		return s.done(OutcomeIgnored), nil
	}
	if err != nil {
		return "", fmt.Errorf("load payment %s: %w", ref, err)
	}

	verr := s.verifier.Verify(ctx, fields, payments.Expectation{Amount: payment.Amount, Currency: payment.Currency})
	if errors.Is(verr, payments.ErrGatewayUnavailable) {
		return "", fmt.Errorf("verify payment %s: %w", ref, verr)
	}
	if errors.Is(verr, payments.ErrSignatureMismatch) {
		// Unsigned or forged posts never touch stored state.
		log.WithError(verr).Warn("gateway notification signature mismatch")
		return s.done(OutcomeRejected), nil
	}
	if verr != nil {
		log.WithError(verr).Warn("gateway notification failed verification")
	}
	verified := verr == nil
	raw := truncate(fields.Encode(), maxRawPayload)

	var tr Transition
	var booking models.Booking
	err = database.RunInTx(ctx, s.DB, s.Policy, func(tx *gorm.DB) error {
		now := s.Clock.Now()

		var p models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", payment.ID).Error; err != nil {
			return err
		}
		booking = models.Booking{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", p.BookingID).Error; err != nil {
			return err
		}

		tr = ApplyNotification(&p, &booking, verified, fields.Get("payment_status"), now)

		updates := map[string]any{
			"status":             p.Status,
			"paid_at":            p.PaidAt,
			"updated_at":         p.UpdatedAt,
			"signature_verified": verified || p.SignatureVerified,
		}
		// A rejected notification must not overwrite the payload of a genuine one.
		if verified || tr.PaymentChanged {
			updates["raw_payload"] = raw
		}
		if pf := strings.TrimSpace(fields.Get("pf_payment_id")); verified && pf != "" {
			updates["provider_reference"] = pf
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
			return err
		}

		if tr.BookingConfirmed || tr.BookingCancelled {
			if err := saveBooking(tx, &booking); err != nil {
				return err
			}
		}

		if tr.BookingConfirmed {
			active, err := CapacityGuard{}.ActiveCount(tx, booking.SessionID)
			if err != nil {
				return err
			}
			var session models.Session
			if err := tx.First(&session, "id = ?", booking.SessionID).Error; err != nil {
				return err
			}
			if active > int64(session.Capacity) {
				log.WithFields(logrus.Fields{"session_id": session.ID, "active": active, "capacity": session.Capacity}).
					Warn("late payment reinstated a booking beyond session capacity")
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reconcile payment %s: %w", ref, err)
	}

	log.WithFields(logrus.Fields{
		"outcome":        tr.Outcome,
		"payment_status": fields.Get("payment_status"),
		"booking_id":     booking.ID,
	}).Info("gateway notification reconciled")

	switch {
	case tr.BookingConfirmed:
		s.Events.BookingConfirmed(ctx, booking.ID)
	case tr.BookingCancelled:
		s.Events.AvailabilityChanged(ctx, booking.SessionID)
	}
	return s.done(tr.Outcome), nil
}

func (s *ReconciliationService) done(o Outcome) Outcome {
	metrics.Notifications.WithLabelValues(string(o)).Inc()
	return o
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
