package services

import (
	"strings"
	"time"

	"github.com/anjiri1684/training_academy/models"
)

type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeRejected Outcome = "rejected"
	OutcomePaid     Outcome = "paid"
	OutcomeFailed   Outcome = "failed"
	OutcomeNoChange Outcome = "no_change"
)

const (
	gatewayComplete = "COMPLETE"
	gatewayFailed   = "FAILED"
)

// Transition is the result of applying one notification to a payment and its booking.
type Transition struct {
	Outcome          Outcome
	PaymentChanged   bool
	BookingConfirmed bool
	BookingCancelled bool
}

// ApplyNotification moves p and b according to a gateway notification.
// Unverified notifications can only fail a still-pending payment and never
// touch the booking. Applying the same notification twice is a no-op the
// second time.
func ApplyNotification(p *models.Payment, b *models.Booking, verified bool, gatewayStatus string, now time.Time) Transition {
	if !verified {
		t := Transition{Outcome: OutcomeRejected}
		if p.Status == models.PaymentPending {
			models.MarkFailed(p, now)
			t.PaymentChanged = true
		}
		return t
	}

	switch strings.ToUpper(strings.TrimSpace(gatewayStatus)) {
	case gatewayComplete:
		t := Transition{Outcome: OutcomePaid}
		if p.Status != models.PaymentPaid {
			models.MarkPaid(p, now)
			t.PaymentChanged = true
		}
		if b.Status == models.BookingPending || b.Status == models.BookingCancelled {
			b.Reinstate()
			t.BookingConfirmed = true
		}
		return t

	case gatewayFailed:
		t := Transition{Outcome: OutcomeFailed}
		if p.Status == models.PaymentPending {
			models.MarkFailed(p, now)
			t.PaymentChanged = true
		}
		if b.Status == models.BookingPending {
			b.Cancel(now, nil)
			t.BookingCancelled = true
		}
		return t
	}

	return Transition{Outcome: OutcomeNoChange}
}
