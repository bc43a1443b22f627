package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/anjiri1684/training_academy/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BookingEvents receives booking changes after they have committed.
type BookingEvents interface {
	BookingConfirmed(ctx context.Context, bookingID uuid.UUID)
	BookingCancelled(ctx context.Context, bookingID uuid.UUID, reason string)
	AvailabilityChanged(ctx context.Context, sessionID uuid.UUID)
}

type NopEvents struct{}

func (NopEvents) BookingConfirmed(context.Context, uuid.UUID)         {}
func (NopEvents) BookingCancelled(context.Context, uuid.UUID, string) {}
func (NopEvents) AvailabilityChanged(context.Context, uuid.UUID)      {}

type AvailabilityBroadcaster interface {
	Publish(update websocket.SeatsUpdate)
}

const eventTimeout = 30 * time.Second

// EventDispatcher fans committed booking changes out to email, the message
// broker and the availability feed. Work runs in the background so callers
// never wait on outbound I/O.
type EventDispatcher struct {
	db          *gorm.DB
	mailer      notifications.Mailer
	publisher   notifications.Publisher
	broadcaster AvailabilityBroadcaster
	settings    SettingsProvider
	clock       utils.Clock
	log         logrus.FieldLogger

	// Sync runs handlers inline. Used by the CLI and tests.
	Sync bool
}

func NewEventDispatcher(db *gorm.DB, mailer notifications.Mailer, publisher notifications.Publisher,
	broadcaster AvailabilityBroadcaster, settings SettingsProvider, clock utils.Clock, log logrus.FieldLogger) *EventDispatcher {
	return &EventDispatcher{
		db:          db,
		mailer:      mailer,
		publisher:   publisher,
		broadcaster: broadcaster,
		settings:    settings,
		clock:       clock,
		log:         log,
	}
}

func (d *EventDispatcher) dispatch(fn func(ctx context.Context)) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		fn(ctx)
	}
	if d.Sync {
		run()
		return
	}
	go run()
}

func (d *EventDispatcher) loadBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := d.db.WithContext(ctx).
		Preload("Session").
		Preload("Customer").
		Preload("Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at desc") }).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *EventDispatcher) BookingConfirmed(_ context.Context, bookingID uuid.UUID) {
	d.dispatch(func(ctx context.Context) {
		log := d.log.WithField("booking_id", bookingID)
		b, err := d.loadBooking(ctx, bookingID)
		if err != nil {
			log.WithError(err).Error("load confirmed booking")
			return
		}

		event := notifications.BookingConfirmedEvent{
			BookingID:  b.ID,
			SessionID:  b.SessionID,
			CustomerID: b.CustomerID,
			Method:     string(b.PaymentMethod),
			OccurredAt: d.clock.Now(),
		}
		if len(b.Payments) > 0 {
			p := b.Payments[0]
			event.Reference = p.Reference
			event.Amount = p.Amount.StringFixed(2)
			event.Currency = p.Currency
			event.PaidAt = p.PaidAt
		}
		if err := d.publisher.PublishJSON(ctx, notifications.RoutingBookingConfirmed, event); err != nil {
			log.WithError(err).Error("publish booking.confirmed")
		}

		notifications.Deliver(ctx, d.mailer, d.confirmationEmail(b), log)
		d.broadcastSeats(ctx, b.SessionID)
	})
}

func (d *EventDispatcher) BookingCancelled(_ context.Context, bookingID uuid.UUID, reason string) {
	d.dispatch(func(ctx context.Context) {
		log := d.log.WithField("booking_id", bookingID)
		b, err := d.loadBooking(ctx, bookingID)
		if err != nil {
			log.WithError(err).Error("load cancelled booking")
			return
		}

		st := d.settings.Current()
		when := b.Session.StartAt.In(st.Location()).Format("Mon 02 Jan 2006 15:04")
		body := fmt.Sprintf("<h1>Booking Cancelled</h1><p>Your booking for <b>%s</b> on %s has been cancelled.</p>", html.EscapeString(b.Session.Title), when)
		if reason != "" {
			body += fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(reason))
		}
		notifications.Deliver(ctx, d.mailer, notifications.Message{
			ToName:  b.Customer.FullName,
			ToEmail: b.Customer.Email,
			Subject: "Your booking has been cancelled",
			HTML:    body,
		}, log)
		d.broadcastSeats(ctx, b.SessionID)
	})
}

func (d *EventDispatcher) AvailabilityChanged(_ context.Context, sessionID uuid.UUID) {
	d.dispatch(func(ctx context.Context) {
		d.broadcastSeats(ctx, sessionID)
	})
}

func (d *EventDispatcher) broadcastSeats(ctx context.Context, sessionID uuid.UUID) {
	if d.broadcaster == nil {
		return
	}
	var s models.Session
	if err := d.db.WithContext(ctx).First(&s, "id = ?", sessionID).Error; err != nil {
		d.log.WithError(err).WithField("session_id", sessionID).Warn("load session for availability update")
		return
	}
	active, err := CapacityGuard{}.ActiveCount(d.db.WithContext(ctx), sessionID)
	if err != nil {
		d.log.WithError(err).WithField("session_id", sessionID).Warn("count seats for availability update")
		return
	}
	d.broadcaster.Publish(websocket.SeatsUpdate{
		SessionID: sessionID,
		SeatsLeft: SeatsLeft(s.Capacity, active),
		Status:    string(s.Status),
	})
}

func (d *EventDispatcher) confirmationEmail(b *models.Booking) notifications.Message {
	st := d.settings.Current()
	when := b.Session.StartAt.In(st.Location()).Format("Mon 02 Jan 2006 15:04")

	invite := notifications.BuildInvite(notifications.Invite{
		UID:         b.ID.String() + "@academy",
		Title:       b.Session.Title,
		Location:    b.Session.Location,
		Description: "Training session booking " + b.ID.String(),
		Start:       b.Session.StartAt,
		End:         b.Session.EndAt,
		Organizer:   st.ContactEmail,
	}, d.clock.Now())

	return notifications.Message{
		ToName:  b.Customer.FullName,
		ToEmail: b.Customer.Email,
		Subject: "Your Booking is Confirmed!",
		HTML: fmt.Sprintf("<h1>Booking Confirmed</h1><p>You are booked for <b>%s</b> on %s at %s.</p>",
			html.EscapeString(b.Session.Title), when, html.EscapeString(b.Session.Location)),
		Attachments: []notifications.Attachment{{Name: "session.ics", Content: invite}},
	}
}
