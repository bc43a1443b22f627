package jobs

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	reminderLead   = 24 * time.Hour
	reminderWindow = 15 * time.Minute
)

// ReminderJob emails customers a day before their session.
type ReminderJob struct {
	db       *gorm.DB
	clock    utils.Clock
	settings services.SettingsProvider
	mailer   notifications.Mailer
	log      logrus.FieldLogger
}

func NewReminderJob(db *gorm.DB, clock utils.Clock, settings services.SettingsProvider, mailer notifications.Mailer, log logrus.FieldLogger) *ReminderJob {
	return &ReminderJob{db: db, clock: clock, settings: settings, mailer: mailer, log: log}
}

func (j *ReminderJob) Name() string { return "session_reminders" }

func (j *ReminderJob) Run(ctx context.Context) error {
	_, err := j.Send(ctx)
	return err
}

// Send reminds every booked customer whose session starts 24h from now,
// give or take the window. A booking is reminded at most once.
func (j *ReminderJob) Send(ctx context.Context) (int, error) {
	now := j.clock.Now()
	from, to := now.Add(reminderLead-reminderWindow), now.Add(reminderLead+reminderWindow)

	var due []models.Booking
	err := j.db.WithContext(ctx).
		Preload("Session").
		Preload("Customer").
		Joins("JOIN sessions ON sessions.id = bookings.session_id").
		Where("bookings.status = ? AND bookings.reminder_sent IS NULL AND sessions.status = ? AND sessions.start_at BETWEEN ? AND ?",
			models.BookingBooked, models.SessionScheduled, from, to).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	st := j.settings.Current()
	var sent int
	var errs []error
	for _, b := range due {
		// Claim first so overlapping runs never send twice.
		res := j.db.WithContext(ctx).Model(&models.Booking{}).
			Where("id = ? AND reminder_sent IS NULL", b.ID).
			Update("reminder_sent", now)
		if res.Error != nil {
			errs = append(errs, fmt.Errorf("claim reminder %s: %w", b.ID, res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		notifications.Deliver(ctx, j.mailer, reminderEmail(b, st, now), j.log.WithField("booking_id", b.ID))
		sent++
	}
	return sent, errors.Join(errs...)
}

func reminderEmail(b models.Booking, st models.AcademySetting, now time.Time) notifications.Message {
	when := b.Session.StartAt.In(st.Location()).Format("Mon 02 Jan 15:04")
	invite := notifications.BuildInvite(notifications.Invite{
		UID:       b.ID.String() + "@academy",
		Title:     b.Session.Title,
		Location:  b.Session.Location,
		Start:     b.Session.StartAt,
		End:       b.Session.EndAt,
		Organizer: st.ContactEmail,
	}, now)

	return notifications.Message{
		ToName:  b.Customer.FullName,
		ToEmail: b.Customer.Email,
		Subject: "Reminder: your session is tomorrow",
		HTML: fmt.Sprintf("<h1>Session Reminder</h1><p>Hi %s, see you at <b>%s</b> on %s at %s.</p>",
			html.EscapeString(b.Customer.FullName), html.EscapeString(b.Session.Title), when, html.EscapeString(b.Session.Location)),
		Attachments: []notifications.Attachment{{Name: "session.ics", Content: invite}},
	}
}
