package jobs

import (
	"context"
	"fmt"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CompletionJob closes out sessions that have ended along with their booked seats.
type CompletionJob struct {
	db     *gorm.DB
	clock  utils.Clock
	policy database.TxPolicy
	log    logrus.FieldLogger
}

func NewCompletionJob(db *gorm.DB, clock utils.Clock, policy database.TxPolicy, log logrus.FieldLogger) *CompletionJob {
	return &CompletionJob{db: db, clock: clock, policy: policy, log: log}
}

func (j *CompletionJob) Name() string { return "session_completion" }

func (j *CompletionJob) Run(ctx context.Context) error {
	sessions, bookings, err := j.Complete(ctx)
	if err != nil {
		return err
	}
	if sessions > 0 || bookings > 0 {
		j.log.WithFields(logrus.Fields{"sessions": sessions, "bookings": bookings}).Info("completed finished sessions")
	}
	return nil
}

func (j *CompletionJob) Complete(ctx context.Context) (sessions, bookings int64, err error) {
	now := j.clock.Now()
	err = database.RunInTx(ctx, j.db, j.policy, func(tx *gorm.DB) error {
		ended := tx.Model(&models.Session{}).Select("id").
			Where("status = ? AND end_at <= ?", models.SessionScheduled, now)

		res := tx.Model(&models.Booking{}).
			Where("status = ? AND session_id IN (?)", models.BookingBooked, ended).
			Update("status", models.BookingCompleted)
		if res.Error != nil {
			return res.Error
		}
		bookings = res.RowsAffected

		res = tx.Model(&models.Session{}).
			Where("status = ? AND end_at <= ?", models.SessionScheduled, now).
			Update("status", models.SessionCompleted)
		if res.Error != nil {
			return res.Error
		}
		sessions = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("complete sessions: %w", err)
	}
	return sessions, bookings, nil
}
