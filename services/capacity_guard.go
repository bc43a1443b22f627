package services

import (
	"fmt"

	"github.com/anjiri1684/training_academy/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CapacityGuard counts occupied seats. It must run inside the transaction
// that inserts the booking so the count and the insert commit together.
type CapacityGuard struct{}

func (CapacityGuard) ActiveCount(tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&models.Booking{}).
		Where("session_id = ? AND status IN ?", sessionID, models.ActiveBookingStatuses).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return n, nil
}

func (g CapacityGuard) Check(tx *gorm.DB, session *models.Session) error {
	active, err := g.ActiveCount(tx, session.ID)
	if err != nil {
		return err
	}
	if active >= int64(session.Capacity) {
		return ErrSessionFull
	}
	return nil
}

func SeatsLeft(capacity int, active int64) int {
	left := int64(capacity) - active
	if left < 0 {
		return 0
	}
	return int(left)
}
