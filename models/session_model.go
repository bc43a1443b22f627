package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCancelled SessionStatus = "cancelled"
	SessionCompleted SessionStatus = "completed"
)

type Session struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string          `gorm:"size:120;not null" json:"title"`
	Level    string          `gorm:"size:40" json:"level"`
	Location string          `gorm:"size:200" json:"location"`
	Capacity int             `gorm:"not null" json:"capacity"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StartAt  time.Time       `gorm:"not null;index" json:"start_at"`
	EndAt    time.Time       `gorm:"not null" json:"end_at"`
	Status   SessionStatus   `gorm:"size:20;not null;default:'scheduled';index" json:"status"`

	ProgramID *uuid.UUID `gorm:"type:uuid" json:"program_id,omitempty"`
	CoachID   *uuid.UUID `gorm:"type:uuid;index" json:"coach_id,omitempty"`

	ImageURL *string `gorm:"size:500" json:"image_url,omitempty"`
	ImageAlt *string `gorm:"size:200" json:"image_alt,omitempty"`

	Program  *TrainingProgram `gorm:"foreignKey:ProgramID" json:"program,omitempty"`
	Coach    *User            `gorm:"foreignKey:CoachID" json:"coach,omitempty"`
	Bookings []Booking        `gorm:"foreignKey:SessionID;constraint:OnDelete:RESTRICT" json:"bookings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// OpenForBooking reports whether new reservations may be taken at now.
func (s Session) OpenForBooking(now time.Time) bool {
	return s.Status == SessionScheduled && s.StartAt.After(now)
}
