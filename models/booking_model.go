package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// ActiveBookingStatuses are the statuses that occupy a seat.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingBooked}

func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingBooked
}

type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"session_id"`
	CustomerID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	Status        BookingStatus `gorm:"size:20;not null;index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	CancelledByID *uuid.UUID    `gorm:"type:uuid" json:"cancelled_by_id,omitempty"`
	ReminderSent  *time.Time    `json:"-"`

	Session  Session   `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Customer User      `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Payments []Payment `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

func (b *Booking) Cancel(now time.Time, by *uuid.UUID) {
	b.Status = BookingCancelled
	b.CancelledAt = &now
	b.CancelledByID = by
}

// Reinstate returns a pending or cancelled booking to booked.
func (b *Booking) Reinstate() {
	b.Status = BookingBooked
	b.CancelledAt = nil
	b.CancelledByID = nil
}
