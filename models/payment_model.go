package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodPayFast PaymentMethod = "payfast"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCash || m == MethodPayFast
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null;default:'ZAR'" json:"currency"`
	Method            PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Status            PaymentStatus   `gorm:"size:20;not null;index" json:"status"`
	Reference         string          `gorm:"size:80;not null;uniqueIndex" json:"reference"`
	ProviderReference *string         `gorm:"size:100" json:"provider_reference,omitempty"`
	SignatureVerified bool            `gorm:"not null;default:false" json:"signature_verified"`
	RawPayload        *string         `gorm:"type:text" json:"-"`
	AdminNote         *string         `gorm:"size:500" json:"admin_note,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// MarkPaid moves the payment to paid. paid_at is stamped on the first call only.
func MarkPaid(p *Payment, now time.Time) {
	p.Status = PaymentPaid
	if p.PaidAt == nil {
		p.PaidAt = &now
	}
	p.UpdatedAt = &now
}

func MarkFailed(p *Payment, now time.Time) {
	p.Status = PaymentFailed
	p.UpdatedAt = &now
}

func MarkCancelled(p *Payment, now time.Time) {
	p.Status = PaymentCancelled
	p.UpdatedAt = &now
}
