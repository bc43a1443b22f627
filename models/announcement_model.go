package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Announcement struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string     `gorm:"size:150;not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	SessionID *uuid.UUID `gorm:"type:uuid;index" json:"session_id,omitempty"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;not null" json:"author_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

type ContactMessage struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:120;not null" json:"name"`
	Email       string     `gorm:"size:255;not null" json:"email"`
	Subject     string     `gorm:"size:150" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	Handled     bool       `gorm:"not null;default:false;index" json:"handled"`
	HandledAt   *time.Time `json:"handled_at,omitempty"`
	HandledByID *uuid.UUID `gorm:"type:uuid" json:"handled_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *ContactMessage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
