package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEntry struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Action        string     `gorm:"size:60;not null;index" json:"action"`
	EntityType    string     `gorm:"size:40;not null" json:"entity_type"`
	EntityID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"entity_id"`
	Data          string     `gorm:"type:text" json:"data"`
	Reason        *string    `gorm:"size:500" json:"reason,omitempty"`
	PerformedByID *uuid.UUID `gorm:"type:uuid" json:"performed_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
