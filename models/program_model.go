package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TrainingProgram struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string          `gorm:"size:120;not null" json:"name"`
	Description     string          `gorm:"type:text" json:"description"`
	Level           string          `gorm:"size:40" json:"level"`
	DurationMinutes int             `gorm:"not null;default:60" json:"duration_minutes"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *TrainingProgram) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
