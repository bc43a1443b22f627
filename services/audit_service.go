package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRecord struct {
	Action      string
	EntityType  string
	EntityID    uuid.UUID
	Data        any
	Reason      string
	PerformedBy *uuid.UUID
}

type AuditService struct {
	clock utils.Clock
}

func NewAuditService(clock utils.Clock) *AuditService {
	return &AuditService{clock: clock}
}

// Log writes the entry with tx so it commits or rolls back with the change it describes.
func (a *AuditService) Log(ctx context.Context, tx *gorm.DB, r AuditRecord) error {
	data := ""
	if r.Data != nil {
		b, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("encode audit data: %w", err)
		}
		data = string(b)
	}

	entry := models.AuditEntry{
		Action:        r.Action,
		EntityType:    r.EntityType,
		EntityID:      r.EntityID,
		Data:          data,
		PerformedByID: r.PerformedBy,
		CreatedAt:     a.clock.Now(),
	}
	if r.Reason != "" {
		entry.Reason = &r.Reason
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
