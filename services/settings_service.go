package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anjiri1684/training_academy/models"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type SettingsProvider interface {
	Current() models.AcademySetting
}

// StaticSettings serves a fixed snapshot.
type StaticSettings models.AcademySetting

func (s StaticSettings) Current() models.AcademySetting { return models.AcademySetting(s) }

// SettingsStore keeps the persisted academy settings in memory. Reads are
// served from the snapshot; Update validates, persists and swaps it.
type SettingsStore struct {
	db       *gorm.DB
	validate *validator.Validate

	mu      sync.RWMutex
	current models.AcademySetting
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{
		db:       db,
		validate: validator.New(),
		current:  models.DefaultAcademySetting(),
	}
}

func (s *SettingsStore) Load(ctx context.Context) error {
	var st models.AcademySetting
	err := s.db.WithContext(ctx).First(&st, models.AcademySettingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = models.DefaultAcademySetting()
		if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
			return fmt.Errorf("create default settings: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := s.validate.Struct(st); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	s.mu.Lock()
	s.current = st
	s.mu.Unlock()
	return nil
}

func (s *SettingsStore) Current() models.AcademySetting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SettingsStore) Update(ctx context.Context, in models.AcademySetting) (models.AcademySetting, error) {
	in.ID = models.AcademySettingID
	if err := s.validate.Struct(in); err != nil {
		return models.AcademySetting{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.db.WithContext(ctx).Save(&in).Error; err != nil {
		return models.AcademySetting{}, fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.current = in
	s.mu.Unlock()
	return in, nil
}
