package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/training_academy/database/dbtest"
	"github.com/anjiri1684/training_academy/models"
)

func TestSettingsStoreLoadCreatesDefaults(t *testing.T) {
	db := dbtest.Open(t)
	store := NewSettingsStore(db)

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := store.Current()
	if got.HoldTTL() != 30*time.Minute || got.CancelCutoff() != 12*time.Hour {
		t.Errorf("defaults = %+v", got)
	}

	var n int64
	db.Model(&models.AcademySetting{}).Count(&n)
	if n != 1 {
		t.Errorf("settings rows = %d, want 1", n)
	}
}

func TestSettingsStoreUpdate(t *testing.T) {
	db := dbtest.Open(t)
	store := NewSettingsStore(db)
	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	in := store.Current()
	in.SeatHoldMinutes = 45
	in.ContactEmail = "coach@academy.example"
	if _, err := store.Update(context.Background(), in); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if store.Current().HoldTTL() != 45*time.Minute {
		t.Errorf("hold = %v after update", store.Current().HoldTTL())
	}

	reloaded := NewSettingsStore(db)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if reloaded.Current().SeatHoldMinutes != 45 {
		t.Errorf("persisted hold = %d, want 45", reloaded.Current().SeatHoldMinutes)
	}

	tests := map[string]func(*models.AcademySetting){
		"hold too short": func(s *models.AcademySetting) { s.SeatHoldMinutes = 1 },
		"bad zone":       func(s *models.AcademySetting) { s.TimeZone = "Mars/Olympus" },
		"bad email":      func(s *models.AcademySetting) { s.ContactEmail = "nope" },
		"zero capacity":  func(s *models.AcademySetting) { s.DefaultCapacity = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			bad := store.Current()
			mutate(&bad)
			if _, err := store.Update(context.Background(), bad); !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Update() error = %v, want %v", err, ErrInvalidSettings)
			}
			if store.Current().SeatHoldMinutes != 45 {
				t.Errorf("snapshot changed by rejected update")
			}
		})
	}
}
