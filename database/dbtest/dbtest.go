// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated file-backed database. Transactions begin IMMEDIATE so
// concurrent writers serialize the way they would under SERIALIZABLE.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "academy.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=10000&_foreign_keys=on&_journal_mode=WAL", path)

	db, err := database.Open(sqlite.Open(dsn), Logger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func CreateUser(t testing.TB, db *gorm.DB, role models.Role) models.User {
	t.Helper()
	id := uuid.New()
	u := models.User{
		ID:       id,
		FullName: "User " + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type SessionOption func(*models.Session)

func WithCapacity(n int) SessionOption {
	return func(s *models.Session) { s.Capacity = n }
}

func WithPrice(p string) SessionOption {
	return func(s *models.Session) { s.Price = decimal.RequireFromString(p) }
}

func WithStatus(st models.SessionStatus) SessionOption {
	return func(s *models.Session) { s.Status = st }
}

func WithCoach(id uuid.UUID) SessionOption {
	return func(s *models.Session) { s.CoachID = &id }
}

// CreateSession inserts a scheduled session starting at start.
func CreateSession(t testing.TB, db *gorm.DB, start time.Time, opts ...SessionOption) models.Session {
	t.Helper()
	s := models.Session{
		Title:     "Goalkeeping Clinic",
		Level:     "U13",
		Location:  "Field 2",
		Capacity:  10,
		Price:     decimal.RequireFromString("100.00"),
		StartAt:   start.UTC(),
		EndAt:     start.UTC().Add(90 * time.Minute),
		Status:    models.SessionScheduled,
		CreatedAt: start.UTC().Add(-72 * time.Hour),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}
