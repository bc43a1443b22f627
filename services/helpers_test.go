package services

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/training_academy/database"
	"github.com/anjiri1684/training_academy/database/dbtest"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingEvents struct {
	mu           sync.Mutex
	confirmed    []uuid.UUID
	cancelled    []uuid.UUID
	availability []uuid.UUID
}

func (r *recordingEvents) BookingConfirmed(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	r.confirmed = append(r.confirmed, id)
	r.mu.Unlock()
}

func (r *recordingEvents) BookingCancelled(_ context.Context, id uuid.UUID, _ string) {
	r.mu.Lock()
	r.cancelled = append(r.cancelled, id)
	r.mu.Unlock()
}

func (r *recordingEvents) AvailabilityChanged(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	r.availability = append(r.availability, id)
	r.mu.Unlock()
}

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Verify(context.Context, url.Values, payments.Expectation) error {
	s.calls++
	return s.err
}

type fixture struct {
	db     *gorm.DB
	clock  *utils.ManualClock
	events *recordingEvents
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := utils.NewManualClock(t0)
	events := &recordingEvents{}

	policy := database.DefaultPolicy()
	policy.Attempts = 20
	policy.Delay = time.Millisecond
	policy.MaxDelay = 20 * time.Millisecond

	return &fixture{
		db:     db,
		clock:  clock,
		events: events,
		deps: Deps{
			DB:       db,
			Clock:    clock,
			Policy:   policy,
			Settings: StaticSettings(models.DefaultAcademySetting()),
			Events:   events,
			Log:      dbtest.Logger(),
			Currency: "ZAR",
		},
	}
}

func (f *fixture) reload(t *testing.T, b *models.Booking, p *models.Payment) {
	t.Helper()
	if b != nil {
		if err := f.db.First(b, "id = ?", b.ID).Error; err != nil {
			t.Fatalf("reload booking: %v", err)
		}
	}
	if p != nil {
		if err := f.db.First(p, "id = ?", p.ID).Error; err != nil {
			t.Fatalf("reload payment: %v", err)
		}
	}
}

func activeCount(t *testing.T, db *gorm.DB, sessionID uuid.UUID) int64 {
	t.Helper()
	n, err := CapacityGuard{}.ActiveCount(db, sessionID)
	if err != nil {
		t.Fatalf("active count: %v", err)
	}
	return n
}
