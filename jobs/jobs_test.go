package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anjiri1684/training_academy/database/dbtest"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/notifications"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"gorm.io/gorm"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type env struct {
	db    *gorm.DB
	clock *utils.ManualClock
	deps  services.Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	clock := utils.NewManualClock(t0)
	return &env{
		db:    db,
		clock: clock,
		deps: services.Deps{
			DB:       db,
			Clock:    clock,
			Settings: services.StaticSettings(models.DefaultAcademySetting()),
			Log:      dbtest.Logger(),
		},
	}
}

func (e *env) reserve(t *testing.T, session models.Session, method models.PaymentMethod) *services.Reservation {
	t.Helper()
	customer := dbtest.CreateUser(t, e.db, models.RoleCustomer)
	res, err := services.NewReservationService(e.deps).Reserve(context.Background(),
		services.ReserveInput{SessionID: session.ID, CustomerID: customer.ID, Method: method})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	return res
}

func statuses(t *testing.T, db *gorm.DB, res *services.Reservation) (models.BookingStatus, models.PaymentStatus) {
	t.Helper()
	var b models.Booking
	var p models.Payment
	if err := db.First(&b, "id = ?", res.Booking.ID).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.First(&p, "id = ?", res.Payment.ID).Error; err != nil {
		t.Fatal(err)
	}
	return b.Status, p.Status
}

func TestSweepHonoursSeatHold(t *testing.T) {
	e := newEnv(t)
	session := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour))
	online := e.reserve(t, session, models.MethodPayFast)
	cash := e.reserve(t, session, models.MethodCash)
	job := NewPendingCleanupJob(e.deps, 0)

	e.clock.Set(t0.Add(29 * time.Minute))
	n, err := job.Sweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Sweep() at T+29m = %d, %v; want 0, nil", n, err)
	}
	if b, p := statuses(t, e.db, online); b != models.BookingPending || p != models.PaymentPending {
		t.Fatalf("T+29m: booking = %s payment = %s", b, p)
	}

	e.clock.Set(t0.Add(31 * time.Minute))
	n, err = job.Sweep(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Sweep() at T+31m = %d, %v; want 1, nil", n, err)
	}
	if b, p := statuses(t, e.db, online); b != models.BookingCancelled || p != models.PaymentCancelled {
		t.Errorf("T+31m: booking = %s payment = %s", b, p)
	}
	// Cash reservations are settled in person and never swept.
	if b, p := statuses(t, e.db, cash); b != models.BookingBooked || p != models.PaymentPending {
		t.Errorf("cash: booking = %s payment = %s", b, p)
	}

	n, err = job.Sweep(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second Sweep() = %d, %v; want 0, nil", n, err)
	}
}

func TestSweepSkipsConfirmedBookings(t *testing.T) {
	e := newEnv(t)
	session := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour))
	res := e.reserve(t, session, models.MethodPayFast)

	// Notification confirmed the booking but the payment row lags behind.
	e.db.Model(&models.Booking{}).Where("id = ?", res.Booking.ID).Update("status", models.BookingBooked)

	e.clock.Set(t0.Add(2 * time.Hour))
	n, err := NewPendingCleanupJob(e.deps, 0).Sweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Sweep() = %d, %v; want 0, nil", n, err)
	}
	if b, p := statuses(t, e.db, res); b != models.BookingBooked || p != models.PaymentPending {
		t.Errorf("booking = %s payment = %s", b, p)
	}
}

func TestSweepSafetyMarginAppliesToShortHolds(t *testing.T) {
	e := newEnv(t)
	st := models.DefaultAcademySetting()
	st.SeatHoldMinutes = 5
	e.deps.Settings = services.StaticSettings(st)

	session := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour))
	res := e.reserve(t, session, models.MethodPayFast)

	e.clock.Set(t0.Add(6 * time.Minute))
	job := NewPendingCleanupJob(e.deps, 10*time.Minute)
	if n, err := job.Sweep(context.Background()); err != nil || n != 0 {
		t.Fatalf("inside safety margin: Sweep() = %d, %v", n, err)
	}

	e.clock.Set(t0.Add(11 * time.Minute))
	if n, err := job.Sweep(context.Background()); err != nil || n != 1 {
		t.Fatalf("past safety margin: Sweep() = %d, %v", n, err)
	}
	if b, _ := statuses(t, e.db, res); b != models.BookingCancelled {
		t.Errorf("booking = %s, want cancelled", b)
	}
}

func TestSweepReportsStoreErrors(t *testing.T) {
	e := newEnv(t)
	job := NewPendingCleanupJob(e.deps, 0)
	sqlDB, _ := e.db.DB()
	_ = sqlDB.Close()

	if _, err := job.Sweep(context.Background()); err == nil {
		t.Fatal("Sweep() on closed store returned nil error")
	}
}

type countingMailer struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (m *countingMailer) Send(_ context.Context, msg notifications.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func TestReminderJobSendsOnce(t *testing.T) {
	e := newEnv(t)
	mailer := &countingMailer{}
	job := NewReminderJob(e.db, e.clock, e.deps.Settings, mailer, dbtest.Logger())

	tomorrow := dbtest.CreateSession(t, e.db, t0.Add(24*time.Hour+10*time.Minute))
	later := dbtest.CreateSession(t, e.db, t0.Add(30*time.Hour))
	booked := e.reserve(t, tomorrow, models.MethodCash)
	e.reserve(t, tomorrow, models.MethodPayFast)
	e.reserve(t, later, models.MethodCash)

	n, err := job.Send(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Send() = %d, %v; want 1, nil", n, err)
	}
	msg := mailer.sent[0]
	var customer models.User
	e.db.First(&customer, "id = ?", booked.Booking.CustomerID)
	if msg.ToEmail != customer.Email || len(msg.Attachments) != 1 {
		t.Errorf("reminder = %+v", msg)
	}

	e.clock.Advance(15 * time.Minute)
	if n, err := job.Send(context.Background()); err != nil || n != 0 {
		t.Errorf("second Send() = %d, %v; want 0, nil", n, err)
	}
}

func TestReminderJobEmailFailureIsNotFatal(t *testing.T) {
	e := newEnv(t)
	mailer := &countingMailer{err: errors.New("brevo down")}
	job := NewReminderJob(e.db, e.clock, e.deps.Settings, mailer, dbtest.Logger())
	e.reserve(t, dbtest.CreateSession(t, e.db, t0.Add(24*time.Hour)), models.MethodCash)

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Errorf("attempts = %d, want 1", len(mailer.sent))
	}
}

func TestCompletionJob(t *testing.T) {
	e := newEnv(t)
	past := dbtest.CreateSession(t, e.db, t0.Add(2*time.Hour))
	future := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour))
	done := e.reserve(t, past, models.MethodCash)
	pending := e.reserve(t, past, models.MethodPayFast)
	upcoming := e.reserve(t, future, models.MethodCash)

	e.clock.Set(t0.Add(4 * time.Hour))
	sessions, bookings, err := NewCompletionJob(e.db, e.clock, e.deps.Policy, dbtest.Logger()).Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if sessions != 1 || bookings != 1 {
		t.Errorf("completed sessions = %d bookings = %d, want 1 and 1", sessions, bookings)
	}
	if b, _ := statuses(t, e.db, done); b != models.BookingCompleted {
		t.Errorf("booked seat = %s, want completed", b)
	}
	if b, _ := statuses(t, e.db, pending); b != models.BookingPending {
		t.Errorf("unpaid seat = %s, want pending", b)
	}
	if b, _ := statuses(t, e.db, upcoming); b != models.BookingBooked {
		t.Errorf("future seat = %s, want booked", b)
	}
}

type flakyJob struct {
	runs atomic.Int32
}

func (j *flakyJob) Name() string { return "flaky" }

func (j *flakyJob) Run(context.Context) error {
	j.runs.Add(1)
	return errors.New("boom")
}

func TestRunOnceSwallowsErrors(t *testing.T) {
	j := &flakyJob{}
	RunOnce(context.Background(), j, dbtest.Logger())
	if j.runs.Load() != 1 {
		t.Errorf("runs = %d", j.runs.Load())
	}
}

func TestSchedulerRejectsBadInterval(t *testing.T) {
	s := NewScheduler(dbtest.Logger())
	if err := s.Every(0, &flakyJob{}); err == nil {
		t.Error("Every(0) accepted")
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

type verifierFunc func() error

func (f verifierFunc) Verify(context.Context, url.Values, payments.Expectation) error { return f() }

func gatewayPost(res *services.Reservation) url.Values {
	fields := url.Values{}
	fields.Set("m_payment_id", res.Reference())
	fields.Set("pf_payment_id", "1089250")
	fields.Set("payment_status", "COMPLETE")
	fields.Set("amount_gross", "100.00")
	fields.Set("currency", "ZAR")
	fields.Set("signature", "ignored-by-stub")
	return fields
}

// A notification the gateway would not vouch for must not keep the seat.
func TestSweepReleasesSeatAfterRejectedNotification(t *testing.T) {
	e := newEnv(t)
	session := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour), dbtest.WithCapacity(1))
	held := e.reserve(t, session, models.MethodPayFast)

	reconcile := services.NewReconciliationService(e.deps, verifierFunc(func() error { return payments.ErrRemoteValidation }))
	out, err := reconcile.HandleNotification(context.Background(), gatewayPost(held))
	if err != nil || out != services.OutcomeRejected {
		t.Fatalf("HandleNotification() = %s, %v; want rejected, nil", out, err)
	}
	if b, p := statuses(t, e.db, held); b != models.BookingPending || p != models.PaymentFailed {
		t.Fatalf("after rejection: booking = %s payment = %s", b, p)
	}

	e.clock.Set(t0.Add(31 * time.Minute))
	n, err := NewPendingCleanupJob(e.deps, 0).Sweep(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Sweep() = %d, %v; want 1, nil", n, err)
	}
	if b, p := statuses(t, e.db, held); b != models.BookingCancelled || p != models.PaymentFailed {
		t.Errorf("after sweep: booking = %s payment = %s, want cancelled/failed", b, p)
	}

	// The seat is free again.
	e.reserve(t, session, models.MethodCash)
}

func TestSweepReleasesSeatAfterValidateOutage(t *testing.T) {
	e := newEnv(t)
	session := dbtest.CreateSession(t, e.db, t0.Add(48*time.Hour), dbtest.WithCapacity(1))
	held := e.reserve(t, session, models.MethodPayFast)

	reconcile := services.NewReconciliationService(e.deps, verifierFunc(func() error {
		return fmt.Errorf("%w: connection refused", payments.ErrGatewayUnavailable)
	}))
	if _, err := reconcile.HandleNotification(context.Background(), gatewayPost(held)); !errors.Is(err, payments.ErrGatewayUnavailable) {
		t.Fatalf("HandleNotification() error = %v, want %v", err, payments.ErrGatewayUnavailable)
	}

	// The gateway never got through again.
	e.clock.Set(t0.Add(3 * time.Hour))
	n, err := NewPendingCleanupJob(e.deps, 0).Sweep(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Sweep() = %d, %v; want 1, nil", n, err)
	}
	if b, p := statuses(t, e.db, held); b != models.BookingCancelled || p != models.PaymentCancelled {
		t.Errorf("after sweep: booking = %s payment = %s", b, p)
	}
	e.reserve(t, session, models.MethodPayFast)
}
