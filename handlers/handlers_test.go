package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/database/dbtest"
	"github.com/anjiri1684/training_academy/handlers"
	"github.com/anjiri1684/training_academy/middleware"
	"github.com/anjiri1684/training_academy/models"
	"github.com/anjiri1684/training_academy/payments"
	"github.com/anjiri1684/training_academy/routes"
	"github.com/anjiri1684/training_academy/services"
	"github.com/anjiri1684/training_academy/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	jwtSecret  = "handler-test-secret"
	passphrase = "academy-secret"
)

type testAPI struct {
	app   *fiber.App
	db    *gorm.DB
	clock *utils.ManualClock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, "VALID")
	})
}

// newTestAPIWithGateway serves the PayFast validate endpoint with validateFn.
func newTestAPIWithGateway(t *testing.T, validateFn http.HandlerFunc) *testAPI {
	t.Helper()

	validate := httptest.NewServer(validateFn)
	t.Cleanup(validate.Close)

	db := dbtest.Open(t)
	// Tokens are checked against the wall clock, so start from it.
	clock := utils.NewManualClock(time.Now().UTC().Truncate(time.Second))
	log := dbtest.Logger()

	cfg := config.Config{
		JWTSecret:     jwtSecret,
		JWTTTL:        time.Hour,
		PublicBaseURL: "https://academy.example",
		Currency:      "ZAR",
		PayFast: config.PayFastConfig{
			Sandbox:     true,
			MerchantID:  "10000100",
			MerchantKey: "46f0cd694581a",
			Passphrase:  passphrase,
		},
	}

	settings := services.NewSettingsStore(db)
	deps := services.Deps{DB: db, Clock: clock, Settings: settings, Log: log, Currency: cfg.Currency}
	h := &handlers.Handler{
		Config:       cfg,
		DB:           db,
		Clock:        clock,
		Log:          log,
		Reservations: services.NewReservationService(deps),
		Reconciler:   services.NewReconciliationService(deps, payments.NewITNVerifier(cfg.PayFast, validate.URL)),
		Schedule:     services.NewScheduleService(db, clock),
		Admin:        services.NewAdminService(deps, nil),
		Settings:     settings,
		PayFast:      payments.NewPayFastService(cfg.PayFast),
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	routes.Setup(app, h, routes.Options{JWTSecret: jwtSecret})
	return &testAPI{app: app, db: db, clock: clock}
}

func (a *testAPI) token(t *testing.T, role models.Role) (models.User, string) {
	t.Helper()
	u := dbtest.CreateUser(t, a.db, role)
	tok, err := middleware.IssueToken(jwtSecret, u.ID, role, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return u, tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func (a *testAPI) notify(t *testing.T, fields url.Values) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/payments/payfast/notify", strings.NewReader(fields.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == fiber.StatusOK && len(body) != 0 {
		t.Errorf("notify acknowledged with body %q, want empty", body)
	}
	return resp.StatusCode
}

func (a *testAPI) reservePayFast(t *testing.T, capacity int) handlers.PayFastCheckoutResponse {
	t.Helper()
	_, tok := a.token(t, models.RoleCustomer)
	session := dbtest.CreateSession(t, a.db, a.clock.Now().Add(48*time.Hour), dbtest.WithCapacity(capacity))
	resp, body := a.do(t, fiber.MethodPost, "/api/v1/bookings/payfast", tok, fiber.Map{"session_id": session.ID})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("checkout status = %d body = %s", resp.StatusCode, body)
	}
	var checkout handlers.PayFastCheckoutResponse
	if err := json.Unmarshal(body, &checkout); err != nil {
		t.Fatal(err)
	}
	return checkout
}

func (a *testAPI) states(t *testing.T, checkout handlers.PayFastCheckoutResponse) (models.BookingStatus, models.PaymentStatus) {
	t.Helper()
	var b models.Booking
	var p models.Payment
	if err := a.db.First(&b, "id = ?", checkout.Booking.ID).Error; err != nil {
		t.Fatal(err)
	}
	if err := a.db.First(&p, "reference = ?", checkout.Reference).Error; err != nil {
		t.Fatal(err)
	}
	return b.Status, p.Status
}

func gatewayFields(ref, status, amount string) url.Values {
	f := url.Values{}
	f.Set("m_payment_id", ref)
	f.Set("pf_payment_id", "1089250")
	f.Set("payment_status", status)
	f.Set("item_name", "Goalkeeping Clinic")
	f.Set("amount_gross", amount)
	f.Set("currency", "ZAR")
	f.Set("signature", payments.Sign(payments.CanonicalString(f), passphrase))
	return f
}

func TestPayFastCheckoutAndNotification(t *testing.T) {
	api := newTestAPI(t)
	customer, tok := api.token(t, models.RoleCustomer)
	session := dbtest.CreateSession(t, api.db, api.clock.Now().Add(48*time.Hour), dbtest.WithPrice("100.00"))

	resp, body := api.do(t, fiber.MethodPost, "/api/v1/bookings/payfast", tok, fiber.Map{"session_id": session.ID})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("checkout status = %d body = %s", resp.StatusCode, body)
	}
	var checkout handlers.PayFastCheckoutResponse
	if err := json.Unmarshal(body, &checkout); err != nil {
		t.Fatal(err)
	}

	if checkout.ActionURL != "https://sandbox.payfast.co.za/eng/process" {
		t.Errorf("action url = %s", checkout.ActionURL)
	}
	if checkout.Fields["m_payment_id"] != checkout.Reference {
		t.Fatalf("form reference %q != returned reference %q", checkout.Fields["m_payment_id"], checkout.Reference)
	}
	if checkout.Fields["amount"] != "100.00" || checkout.Fields["email_address"] != customer.Email {
		t.Errorf("fields = %v", checkout.Fields)
	}
	if checkout.Fields["notify_url"] != "https://academy.example/api/v1/payments/payfast/notify" {
		t.Errorf("notify_url = %s", checkout.Fields["notify_url"])
	}
	if checkout.Fields["signature"] == "" {
		t.Error("checkout form is unsigned")
	}

	// A forged notification is acknowledged but changes nothing.
	forged := gatewayFields(checkout.Reference, "COMPLETE", "100.00")
	forged.Set("amount_gross", "1.00")
	if code := api.notify(t, forged); code != fiber.StatusOK {
		t.Fatalf("forged notify status = %d", code)
	}
	var b models.Booking
	api.db.First(&b, "id = ?", checkout.Booking.ID)
	if b.Status != models.BookingPending {
		t.Fatalf("forged notification moved booking to %s", b.Status)
	}

	if code := api.notify(t, gatewayFields(checkout.Reference, "COMPLETE", "100.00")); code != fiber.StatusOK {
		t.Fatalf("notify status = %d", code)
	}
	api.db.First(&b, "id = ?", checkout.Booking.ID)
	var p models.Payment
	api.db.First(&p, "reference = ?", checkout.Reference)
	if b.Status != models.BookingBooked || p.Status != models.PaymentPaid {
		t.Errorf("after notify booking = %s payment = %s", b.Status, p.Status)
	}

	resp, body = api.do(t, fiber.MethodGet, "/api/v1/payments/payfast/return?ref="+url.QueryEscape(checkout.Reference), "", nil)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), `"status":"paid"`) {
		t.Errorf("return page = %d %s", resp.StatusCode, body)
	}
}

func TestNotifyUnknownReferenceIsAcknowledged(t *testing.T) {
	api := newTestAPI(t)
	if code := api.notify(t, gatewayFields("PF-nope", "COMPLETE", "1.00")); code != fiber.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestNotifyStoreFailureAsksForRetry(t *testing.T) {
	api := newTestAPI(t)
	sqlDB, _ := api.db.DB()
	_ = sqlDB.Close()
	ref := utils.PaymentReference(utils.PayFastReferencePrefix, uuid.New(), time.Now())
	if code := api.notify(t, gatewayFields(ref, "COMPLETE", "1.00")); code != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", code)
	}
}

func TestNotifyValidateOutageAsksForRetry(t *testing.T) {
	var up atomic.Bool
	api := newTestAPIWithGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "VALID")
	})
	checkout := api.reservePayFast(t, 1)
	fields := gatewayFields(checkout.Reference, "COMPLETE", "100.00")

	if code := api.notify(t, fields); code != fiber.StatusInternalServerError {
		t.Fatalf("notify during outage = %d, want 500", code)
	}
	if b, p := api.states(t, checkout); b != models.BookingPending || p != models.PaymentPending {
		t.Fatalf("after outage booking = %s payment = %s, want both pending", b, p)
	}

	// The gateway retries once the validate endpoint is back.
	up.Store(true)
	if code := api.notify(t, fields); code != fiber.StatusOK {
		t.Fatalf("retried notify = %d, want 200", code)
	}
	if b, p := api.states(t, checkout); b != models.BookingBooked || p != models.PaymentPaid {
		t.Errorf("after retry booking = %s payment = %s", b, p)
	}
}

func TestNotifyUnreachableValidateEndpoint(t *testing.T) {
	api := newTestAPIWithGateway(t, func(w http.ResponseWriter, r *http.Request) {
		// Drop the connection without answering.
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})
	checkout := api.reservePayFast(t, 1)

	if code := api.notify(t, gatewayFields(checkout.Reference, "COMPLETE", "100.00")); code != fiber.StatusInternalServerError {
		t.Fatalf("notify = %d, want 500", code)
	}
	if b, p := api.states(t, checkout); b != models.BookingPending || p != models.PaymentPending {
		t.Errorf("booking = %s payment = %s, want both pending", b, p)
	}
}

func TestNotifyGatewayRejectionIsAcknowledged(t *testing.T) {
	api := newTestAPIWithGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, "INVALID")
	})
	checkout := api.reservePayFast(t, 1)

	if code := api.notify(t, gatewayFields(checkout.Reference, "COMPLETE", "100.00")); code != fiber.StatusOK {
		t.Fatalf("notify = %d, want 200", code)
	}
	if b, p := api.states(t, checkout); b != models.BookingPending || p != models.PaymentFailed {
		t.Errorf("booking = %s payment = %s, want pending/failed", b, p)
	}
}

func TestBookingErrorsMapToStatus(t *testing.T) {
	api := newTestAPI(t)
	_, tok := api.token(t, models.RoleCustomer)
	_, other := api.token(t, models.RoleCustomer)

	single := dbtest.CreateSession(t, api.db, api.clock.Now().Add(48*time.Hour), dbtest.WithCapacity(1))
	cancelled := dbtest.CreateSession(t, api.db, api.clock.Now().Add(48*time.Hour), dbtest.WithStatus(models.SessionCancelled))

	if resp, body := api.do(t, fiber.MethodPost, "/api/v1/bookings/cash", tok, fiber.Map{"session_id": single.ID}); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("cash booking = %d %s", resp.StatusCode, body)
	}

	tests := []struct {
		name  string
		token string
		path  string
		body  fiber.Map
		want  int
	}{
		{"duplicate", tok, "/api/v1/bookings/payfast", fiber.Map{"session_id": single.ID}, fiber.StatusConflict},
		{"full", other, "/api/v1/bookings/payfast", fiber.Map{"session_id": single.ID}, fiber.StatusConflict},
		{"not available", other, "/api/v1/bookings/cash", fiber.Map{"session_id": cancelled.ID}, fiber.StatusUnprocessableEntity},
		{"bad id", other, "/api/v1/bookings/cash", fiber.Map{"session_id": "nope"}, fiber.StatusBadRequest},
		{"no token", "", "/api/v1/bookings/cash", fiber.Map{"session_id": single.ID}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := api.do(t, fiber.MethodPost, tt.path, tt.token, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestAuthRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)
	reg := fiber.Map{"full_name": "Thandi Nkosi", "email": "thandi@example.com", "password": "secret123"}

	if resp, body := api.do(t, fiber.MethodPost, "/api/v1/auth/register", "", reg); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register = %d %s", resp.StatusCode, body)
	}
	if resp, _ := api.do(t, fiber.MethodPost, "/api/v1/auth/register", "", reg); resp.StatusCode != fiber.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", resp.StatusCode)
	}

	resp, body := api.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "thandi@example.com", "password": "secret123"})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login = %d %s", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(body, &out)

	if resp, _ := api.do(t, fiber.MethodGet, "/api/v1/bookings/me", out.Token, nil); resp.StatusCode != fiber.StatusOK {
		t.Errorf("my bookings with issued token = %d", resp.StatusCode)
	}
	if resp, _ := api.do(t, fiber.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "thandi@example.com", "password": "wrong"}); resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad password login = %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	api := newTestAPI(t)
	_, customer := api.token(t, models.RoleCustomer)
	_, admin := api.token(t, models.RoleAdmin)

	if resp, _ := api.do(t, fiber.MethodGet, "/api/v1/admin/payments/summary", customer, nil); resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("customer summary = %d, want 403", resp.StatusCode)
	}
	if resp, body := api.do(t, fiber.MethodGet, "/api/v1/admin/payments/summary", admin, nil); resp.StatusCode != fiber.StatusOK {
		t.Errorf("admin summary = %d %s", resp.StatusCode, body)
	}
	if resp, _ := api.do(t, fiber.MethodGet, "/api/v1/sessions", "", nil); resp.StatusCode != fiber.StatusOK {
		t.Errorf("public sessions = %d", resp.StatusCode)
	}
}
