package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/shopspring/decimal"
)

var (
	ErrUntrusted         = errors.New("untrusted gateway notification")
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrUntrusted)
	ErrRemoteValidation  = fmt.Errorf("%w: gateway did not confirm notification", ErrUntrusted)
	ErrAmountMismatch    = fmt.Errorf("%w: amount or currency mismatch", ErrUntrusted)

	// ErrGatewayUnavailable means the validate endpoint gave no answer. The
	// notification is neither trusted nor rejected.
	ErrGatewayUnavailable = errors.New("gateway validation unavailable")
)

// Expectation is what the stored payment says the gateway should report.
type Expectation struct {
	Amount   decimal.Decimal
	Currency string
}

type Verifier interface {
	Verify(ctx context.Context, fields url.Values, want Expectation) error
}

type ITNVerifier struct {
	passphrase  string
	validateURL string
	client      *http.Client
}

func NewITNVerifier(cfg config.PayFastConfig, validateURL string) *ITNVerifier {
	timeout := cfg.ValidateTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ITNVerifier{
		passphrase:  cfg.Passphrase,
		validateURL: validateURL,
		client:      &http.Client{Timeout: timeout},
	}
}

// Verify runs the signature, remote validation and amount checks in order and
// stops at the first failure. Rejections wrap ErrUntrusted; a validate call
// that could not complete returns ErrGatewayUnavailable.
func (v *ITNVerifier) Verify(ctx context.Context, fields url.Values, want Expectation) error {
	query := CanonicalString(fields)

	sent := strings.TrimSpace(fields.Get("signature"))
	if sent == "" || !strings.EqualFold(Sign(query, v.passphrase), sent) {
		return ErrSignatureMismatch
	}

	if err := v.validateRemote(ctx, query); err != nil {
		return err
	}

	gross, err := decimal.NewFromString(strings.TrimSpace(fields.Get("amount_gross")))
	if err != nil {
		return fmt.Errorf("%w: amount_gross %q", ErrAmountMismatch, fields.Get("amount_gross"))
	}
	if !gross.Equal(want.Amount) {
		return fmt.Errorf("%w: got %s want %s", ErrAmountMismatch, gross.StringFixed(2), want.Amount.StringFixed(2))
	}
	if !strings.EqualFold(strings.TrimSpace(fields.Get("currency")), want.Currency) {
		return fmt.Errorf("%w: currency %q", ErrAmountMismatch, fields.Get("currency"))
	}
	return nil
}

func (v *ITNVerifier) validateRemote(ctx context.Context, query string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.validateURL, strings.NewReader(query))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	answer := strings.ToUpper(strings.TrimSpace(string(body)))
	if answer != "VALID" {
		return fmt.Errorf("%w: answered %q", ErrRemoteValidation, answer)
	}
	return nil
}
