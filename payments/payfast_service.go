package payments

import (
	"strings"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/shopspring/decimal"
)

const (
	sandboxHost = "https://sandbox.payfast.co.za"
	liveHost    = "https://www.payfast.co.za"
)

// checkoutFieldOrder is the attribute order PayFast documents for checkout signatures.
var checkoutFieldOrder = []string{
	"merchant_id",
	"merchant_key",
	"return_url",
	"cancel_url",
	"notify_url",
	"email_address",
	"m_payment_id",
	"amount",
	"item_name",
}

type FormInput struct {
	Reference  string
	ItemName   string
	Amount     decimal.Decimal
	BuyerEmail string
	ReturnURL  string
	CancelURL  string
	NotifyURL  string
}

type RedirectForm struct {
	ActionURL string            `json:"action_url"`
	Fields    map[string]string `json:"fields"`
}

type PayFastService struct {
	cfg config.PayFastConfig
}

func NewPayFastService(cfg config.PayFastConfig) *PayFastService {
	return &PayFastService{cfg: cfg}
}

func (s *PayFastService) host() string {
	if s.cfg.Sandbox {
		return sandboxHost
	}
	return liveHost
}

func (s *PayFastService) ProcessURL() string {
	return s.host() + "/eng/process"
}

func (s *PayFastService) ValidateURL() string {
	if s.cfg.ValidateURL != "" {
		return s.cfg.ValidateURL
	}
	return s.host() + "/eng/query/validate"
}

// BuildOnceOffForm returns the auto-submit form that sends the buyer to the
// gateway. Empty URL overrides fall back to configuration.
func (s *PayFastService) BuildOnceOffForm(in FormInput) RedirectForm {
	fields := map[string]string{
		"merchant_id":   s.cfg.MerchantID,
		"merchant_key":  s.cfg.MerchantKey,
		"return_url":    firstNonEmpty(in.ReturnURL, s.cfg.ReturnURL),
		"cancel_url":    firstNonEmpty(in.CancelURL, s.cfg.CancelURL),
		"notify_url":    firstNonEmpty(in.NotifyURL, s.cfg.NotifyURL),
		"m_payment_id":  in.Reference,
		"amount":        in.Amount.StringFixed(2),
		"item_name":     in.ItemName,
		"email_address": in.BuyerEmail,
	}

	if strings.TrimSpace(s.cfg.Passphrase) != "" {
		fields["signature"] = SignFields(checkoutFieldOrder, fields, s.cfg.Passphrase)
	}

	return RedirectForm{ActionURL: s.ProcessURL(), Fields: fields}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
