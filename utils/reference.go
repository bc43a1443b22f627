package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PayFastReferencePrefix = "PF"
	CashReferencePrefix    = "CASH"

	referenceTimeLayout = "20060102150405"
)

// PaymentReference builds the merchant reference sent to the gateway as m_payment_id.
func PaymentReference(prefix string, bookingID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, bookingID, at.UTC().Format(referenceTimeLayout))
}

// ParsePaymentReference recovers the booking id from a merchant reference.
func ParsePaymentReference(ref string) (prefix string, bookingID uuid.UUID, err error) {
	i := strings.Index(ref, "-")
	j := strings.LastIndex(ref, "-")
	if i <= 0 || j <= i {
		return "", uuid.Nil, fmt.Errorf("malformed payment reference %q", ref)
	}
	if _, err := time.Parse(referenceTimeLayout, ref[j+1:]); err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed payment reference %q: %w", ref, err)
	}
	id, err := uuid.Parse(ref[i+1 : j])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed payment reference %q: %w", ref, err)
	}
	return ref[:i], id, nil
}
