package payments

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// encodeValue matches PHP urlencode, which PayFast signs with: spaces become
// "+" and "~" is escaped.
func encodeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "~", "%7E")
}

// CanonicalString joins every field except signature, sorted by key, as
// key=urlencode(value) pairs separated by "&".
func CanonicalString(fields url.Values) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.EqualFold(k, "signature") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encodeValue(fields.Get(k)))
	}
	return b.String()
}

// Sign returns the lowercase MD5 hex of payload with the passphrase appended when set.
func Sign(payload, passphrase string) string {
	if strings.TrimSpace(passphrase) != "" {
		payload += "&passphrase=" + encodeValue(passphrase)
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// SignFields signs fields in the given order, skipping blanks, the way
// PayFast expects for checkout forms.
func SignFields(order []string, fields map[string]string, passphrase string) string {
	parts := make([]string, 0, len(order))
	for _, k := range order {
		v := strings.TrimSpace(fields[k])
		if v == "" {
			continue
		}
		parts = append(parts, k+"="+encodeValue(v))
	}
	return Sign(strings.Join(parts, "&"), passphrase)
}
