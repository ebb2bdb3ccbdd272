// Package signature implements the keyed digest used on both sides of
// the gateway boundary: outbound redirect URLs are signed with the
// initiation secret and inbound result webhooks are verified with the
// confirmation secret. The canonical encoding is the provider's:
// colon-joined values, optional custom parameters appended in sorted
// key=value form, shared secret last, MD5 over the whole string,
// lowercase hex.
package signature

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Digest computes the signature over the ordered field values.
func Digest(values []string, extras map[string]string, secret string) string {
	parts := make([]string, 0, len(values)+len(extras)+1)
	parts = append(parts, values...)

	if len(extras) > 0 {
		keys := make([]string, 0, len(extras))
		for key := range extras {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, key+"="+extras[key])
		}
	}

	parts = append(parts, secret)

	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether candidate matches the digest of the given
// fields. The comparison is case-insensitive and constant-time; this
// check guards a trust boundary and must not leak timing.
func Verify(values []string, extras map[string]string, secret, candidate string) bool {
	expected := Digest(values, extras, secret)
	return hmac.Equal(
		[]byte(strings.ToLower(strings.TrimSpace(candidate))),
		[]byte(expected),
	)
}

// FormatAmount renders an amount exactly as the provider signs it:
// two decimal places, no thousands separators.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
