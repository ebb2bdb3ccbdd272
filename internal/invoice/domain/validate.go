package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLength = 250

// ValidatePaymentRequest checks amount bounds and description
// constraints. It is pure; callers run it before anything is
// persisted.
func ValidatePaymentRequest(amount decimal.Decimal, description string, minAmount, maxAmount decimal.Decimal) error {
	if amount.LessThan(minAmount) {
		return ErrAmountTooLow
	}
	if amount.GreaterThan(maxAmount) {
		return ErrAmountTooHigh
	}
	if strings.TrimSpace(description) == "" {
		return ErrMissingDescription
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}
