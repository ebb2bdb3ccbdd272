package domain

import "errors"

var (
	ErrAmountTooLow       = errors.New("amount_too_low")
	ErrAmountTooHigh      = errors.New("amount_too_high")
	ErrMissingDescription = errors.New("missing_description")
	ErrDescriptionTooLong = errors.New("description_too_long")

	ErrDuplicateInvoice = errors.New("duplicate_invoice")
	ErrNotFound         = errors.New("invoice_not_found")
)
