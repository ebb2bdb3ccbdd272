package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
)

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
)

// ConfirmationEvent is the canonical gateway callback parsed by adapters.
type ConfirmationEvent struct {
	Provider    string
	InvoiceID   string
	Amount      decimal.Decimal
	Type        string
	OperationID string
	IsTest      bool
	OccurredAt  time.Time
	RawPayload  []byte
}

// AdapterConfig carries the merchant credentials shared by all providers.
// Each adapter reads only the fields it needs.
type AdapterConfig struct {
	MerchantLogin      string
	InitiationSecret   string
	ConfirmationSecret string
	BaseURL            string
	TestMode           bool
	SecretToken        string
}

type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*ConfirmationEvent, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

// Service applies a verified confirmation to the payment record exactly once.
// Redeliveries of the same outcome return the stored record without side effects.
type Service interface {
	ProcessConfirmation(ctx context.Context, event *ConfirmationEvent) (*invoicedomain.Invoice, error)
}
