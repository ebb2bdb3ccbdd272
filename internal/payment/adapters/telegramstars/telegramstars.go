package telegramstars

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paygate/internal/payment/domain"
)

// Telegram sends the webhook secret back verbatim on every delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "telegram_stars"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.SecretToken)
	if secret == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &Adapter{secretToken: secret}, nil
}

type Adapter struct {
	secretToken string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	token := strings.TrimSpace(headers.Get(secretTokenHeader))
	if token == "" {
		return domain.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(token), []byte(a.secretToken)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.ConfirmationEvent, error) {
	var update botUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return nil, domain.ErrEventIgnored
	}

	payment := update.Message.SuccessfulPayment
	invoiceID := strings.TrimSpace(payment.InvoicePayload)
	if invoiceID == "" {
		return nil, domain.ErrInvalidEvent
	}

	occurredAt := time.Now().UTC()
	if update.Message.Date > 0 {
		occurredAt = time.Unix(update.Message.Date, 0).UTC()
	}

	return &domain.ConfirmationEvent{
		Provider:    "telegram_stars",
		InvoiceID:   invoiceID,
		Amount:      decimal.NewFromInt(payment.TotalAmount),
		Type:        domain.EventTypePaymentSucceeded,
		OperationID: strings.TrimSpace(payment.TelegramPaymentChargeID),
		OccurredAt:  occurredAt,
		RawPayload:  payload,
	}, nil
}

type botUpdate struct {
	UpdateID int64       `json:"update_id"`
	Message  *botMessage `json:"message"`
}

type botMessage struct {
	Date              int64              `json:"date"`
	SuccessfulPayment *successfulPayment `json:"successful_payment"`
}

type successfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int64  `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}
