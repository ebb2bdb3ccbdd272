package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
)

var (
	ErrMissingUserID  = errors.New("missing_user_id")
	ErrMissingOrderID = errors.New("missing_order_id")
)

type CreatePaymentRequest struct {
	UserID      string          `json:"user_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Email       string          `json:"email"`
}

type CreatePaymentResponse struct {
	InvoiceID   string          `json:"invoice_id"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

type Service interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error)
	GetStatus(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error)
}
