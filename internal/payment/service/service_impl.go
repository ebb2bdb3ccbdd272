package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/paygate/internal/clock"
	"github.com/smallbiznis/paygate/internal/config"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
	"github.com/smallbiznis/paygate/internal/notifier"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/paygate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Notifier *notifier.Notifier `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
	Cfg      config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	repo         invoicedomain.Repository
	notifier     *notifier.Notifier
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		clock:        p.Clock,
		repo:         p.Repo,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
		storeTimeout: p.Cfg.StoreTimeout,
	}
}

// ProcessConfirmation applies a verified gateway confirmation to the
// payment record. The status swap is a single guarded UPDATE, so under
// concurrent deliveries exactly one caller transitions the record and
// fires notifications; every other delivery reads back the stored
// record and returns it unchanged.
func (s *Service) ProcessConfirmation(ctx context.Context, event *paymentdomain.ConfirmationEvent) (*invoicedomain.Invoice, error) {
	if event == nil || strings.TrimSpace(event.InvoiceID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	next, err := statusForEvent(event.Type)
	if err != nil {
		return nil, err
	}

	invoice, err := s.find(ctx, event.InvoiceID)
	if err != nil {
		return nil, err
	}

	// A mismatched amount is a permanent reject and never touches the record.
	if !event.Amount.Equal(invoice.Amount) {
		s.log.Warn("confirmation amount mismatch",
			zap.String("invoice_id", invoice.InvoiceID),
			zap.String("expected", invoice.Amount.String()),
			zap.String("received", event.Amount.String()),
		)
		s.metrics.RecordConfirmation("amount_mismatch")
		return nil, paymentdomain.ErrAmountMismatch
	}

	now := s.clock.Now()
	if invoice.ExpiredAt(now) {
		if _, err := s.swap(ctx, invoice.InvoiceID, invoicedomain.StatusPending, invoicedomain.StatusExpired, now); err != nil {
			return nil, err
		}
		s.metrics.RecordConfirmation(string(invoicedomain.StatusExpired))
		return s.find(ctx, event.InvoiceID)
	}

	if invoice.Status.Terminal() {
		s.metrics.RecordConfirmation("replay")
		return invoice, nil
	}

	swapped, err := s.swap(ctx, event.InvoiceID, invoicedomain.StatusPending, next, now)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost the race. The stored record is authoritative.
		s.metrics.RecordConfirmation("replay")
		return s.find(ctx, event.InvoiceID)
	}

	invoice.Status = next
	invoice.UpdatedAt = now
	s.metrics.RecordConfirmation(string(next))
	s.log.Info("payment confirmation applied",
		zap.String("invoice_id", invoice.InvoiceID),
		zap.String("provider", event.Provider),
		zap.String("status", string(next)),
	)

	if next == invoicedomain.StatusConfirmed {
		s.notifier.PaymentConfirmed(ctx, invoice)
	}
	return invoice, nil
}

func statusForEvent(eventType string) (invoicedomain.Status, error) {
	switch eventType {
	case paymentdomain.EventTypePaymentSucceeded:
		return invoicedomain.StatusConfirmed, nil
	case paymentdomain.EventTypePaymentFailed:
		return invoicedomain.StatusFailed, nil
	default:
		return "", paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) find(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.FindByInvoiceID(ctx, s.db, invoiceID)
}

func (s *Service) swap(ctx context.Context, invoiceID string, expected, next invoicedomain.Status, now time.Time) (bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.CompareAndSwapStatus(ctx, s.db, invoiceID, expected, next, now)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
