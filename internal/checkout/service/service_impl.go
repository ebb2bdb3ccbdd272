package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	checkoutdomain "github.com/smallbiznis/paygate/internal/checkout/domain"
	"github.com/smallbiznis/paygate/internal/clock"
	"github.com/smallbiznis/paygate/internal/config"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	"github.com/smallbiznis/paygate/internal/payment/adapters/robokassa"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxInsertAttempts bounds retries when a generated invoice id collides.
const maxInsertAttempts = 3

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Limits   *config.LimitsHolder
	Redirect *robokassa.Adapter `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
	Cfg      config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         invoicedomain.Repository
	limits       *config.LimitsHolder
	redirect     *robokassa.Adapter
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

func NewService(p Params) checkoutdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("checkout.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		limits:       p.Limits,
		redirect:     p.Redirect,
		metrics:      p.Metrics,
		storeTimeout: p.Cfg.StoreTimeout,
	}
}

func (s *Service) CreatePayment(ctx context.Context, req checkoutdomain.CreatePaymentRequest) (checkoutdomain.CreatePaymentResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	orderID := strings.TrimSpace(req.OrderID)
	if userID == "" {
		return checkoutdomain.CreatePaymentResponse{}, checkoutdomain.ErrMissingUserID
	}
	if orderID == "" {
		return checkoutdomain.CreatePaymentResponse{}, checkoutdomain.ErrMissingOrderID
	}

	limits := s.limits.Current()
	if err := invoicedomain.ValidatePaymentRequest(req.Amount, req.Description, limits.MinAmount, limits.MaxAmount); err != nil {
		return checkoutdomain.CreatePaymentResponse{}, err
	}

	now := s.clock.Now()
	invoice := &invoicedomain.Invoice{
		UserID:      userID,
		OrderID:     orderID,
		Amount:      req.Amount,
		Currency:    limits.Currency,
		Description: strings.TrimSpace(req.Description),
		Email:       strings.TrimSpace(req.Email),
		Status:      invoicedomain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(limits.InvoiceTTL),
	}

	var insertErr error
	for attempt := 0; attempt < maxInsertAttempts; attempt++ {
		invoice.ID = s.genID.Generate()
		invoice.InvoiceID = newInvoiceID(userID, orderID, now)
		insertErr = s.insert(ctx, invoice)
		if insertErr == nil {
			break
		}
		if !errors.Is(insertErr, invoicedomain.ErrDuplicateInvoice) {
			return checkoutdomain.CreatePaymentResponse{}, insertErr
		}
	}
	if insertErr != nil {
		return checkoutdomain.CreatePaymentResponse{}, insertErr
	}

	// A configured gateway that cannot sign the redirect is a hard
	// failure: a payment nobody can pay helps no one.
	var redirectURL string
	if s.redirect != nil {
		built, err := s.redirect.BuildRedirectURL(invoice.InvoiceID, invoice.Amount, invoice.Description, invoice.Email, nil)
		if err != nil {
			s.log.Error("redirect url build failed",
				zap.String("invoice_id", invoice.InvoiceID),
				zap.Error(err),
			)
			return checkoutdomain.CreatePaymentResponse{}, err
		}
		redirectURL = built
	}

	s.metrics.RecordPaymentInitiated(invoice.Currency)
	s.log.Info("payment created",
		zap.String("invoice_id", invoice.InvoiceID),
		zap.String("user_id", userID),
		zap.String("amount", invoice.Amount.String()),
	)

	return checkoutdomain.CreatePaymentResponse{
		InvoiceID:   invoice.InvoiceID,
		Status:      string(invoice.Status),
		Amount:      invoice.Amount,
		Currency:    invoice.Currency,
		RedirectURL: redirectURL,
		ExpiresAt:   invoice.ExpiresAt,
	}, nil
}

// GetStatus returns the stored record, first sweeping a pending invoice
// past its deadline into the expired status.
func (s *Service) GetStatus(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, invoicedomain.ErrNotFound
	}

	invoice, err := s.findByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if invoice.ExpiredAt(now) {
		if _, err := s.swap(ctx, invoiceID, invoicedomain.StatusPending, invoicedomain.StatusExpired, now); err != nil {
			return nil, err
		}
		return s.findByInvoiceID(ctx, invoiceID)
	}
	return invoice, nil
}

// The id embeds the buyer, order and creation instant, with a random
// suffix so retried checkouts never collide.
func newInvoiceID(userID, orderID string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s:%s:%d:%s", userID, orderID, now.Unix(), suffix)
}

func (s *Service) insert(ctx context.Context, invoice *invoicedomain.Invoice) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.Insert(ctx, s.db, invoice)
}

func (s *Service) findByInvoiceID(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
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
