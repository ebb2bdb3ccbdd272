package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paygate/internal/clock"
	"github.com/smallbiznis/paygate/internal/config"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
	"github.com/smallbiznis/paygate/internal/notifier"
	paymentservice "github.com/smallbiznis/paygate/internal/payment/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memoryRepo serializes swaps behind a mutex so concurrent deliveries
// exercise the winner/loser paths without a real database.
type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*invoicedomain.Invoice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]*invoicedomain.Invoice{}}
}

func (r *memoryRepo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[invoice.InvoiceID]; ok {
		return invoicedomain.ErrDuplicateInvoice
	}
	copied := *invoice
	r.records[invoice.InvoiceID] = &copied
	return nil
}

func (r *memoryRepo) FindByInvoiceID(ctx context.Context, db *gorm.DB, invoiceID string) (*invoicedomain.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[invoiceID]
	if !ok {
		return nil, invoicedomain.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryRepo) CompareAndSwapStatus(ctx context.Context, db *gorm.DB, invoiceID string, expected, next invoicedomain.Status, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[invoiceID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = next
	stored.UpdatedAt = now
	return true, nil
}

func TestProcessConfirmationConcurrentDeliveries(t *testing.T) {
	repo := newMemoryRepo()
	slackSink := &slackStub{}
	notif := notifier.New(notifier.Params{
		Log:   zap.NewNop(),
		Email: &emailStub{},
		Slack: slackSink,
		Cfg:   config.Config{},
	})
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := paymentservice.NewService(paymentservice.Params{
		Log:      zap.NewNop(),
		Clock:    clk,
		Repo:     repo,
		Notifier: notif,
		Cfg:      config.Config{StoreTimeout: time.Second},
	})

	now := clk.Now()
	if err := repo.Insert(context.Background(), nil, &invoicedomain.Invoice{
		InvoiceID:   "inv-race",
		UserID:      "user-1",
		OrderID:     "order-1",
		Amount:      decimal.RequireFromString("120.00"),
		Currency:    "RUB",
		Description: "Pro plan, monthly",
		Status:      invoicedomain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	const deliveries = 16
	var wg sync.WaitGroup
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessConfirmation(context.Background(), succeededEvent("inv-race", "120.00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("delivery returned error: %v", err)
		}
	}

	stored, err := repo.FindByInvoiceID(context.Background(), nil, "inv-race")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Status != invoicedomain.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", stored.Status)
	}
	if slackSink.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", slackSink.count())
	}
}
