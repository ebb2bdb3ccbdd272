package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	checkoutdomain "github.com/smallbiznis/paygate/internal/checkout/domain"
	"github.com/smallbiznis/paygate/internal/clock"
	"github.com/smallbiznis/paygate/internal/config"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/paygate/internal/invoice/repository"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	"github.com/smallbiznis/paygate/internal/payment/adapters"
	"github.com/smallbiznis/paygate/internal/payment/adapters/robokassa"
	paymentservice "github.com/smallbiznis/paygate/internal/payment/service"
	paymentwebhook "github.com/smallbiznis/paygate/internal/payment/webhook"
	"github.com/smallbiznis/paygate/internal/signature"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeCheckoutService struct {
	createResp checkoutdomain.CreatePaymentResponse
	createErr  error
	statusResp *invoicedomain.Invoice
	statusErr  error
}

func (f *fakeCheckoutService) CreatePayment(ctx context.Context, req checkoutdomain.CreatePaymentRequest) (checkoutdomain.CreatePaymentResponse, error) {
	return f.createResp, f.createErr
}

func (f *fakeCheckoutService) GetStatus(ctx context.Context, invoiceID string) (*invoicedomain.Invoice, error) {
	return f.statusResp, f.statusErr
}

func newTestServer(t *testing.T, checkoutSvc checkoutdomain.Service, webhookSvc *paymentwebhook.Service) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	engine := NewEngine(zap.NewNop(), metrics.NewRegistry())
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{},
		CheckoutSvc: checkoutSvc,
		WebhookSvc:  webhookSvc,
	})
	return engine
}

func TestCreatePaymentHandler(t *testing.T) {
	svc := &fakeCheckoutService{
		createResp: checkoutdomain.CreatePaymentResponse{
			InvoiceID:   "user-1:order-1:1:abcd1234",
			Status:      string(invoicedomain.StatusPending),
			Amount:      decimal.RequireFromString("250.00"),
			Currency:    "RUB",
			RedirectURL: "https://auth.robokassa.ru/Basket.aspx?InvId=x",
			ExpiresAt:   time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		},
	}
	engine := newTestServer(t, svc, nil)

	body, err := json.Marshal(map[string]any{
		"user_id":     "user-1",
		"order_id":    "order-1",
		"amount":      "250.00",
		"description": "Pro plan, monthly",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp checkoutdomain.CreatePaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "user-1:order-1:1:abcd1234", resp.InvoiceID)
	require.NotEmpty(t, resp.RedirectURL)
}

func TestCreatePaymentHandlerValidation(t *testing.T) {
	svc := &fakeCheckoutService{createErr: invoicedomain.ErrAmountTooLow}
	engine := newTestServer(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(`{"user_id":"u","order_id":"o","amount":"1","description":"d"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "amount_too_low")
}

func TestCreatePaymentHandlerStoreTimeout(t *testing.T) {
	svc := &fakeCheckoutService{createErr: context.DeadlineExceeded}
	engine := newTestServer(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(`{"user_id":"u","order_id":"o","amount":"10","description":"d"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "service_unavailable")
}

func TestGetPaymentStatusHandlerStoreTimeout(t *testing.T) {
	svc := &fakeCheckoutService{statusErr: context.DeadlineExceeded}
	engine := newTestServer(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/payments/inv-1/status", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetPaymentStatusHandler(t *testing.T) {
	svc := &fakeCheckoutService{
		statusResp: &invoicedomain.Invoice{
			InvoiceID: "inv-1",
			Status:    invoicedomain.StatusConfirmed,
			Amount:    decimal.RequireFromString("99.90"),
			Currency:  "RUB",
		},
	}
	engine := newTestServer(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/payments/inv-1/status", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"confirmed"`)
}

func TestGetPaymentStatusHandlerNotFound(t *testing.T) {
	svc := &fakeCheckoutService{statusErr: invoicedomain.ErrNotFound}
	engine := newTestServer(t, svc, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/payments/missing/status", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePaymentWebhook(t *testing.T) {
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE invoices (
		id BIGINT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		description TEXT NOT NULL,
		email TEXT,
		status TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX ux_invoices_invoice_id ON invoices(invoice_id)`).Error)

	cfg := config.Config{
		Gateway: config.GatewayConfig{
			MerchantLogin:      "merchant",
			InitiationSecret:   "password1",
			ConfirmationSecret: "password2",
		},
		StoreTimeout: time.Second,
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := invoicerepo.Provide()
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repo,
		Cfg:   cfg,
	})
	webhookSvc := paymentwebhook.NewService(paymentwebhook.Params{
		Log:        zap.NewNop(),
		PaymentSvc: paymentSvc,
		Adapters:   adapters.NewRegistry(robokassa.NewFactory()),
		Cfg:        cfg,
	})

	node, err := snowflake.NewNode(50)
	require.NoError(t, err)
	now := clk.Now()
	require.NoError(t, repo.Insert(context.Background(), db, &invoicedomain.Invoice{
		ID:          node.Generate(),
		InvoiceID:   "inv-1",
		UserID:      "user-1",
		OrderID:     "order-1",
		Amount:      decimal.RequireFromString("250.00"),
		Currency:    "RUB",
		Description: "Pro plan, monthly",
		Status:      invoicedomain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}))

	engine := newTestServer(t, &fakeCheckoutService{}, webhookSvc)

	form := url.Values{}
	form.Set("MerchantLogin", "merchant")
	form.Set("Sum", "250.00")
	form.Set("InvId", "inv-1")
	form.Set("SignatureValue", signature.Digest([]string{"merchant", "250.00", "inv-1"}, nil, "password2"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/robokassa", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OKinv-1", w.Body.String())

	// Tampered signature gets the opaque rejection body.
	form.Set("SignatureValue", "deadbeef")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/robokassa", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "bad sign", w.Body.String())
}
