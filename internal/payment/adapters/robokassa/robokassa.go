package robokassa

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paygate/internal/payment/domain"
	"github.com/smallbiznis/paygate/internal/signature"
)

const (
	productionBaseURL = "https://auth.robokassa.ru"
	testBaseURL       = "https://test.robokassa.ru"
	checkoutPath      = "/Basket.aspx"

	// Custom merchant parameters echoed back in callbacks. They are
	// included in the signature base in sorted key order.
	extraParamPrefix = "shp_"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "robokassa"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	adapter, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

type Adapter struct {
	merchantLogin      string
	initiationSecret   string
	confirmationSecret string
	baseURL            string
	testMode           bool
}

func New(cfg domain.AdapterConfig) (*Adapter, error) {
	merchantLogin := strings.TrimSpace(cfg.MerchantLogin)
	confirmationSecret := strings.TrimSpace(cfg.ConfirmationSecret)
	if merchantLogin == "" || confirmationSecret == "" {
		return nil, domain.ErrInvalidConfig
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = productionBaseURL
		if cfg.TestMode {
			baseURL = testBaseURL
		}
	}

	return &Adapter{
		merchantLogin:      merchantLogin,
		initiationSecret:   strings.TrimSpace(cfg.InitiationSecret),
		confirmationSecret: confirmationSecret,
		baseURL:            baseURL,
		testMode:           cfg.TestMode,
	}, nil
}

// Verify checks the callback signature against the confirmation secret.
// The signature base is merchantLogin:sum:invoiceID with any shp_ extras
// appended as key=value pairs in sorted key order. Only the confirmation
// secret is valid here; the initiation secret signs redirect URLs and
// holding it must not be enough to confirm a payment.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return domain.ErrInvalidPayload
	}

	invoiceID := strings.TrimSpace(form.Get("InvId"))
	sum := strings.TrimSpace(form.Get("Sum"))
	candidate := strings.TrimSpace(form.Get("SignatureValue"))
	if invoiceID == "" || sum == "" || candidate == "" {
		return domain.ErrInvalidSignature
	}
	if form.Get("MerchantLogin") != a.merchantLogin {
		return domain.ErrInvalidSignature
	}

	values := []string{a.merchantLogin, sum, invoiceID}
	extras := extractExtras(form)
	if !signature.Verify(values, extras, a.confirmationSecret, candidate) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Parse maps a verified callback to the canonical confirmation event.
// The gateway only posts the result callback for completed payments.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.ConfirmationEvent, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	invoiceID := strings.TrimSpace(form.Get("InvId"))
	if invoiceID == "" {
		return nil, domain.ErrInvalidEvent
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(form.Get("Sum")))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	return &domain.ConfirmationEvent{
		Provider:    "robokassa",
		InvoiceID:   invoiceID,
		Amount:      amount,
		Type:        domain.EventTypePaymentSucceeded,
		OperationID: strings.TrimSpace(form.Get("OperationId")),
		IsTest:      form.Get("IsTest") == "1",
		OccurredAt:  time.Now().UTC(),
		RawPayload:  payload,
	}, nil
}

// BuildRedirectURL signs a checkout URL with the initiation secret and
// returns the address the buyer is redirected to.
func (a *Adapter) BuildRedirectURL(invoiceID string, amount decimal.Decimal, description, email string, extras map[string]string) (string, error) {
	if a.initiationSecret == "" {
		return "", domain.ErrInvalidConfig
	}

	sum := signature.FormatAmount(amount)
	params := url.Values{}
	params.Set("MerchantLogin", a.merchantLogin)
	params.Set("Sum", sum)
	params.Set("InvId", invoiceID)
	params.Set("Description", description)
	params.Set("IsTest", "0")
	if a.testMode {
		params.Set("IsTest", "1")
	}
	if email != "" {
		params.Set("Email", email)
	}
	for key, value := range extras {
		params.Set(key, value)
	}

	params.Set("SignatureValue", signature.Digest(
		[]string{a.merchantLogin, sum, invoiceID},
		extras,
		a.initiationSecret,
	))

	return a.baseURL + checkoutPath + "?" + params.Encode(), nil
}

func extractExtras(form url.Values) map[string]string {
	var extras map[string]string
	for key := range form {
		if !strings.HasPrefix(key, extraParamPrefix) {
			continue
		}
		if extras == nil {
			extras = map[string]string{}
		}
		extras[key] = form.Get(key)
	}
	return extras
}
