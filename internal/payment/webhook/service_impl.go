package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smallbiznis/paygate/internal/config"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	"github.com/smallbiznis/paygate/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/paygate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ReplyAccepted is the acknowledgement prefix the gateway expects; the
// invoice id is appended so the gateway can match the acknowledgement
// to its notification.
const ReplyAccepted = "OK"

type Params struct {
	fx.In

	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	Adapters   *adapters.Registry
	Cfg        config.Config
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	adapters   *adapters.Registry
	adapterCfg paymentdomain.AdapterConfig
	metrics    *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		paymentSvc: p.PaymentSvc,
		adapters:   p.Adapters,
		adapterCfg: paymentdomain.AdapterConfig{
			MerchantLogin:      p.Cfg.Gateway.MerchantLogin,
			InitiationSecret:   p.Cfg.Gateway.InitiationSecret,
			ConfirmationSecret: p.Cfg.Gateway.ConfirmationSecret,
			BaseURL:            p.Cfg.Gateway.BaseURL,
			TestMode:           p.Cfg.Gateway.TestMode,
			SecretToken:        p.Cfg.Gateway.StarsSecretToken,
		},
		metrics: p.Metrics,
	}
}

// IngestWebhook verifies and applies a gateway notification and returns
// the plain-text acknowledgement body. Rejections surface as errors so
// the transport layer can pick the response without learning which
// check failed.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" || s.adapters == nil || !s.adapters.ProviderExists(provider) {
		return "", paymentdomain.ErrProviderNotFound
	}

	adapter, err := s.adapters.NewAdapter(provider, s.adapterCfg)
	if err != nil {
		return "", err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook verification failed", zap.String("provider", provider))
		s.metrics.RecordWebhookEvent(provider, "rejected")
		return "", err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent(provider, "ignored")
			return ReplyAccepted, nil
		}
		s.metrics.RecordWebhookEvent(provider, "rejected")
		return "", err
	}

	invoice, err := s.paymentSvc.ProcessConfirmation(ctx, event)
	if err != nil {
		s.metrics.RecordWebhookEvent(provider, "rejected")
		return "", err
	}

	s.metrics.RecordWebhookEvent(provider, "accepted")
	return ReplyAccepted + invoice.InvoiceID, nil
}
