package checkout

import (
	checkoutservice "github.com/smallbiznis/paygate/internal/checkout/service"
	"github.com/smallbiznis/paygate/internal/config"
	"github.com/smallbiznis/paygate/internal/payment/adapters/robokassa"
	paymentdomain "github.com/smallbiznis/paygate/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("checkout.service",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *robokassa.Adapter {
		adapter, err := robokassa.New(paymentdomain.AdapterConfig{
			MerchantLogin:      cfg.Gateway.MerchantLogin,
			InitiationSecret:   cfg.Gateway.InitiationSecret,
			ConfirmationSecret: cfg.Gateway.ConfirmationSecret,
			BaseURL:            cfg.Gateway.BaseURL,
			TestMode:           cfg.Gateway.TestMode,
		})
		if err != nil {
			log.Warn("checkout redirect disabled: gateway credentials missing")
			return nil
		}
		return adapter
	}),
	fx.Provide(checkoutservice.NewService),
)
