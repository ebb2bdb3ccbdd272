package payment

import (
	"github.com/smallbiznis/paygate/internal/payment/adapters"
	"github.com/smallbiznis/paygate/internal/payment/adapters/robokassa"
	"github.com/smallbiznis/paygate/internal/payment/adapters/telegramstars"
	paymentservice "github.com/smallbiznis/paygate/internal/payment/service"
	"github.com/smallbiznis/paygate/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			robokassa.NewFactory(),
			telegramstars.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
