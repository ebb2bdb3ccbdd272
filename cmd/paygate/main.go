package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paygate/internal/checkout"
	"github.com/smallbiznis/paygate/internal/clock"
	"github.com/smallbiznis/paygate/internal/config"
	"github.com/smallbiznis/paygate/internal/invoice"
	"github.com/smallbiznis/paygate/internal/logger"
	"github.com/smallbiznis/paygate/internal/migration"
	"github.com/smallbiznis/paygate/internal/notifier"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	"github.com/smallbiznis/paygate/internal/payment"
	"github.com/smallbiznis/paygate/internal/providers/email"
	"github.com/smallbiznis/paygate/internal/providers/slack"
	"github.com/smallbiznis/paygate/internal/ratelimit"
	"github.com/smallbiznis/paygate/internal/server"
	"github.com/smallbiznis/paygate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		email.Module,
		slack.Module,
		notifier.Module,
		ratelimit.Module,

		invoice.Module,
		payment.Module,
		checkout.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
