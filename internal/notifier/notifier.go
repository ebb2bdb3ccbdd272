// Package notifier fans a confirmed payment out to the configured
// destinations. Delivery failures are logged and counted but never
// affect the confirmation outcome.
package notifier

import (
	"context"
	"fmt"

	"github.com/smallbiznis/paygate/internal/config"
	invoicedomain "github.com/smallbiznis/paygate/internal/invoice/domain"
	"github.com/smallbiznis/paygate/internal/observability/metrics"
	"github.com/smallbiznis/paygate/internal/providers/email"
	"github.com/smallbiznis/paygate/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Email   email.Provider
	Slack   slack.Provider
	Cfg     config.Config
	Metrics *metrics.Metrics `optional:"true"`
}

type Notifier struct {
	log     *zap.Logger
	email   email.Provider
	slack   slack.Provider
	channel string
	metrics *metrics.Metrics
}

func New(p Params) *Notifier {
	return &Notifier{
		log:     p.Log.Named("notifier"),
		email:   p.Email,
		slack:   p.Slack,
		channel: p.Cfg.Slack.ChannelID,
		metrics: p.Metrics,
	}
}

// PaymentConfirmed notifies every destination about a confirmed payment.
// Safe to call on a nil receiver.
func (n *Notifier) PaymentConfirmed(ctx context.Context, invoice *invoicedomain.Invoice) {
	if n == nil || invoice == nil {
		return
	}

	if n.email != nil && invoice.Email != "" {
		subject := fmt.Sprintf("Payment received for order %s", invoice.OrderID)
		body := fmt.Sprintf(
			"<p>Your payment of %s %s has been received.</p><p>Invoice: %s</p>",
			invoice.Amount.StringFixed(2), invoice.Currency, invoice.InvoiceID,
		)
		if err := n.email.Send(ctx, []string{invoice.Email}, subject, body); err != nil {
			n.log.Warn("email notification failed",
				zap.String("invoice_id", invoice.InvoiceID),
				zap.Error(err),
			)
			n.metrics.RecordNotification("email", "error")
		} else {
			n.metrics.RecordNotification("email", "ok")
		}
	}

	if n.slack != nil {
		message := fmt.Sprintf("Payment confirmed: invoice %s, user %s, %s %s",
			invoice.InvoiceID, invoice.UserID, invoice.Amount.StringFixed(2), invoice.Currency,
		)
		if err := n.slack.PostMessage(ctx, n.channel, message); err != nil {
			n.log.Warn("slack notification failed",
				zap.String("invoice_id", invoice.InvoiceID),
				zap.Error(err),
			)
			n.metrics.RecordNotification("slack", "error")
		} else {
			n.metrics.RecordNotification("slack", "ok")
		}
	}
}

var Module = fx.Module("notifier",
	fx.Provide(New),
)
