package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PaymentLimits are the live bounds applied by the request validator.
// They can be changed at runtime through payments.yml without a restart.
type PaymentLimits struct {
	Currency   string
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	InvoiceTTL time.Duration
}

type rawPaymentLimits struct {
	Currency   string `mapstructure:"currency"`
	MinAmount  string `mapstructure:"minAmount"`
	MaxAmount  string `mapstructure:"maxAmount"`
	InvoiceTTL string `mapstructure:"invoiceTTL"`
}

type LimitsHolder struct {
	current atomic.Value // holds PaymentLimits
}

func NewLimitsHolder(cfg Config) (*LimitsHolder, error) {
	defaults, err := limitsFromConfig(cfg.Limits)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("payments")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/paygate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &LimitsHolder{}
	holder.current.Store(defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// no payments.yml, env defaults stay in effect
		return holder, nil
	}

	limits, err := parseLimits(v, defaults)
	if err != nil {
		return nil, err
	}
	holder.current.Store(limits)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := parseLimits(v, defaults)
		if err != nil {
			log.Printf("[payment-limits] reload failed: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

func (h *LimitsHolder) Current() PaymentLimits {
	return h.current.Load().(PaymentLimits)
}

func parseLimits(v *viper.Viper, defaults PaymentLimits) (PaymentLimits, error) {
	var raw rawPaymentLimits
	if err := v.UnmarshalKey("payments", &raw); err != nil {
		return PaymentLimits{}, err
	}

	limits := defaults
	if raw.Currency != "" {
		limits.Currency = strings.ToUpper(strings.TrimSpace(raw.Currency))
	}
	if raw.MinAmount != "" {
		min, err := decimal.NewFromString(raw.MinAmount)
		if err != nil {
			return PaymentLimits{}, err
		}
		limits.MinAmount = min
	}
	if raw.MaxAmount != "" {
		max, err := decimal.NewFromString(raw.MaxAmount)
		if err != nil {
			return PaymentLimits{}, err
		}
		limits.MaxAmount = max
	}
	if raw.InvoiceTTL != "" {
		ttl, err := time.ParseDuration(raw.InvoiceTTL)
		if err != nil {
			return PaymentLimits{}, err
		}
		limits.InvoiceTTL = ttl
	}

	if err := validateLimits(limits); err != nil {
		return PaymentLimits{}, err
	}
	return limits, nil
}

func limitsFromConfig(cfg LimitsConfig) (PaymentLimits, error) {
	min, err := decimal.NewFromString(cfg.MinAmount)
	if err != nil {
		return PaymentLimits{}, err
	}
	max, err := decimal.NewFromString(cfg.MaxAmount)
	if err != nil {
		return PaymentLimits{}, err
	}
	limits := PaymentLimits{
		Currency:   cfg.Currency,
		MinAmount:  min,
		MaxAmount:  max,
		InvoiceTTL: cfg.InvoiceTTL,
	}
	if err := validateLimits(limits); err != nil {
		return PaymentLimits{}, err
	}
	return limits, nil
}

func validateLimits(limits PaymentLimits) error {
	if limits.MinAmount.IsNegative() {
		return errors.New("minAmount must not be negative")
	}
	if limits.MaxAmount.LessThanOrEqual(limits.MinAmount) {
		return errors.New("maxAmount must be greater than minAmount")
	}
	if limits.InvoiceTTL <= 0 {
		return errors.New("invoiceTTL must be positive")
	}
	return nil
}
