package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/paygate/internal/config"
)

const (
	keyCreatePayment = "paygate:create:user:%s"
	keyPaymentStatus = "paygate:status:client:%s"
)

// CheckoutLimiter throttles payment creation per user and status polling
// per client address. A nil limiter allows everything, so the service
// runs fine without redis.
type CheckoutLimiter struct {
	bucket *TokenBucket

	createRate  float64
	createBurst int
	statusRate  float64
	statusBurst int
}

func NewCheckoutLimiter(cfg config.Config) *CheckoutLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &CheckoutLimiter{
		bucket:      NewTokenBucket(client),
		createRate:  cfg.RateLimit.CreateRate,
		createBurst: cfg.RateLimit.CreateBurst,
		statusRate:  cfg.RateLimit.StatusRate,
		statusBurst: cfg.RateLimit.StatusBurst,
	}
}

func (l *CheckoutLimiter) AllowCreate(ctx context.Context, userID string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyCreatePayment, strings.TrimSpace(userID)), l.createRate, l.createBurst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}

func (l *CheckoutLimiter) AllowStatus(ctx context.Context, clientID string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyPaymentStatus, strings.TrimSpace(clientID)), l.statusRate, l.statusBurst)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}
