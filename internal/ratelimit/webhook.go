package ratelimit

import (
	"strings"
	"sync"

	"github.com/smallbiznis/paygate/internal/config"
	"golang.org/x/time/rate"
)

// WebhookLimiter caps inbound webhook bursts per provider. It lives in
// process memory: gateway retries hammer whichever instance they land
// on, so a shared redis bucket buys nothing here.
type WebhookLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	rate  rate.Limit
	burst int
}

func NewWebhookLimiter(cfg config.Config) *WebhookLimiter {
	r := cfg.RateLimit.WebhookRate
	if r <= 0 {
		r = 50
	}
	burst := cfg.RateLimit.WebhookBurst
	if burst <= 0 {
		burst = 100
	}

	return &WebhookLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

func (l *WebhookLimiter) Allow(provider string) bool {
	if l == nil {
		return true
	}

	provider = strings.ToLower(strings.TrimSpace(provider))

	l.mu.Lock()
	lim, ok := l.limiters[provider]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[provider] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
