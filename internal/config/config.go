package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smallbiznis/paygate/pkg/db"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Gateway GatewayConfig
	Limits  LimitsConfig
	Email   EmailConfig
	Slack   SlackConfig

	RedisAddr     string
	RedisPassword string

	RateLimit RateLimitConfig

	// StoreTimeout bounds every store read/write issued while handling
	// a single request.
	StoreTimeout time.Duration
}

// RateLimitConfig tunes the per-user create and per-client status
// buckets, disabled when RedisAddr is empty, and the in-process
// per-provider webhook bucket, which is always on.
type RateLimitConfig struct {
	CreateRate   float64
	CreateBurst  int
	StatusRate   float64
	StatusBurst  int
	WebhookRate  float64
	WebhookBurst int
}

// GatewayConfig carries the provider credentials. InitiationSecret signs
// redirect URLs; ConfirmationSecret verifies inbound result webhooks.
// The two are never interchangeable.
type GatewayConfig struct {
	MerchantLogin      string
	InitiationSecret   string
	ConfirmationSecret string
	BaseURL            string
	TestMode           bool

	// StarsSecretToken authenticates Telegram Stars webhook deliveries.
	StarsSecretToken string
}

// LimitsConfig is the env-derived default for payment limits; the viper
// holder in limits.go may override it at runtime.
type LimitsConfig struct {
	Currency   string
	MinAmount  string
	MaxAmount  string
	InvoiceTTL time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type SlackConfig struct {
	WebhookURL string
	ChannelID  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "paygate"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "paygate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Gateway: GatewayConfig{
			MerchantLogin:      strings.TrimSpace(getenv("GATEWAY_MERCHANT_LOGIN", "")),
			InitiationSecret:   strings.TrimSpace(getenv("GATEWAY_INITIATION_SECRET", "")),
			ConfirmationSecret: strings.TrimSpace(getenv("GATEWAY_CONFIRMATION_SECRET", "")),
			BaseURL:            strings.TrimSpace(getenv("GATEWAY_BASE_URL", "")),
			TestMode:           getenvBool("GATEWAY_TEST_MODE", false),
			StarsSecretToken:   strings.TrimSpace(getenv("STARS_SECRET_TOKEN", "")),
		},
		Limits: LimitsConfig{
			Currency:   strings.ToUpper(getenv("PAYMENT_CURRENCY", "RUB")),
			MinAmount:  getenv("PAYMENT_MIN_AMOUNT", "10"),
			MaxAmount:  getenv("PAYMENT_MAX_AMOUNT", "1000000"),
			InvoiceTTL: getenvDuration("PAYMENT_INVOICE_TTL", time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", ""),
		},
		Slack: SlackConfig{
			WebhookURL: strings.TrimSpace(getenv("SLACK_WEBHOOK_URL", "")),
			ChannelID:  strings.TrimSpace(getenv("SLACK_CHANNEL_ID", "")),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		RateLimit: RateLimitConfig{
			CreateRate:   getenvFloat("RATE_LIMIT_CREATE_RATE", 1),
			CreateBurst:  getenvInt("RATE_LIMIT_CREATE_BURST", 5),
			StatusRate:   getenvFloat("RATE_LIMIT_STATUS_RATE", 5),
			StatusBurst:  getenvInt("RATE_LIMIT_STATUS_BURST", 20),
			WebhookRate:  getenvFloat("RATE_LIMIT_WEBHOOK_RATE", 50),
			WebhookBurst: getenvInt("RATE_LIMIT_WEBHOOK_BURST", 100),
		},

		StoreTimeout: getenvDuration("STORE_TIMEOUT", 5*time.Second),
	}
}

func (c Config) DBConfig() db.Config {
	return db.Config{
		Type:            c.DBType,
		Host:            c.DBHost,
		Port:            c.DBPort,
		Name:            c.DBName,
		User:            c.DBUser,
		Password:        c.DBPassword,
		SSLMode:         c.DBSSLMode,
		MaxIdleConn:     c.DBMaxIdleConn,
		MaxOpenConn:     c.DBMaxOpenConn,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
	}
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(Config.DBConfig),
	fx.Provide(NewLimitsHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
