package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "github.com/filipfilip1/instytut-saunowy/pkg/aws"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	AppEnv  string
	Service string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool // multi-document transactions; requires a replica set

	StripeSecretKey  string
	StripeWebhookKey string
	FrontendURL      string
	Currency         string
	AllowedOrigins   []string

	BookingRequireApproval bool

	RedisURL        string // empty disables the delivery lock
	DeliveryLockTTL time.Duration
	RateLimitPerMin int
	NotifierTimeout time.Duration

	InvoiceBucket string // empty disables invoices
	InvoiceURLTTL time.Duration
	InvoiceSeller SellerConfig

	SMTPHost string // empty disables confirmation emails
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	PaymentSNSTopicARN   string // empty disables domain events
	ManualReviewQueueURL string // empty makes unrecoverable sessions fail with 500

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	AWS        awspkg.Settings
	UseSecrets bool
}

type SellerConfig struct {
	Name    string
	Address string
	TaxID   string
}

// AWSNeeded reports whether any enabled integration talks to AWS.
func (c *Config) AWSNeeded() bool {
	return c.InvoiceBucket != "" || c.PaymentSNSTopicARN != "" || c.ManualReviewQueueURL != "" ||
		c.CloudWatchEnabled || c.UseSecrets
}

// LoadConfig reads the environment once; nothing else in the service reads env vars.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8087"),
		AppEnv:  getEnv("APP_ENV", "development"),
		Service: "payment-service",

		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "instytut-saunowy"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),

		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FrontendURL:      strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		Currency:         strings.ToLower(getEnv("CURRENCY", "pln")),
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),

		BookingRequireApproval: getBool("BOOKING_REQUIRE_APPROVAL", false),

		RedisURL:        os.Getenv("REDIS_URL"),
		DeliveryLockTTL: getDuration("DELIVERY_LOCK_TTL", 2*time.Minute),
		RateLimitPerMin: getInt("RATE_LIMIT_PER_MINUTE", 60),
		NotifierTimeout: getDuration("NOTIFIER_TIMEOUT", 30*time.Second),

		InvoiceBucket: os.Getenv("INVOICE_BUCKET"),
		InvoiceURLTTL: getDuration("INVOICE_URL_TTL", 7*24*time.Hour),
		InvoiceSeller: SellerConfig{
			Name:    getEnv("INVOICE_SELLER_NAME", "Instytut Saunowy"),
			Address: os.Getenv("INVOICE_SELLER_ADDRESS"),
			TaxID:   os.Getenv("INVOICE_SELLER_TAX_ID"),
		},

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		PaymentSNSTopicARN:   os.Getenv("PAYMENT_SNS_TOPIC_ARN"),
		ManualReviewQueueURL: os.Getenv("MANUAL_REVIEW_QUEUE_URL"),

		CloudWatchEnabled:   getBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "InstytutSaunowy"),
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", "/instytut-saunowy/payment-service"),

		AWS: awspkg.Settings{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Endpoint:        os.Getenv("AWS_ENDPOINT"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		UseSecrets: getBool("AWS_USE_SECRETS", false),
	}

	if cfg.MongoURI == "" || cfg.MongoDB == "" {
		return nil, fmt.Errorf("missing required environment variables: MONGO_URI, MONGO_DB")
	}
	return cfg, nil
}

// ApplySecrets overwrites credentials with values from Secrets Manager.
func (c *Config) ApplySecrets(ctx context.Context, sg awspkg.SecretGetter) error {
	return awspkg.OverrideFromSecrets(ctx, sg, map[string]*string{
		"instytut-saunowy/stripe-webhook-secret": &c.StripeWebhookKey,
		"instytut-saunowy/stripe-api-key":        &c.StripeSecretKey,
		"instytut-saunowy/smtp-password":         &c.SMTPPass,
	})
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
