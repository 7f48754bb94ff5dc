package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (KIVU_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (KIVU_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string `usage:"HS256 signing secret for bearer tokens (KIVU_JWT_SECRET)" flag:"jwt-secret"`
	Stripe      StripeConfig
	MoMo        MoMoConfig
	Mail        MailConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
	Expiry      ExpiryConfig
}

// StripeConfig holds the card payment gateway credentials.
type StripeConfig struct {
	SecretKey     string `usage:"Stripe secret key" flag:"stripe-secret-key"`
	WebhookSecret string `usage:"Stripe webhook signing secret" flag:"stripe-webhook-secret"`
}

// MoMoConfig holds the MTN Mobile Money collection API credentials.
type MoMoConfig struct {
	BaseURL           string `default:"https://sandbox.momodeveloper.mtn.com" usage:"MoMo API base URL" flag:"momo-base-url"`
	SubscriptionKey   string `usage:"MoMo subscription key" flag:"momo-subscription-key"`
	APIUser           string `usage:"MoMo API user" flag:"momo-api-user"`
	APIKey            string `usage:"MoMo API key" flag:"momo-api-key"`
	TargetEnvironment string `default:"sandbox" usage:"MoMo target environment" flag:"momo-target-environment"`
	CallbackURL       string `default:"" usage:"MoMo payment callback URL" flag:"momo-callback-url"`
}

// MailConfig holds the SES transactional email settings.
type MailConfig struct {
	Region    string `default:"eu-west-1" usage:"AWS region for SES" flag:"mail-region"`
	AccessKey string `usage:"AWS access key for SES" flag:"mail-access-key"`
	SecretKey string `usage:"AWS secret key for SES" flag:"mail-secret-key"`
	Sender    string `default:"no-reply@kivumart.example" usage:"Sender address for transactional email" flag:"mail-sender"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ExpiryConfig controls the product expiry sweeper.
type ExpiryConfig struct {
	Interval time.Duration `default:"1h" usage:"Interval between product expiry sweeps" flag:"expiry-interval"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KIVU",
		Files:     []string{"config.yaml", "/etc/kivumart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set KIVU_DATABASE_URL or DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set KIVU_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KIVU_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
