package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port          string
	Env           string
	JWTSecret     string
	JWTTTL        time.Duration
	PublicBaseURL string

	DB           DatabaseConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	ERP          ERPConfig
	Catalog      CatalogConfig
	Pricing      PricingConfig
	Mail         MailConfig
	ExchangeRate ExchangeRateConfig
	S3           S3Config
	Worker       WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StripeConfig contains payment processor credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// ERPConfig contains the ERP REST endpoint and paging limits.
type ERPConfig struct {
	BaseURL  string
	APIToken string
	PageSize int
	MaxPages int
}

// CatalogConfig controls the in-process product cache.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// PricingConfig holds checkout amounts that are not stored per product.
type PricingConfig struct {
	TaxRate               float64
	ShippingFlatRate      float64
	FreeShippingThreshold float64
}

// MailConfig contains the transactional e-mail API settings.
type MailConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	AdminEmail string
}

// ExchangeRateConfig contains the public rate API and its fallback.
type ExchangeRateConfig struct {
	URL          string
	FallbackRate float64
	CacheTTL     time.Duration
}

// S3Config contains S3-compatible object storage configuration for images.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	ERPSyncInterval     time.Duration
	ERPSyncMaxAttempts  int
	BlogPublishInterval time.Duration
	CatalogSyncInterval time.Duration
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; production environments rely on real variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "https://www.filtrotek.mx")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Stripe = StripeConfig{
		SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:      getEnv("STRIPE_CURRENCY", "mxn"),
	}

	cfg.ERP = ERPConfig{
		BaseURL:  getEnv("ERP_BASE_URL", ""),
		APIToken: getEnv("ERP_API_TOKEN", ""),
		PageSize: getEnvInt("ERP_PAGE_SIZE", 100),
		MaxPages: getEnvInt("ERP_MAX_PAGES", 10),
	}

	cfg.Pricing = PricingConfig{
		TaxRate:               getEnvFloat("TAX_RATE", 0.16),
		ShippingFlatRate:      getEnvFloat("SHIPPING_FLAT_RATE", 150),
		FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 2000),
	}

	cfg.Mail = MailConfig{
		BaseURL:    getEnv("MAIL_BASE_URL", "https://api.resend.com"),
		APIKey:     getEnv("MAIL_API_KEY", ""),
		From:       getEnv("MAIL_FROM", "Filtrotek <pedidos@filtrotek.mx>"),
		AdminEmail: getEnv("ADMIN_NOTIFICATION_EMAIL", ""),
	}

	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "us-east-1"),
		Bucket:          getEnv("S3_BUCKET", ""),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	cfg.ExchangeRate = ExchangeRateConfig{
		URL:          getEnv("EXCHANGE_RATE_URL", "https://open.er-api.com/v6/latest/USD"),
		FallbackRate: getEnvFloat("EXCHANGE_RATE_FALLBACK", 17.0),
	}

	cfg.Worker.ERPSyncMaxAttempts = getEnvInt("ERP_SYNC_MAX_ATTEMPTS", 8)

	// Durations
	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.Catalog.CacheTTL, err = parseDurationEnv("CATALOG_CACHE_TTL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}
	if cfg.ExchangeRate.CacheTTL, err = parseDurationEnv("EXCHANGE_RATE_TTL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid EXCHANGE_RATE_TTL: %w", err)
	}
	if cfg.Worker.ERPSyncInterval, err = parseDurationEnv("ERP_SYNC_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid ERP_SYNC_INTERVAL: %w", err)
	}
	if cfg.Worker.BlogPublishInterval, err = parseDurationEnv("BLOG_PUBLISH_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid BLOG_PUBLISH_INTERVAL: %w", err)
	}
	if cfg.Worker.CatalogSyncInterval, err = parseDurationEnv("CATALOG_SYNC_INTERVAL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid CATALOG_SYNC_INTERVAL: %w", err)
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvFloat is getEnvInt for decimal values such as rates.
func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
