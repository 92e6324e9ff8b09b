package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port    string
	BaseURL string
	AppURL  string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	JWTSecret    string
	TokenTTL     time.Duration
	AvatarURLTTL time.Duration

	StorageDir string

	DefaultLat  float64
	DefaultLng  float64
	GeocoderURL string

	DeliveryFee           decimal.Decimal
	DecrementStockOnOrder bool
	CommissionRate        decimal.Decimal

	RatingRefreshSpec string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MailProvider string
	MailReplyTo  string
	PlunkAPIKey  string
	PlunkFrom    string
	PlunkAPIURL  string
}

// LoadEnv loads a .env file if one exists. A missing file is not an error.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, relying on system environment")
	}
}

// GetEnv retrieves an environment variable with a fallback
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// Load reads the environment into a Config.
func Load() (Config, error) {
	cfg := Config{
		Port:              GetEnv("PORT", "8080"),
		BaseURL:           GetEnv("BASE_URL", "http://localhost:8080"),
		AppURL:            GetEnv("APP_URL", "http://localhost:3000"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		StorageDir:        GetEnv("STORAGE_DIR", "./uploads"),
		GeocoderURL:       GetEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/reverse"),
		RatingRefreshSpec: GetEnv("RATING_REFRESH_SPEC", "@every 1h"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          os.Getenv("SMTP_PORT"),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:          os.Getenv("SMTP_FROM"),
		MailProvider:      os.Getenv("MAIL_PROVIDER"),
		MailReplyTo:       os.Getenv("MAIL_REPLY_TO"),
		PlunkAPIKey:       os.Getenv("PLUNK_API_KEY"),
		PlunkFrom:         os.Getenv("PLUNK_FROM"),
		PlunkAPIURL:       GetEnv("PLUNK_API_URL", "https://api.useplunk.com/v1/send"),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			GetEnv("DB_HOST", "localhost"),
			GetEnv("DB_PORT", "5432"),
			os.Getenv("DB_NAME"),
		)
	}

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 72*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.AvatarURLTTL, err = durationEnv("AVATAR_URL_TTL", time.Hour); err != nil {
		return cfg, err
	}
	// Fallback location is central Mumbai.
	if cfg.DefaultLat, err = floatEnv("DEFAULT_LAT", 19.0760); err != nil {
		return cfg, err
	}
	if cfg.DefaultLng, err = floatEnv("DEFAULT_LNG", 72.8777); err != nil {
		return cfg, err
	}
	if cfg.DeliveryFee, err = decimalEnv("DELIVERY_FEE", decimal.NewFromInt(30)); err != nil {
		return cfg, err
	}
	if cfg.CommissionRate, err = decimalEnv("COMMISSION_RATE", decimal.NewFromFloat(0.05)); err != nil {
		return cfg, err
	}
	if cfg.DecrementStockOnOrder, err = boolEnv("DECREMENT_STOCK_ON_ORDER", false); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func decimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// SMTPConfigured reports whether outgoing mail can be sent.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPPort != "" && c.SMTPUsername != "" && c.SMTPPassword != "" && c.SMTPFrom != ""
}
