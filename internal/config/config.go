package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"furnish-backend/internal/env"
)

type E2 struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	MpesaWallet   string
	EmolaWallet   string
	WebhookSecret string
}

// Enabled reports whether mobile money payments can be requested.
func (e E2) Enabled() bool {
	return e.BaseURL != "" && e.ClientID != "" && e.ClientSecret != ""
}

type Config struct {
	Env          string
	Port         int
	DBDriver     string
	DBDSN        string
	JWTSecret    string
	LogJSON      bool
	LogLevel     string
	RedisAddr    string
	StockPolicy  string
	CORSOrigins  []string
	WebhookTTL   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	E2           E2
}

func Default() Config {
	return Config{
		Env:          "dev",
		Port:         5000,
		DBDriver:     "sqlite",
		DBDSN:        "file:furnish.db",
		LogJSON:      true,
		LogLevel:     "info",
		StockPolicy:  "reserve",
		CORSOrigins:  []string{"*"},
		WebhookTTL:   24 * time.Hour,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		E2:           E2{BaseURL: "https://e2payments.explicador.co.mz"},
	}
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	c.Env = env.String("FURNISH_ENV", c.Env)
	c.Port = env.Int("FURNISH_PORT", c.Port)
	c.DBDriver = env.String("FURNISH_DB_DRIVER", c.DBDriver)
	c.DBDSN = env.String("FURNISH_DB_DSN", c.DBDSN)
	c.JWTSecret = env.String("FURNISH_JWT_SECRET", c.JWTSecret)
	c.LogJSON = env.Bool("FURNISH_LOG_JSON", c.LogJSON)
	c.LogLevel = env.String("FURNISH_LOG_LEVEL", c.LogLevel)
	c.RedisAddr = env.String("FURNISH_REDIS_ADDR", c.RedisAddr)
	c.StockPolicy = env.String("FURNISH_STOCK_POLICY", c.StockPolicy)
	c.CORSOrigins = env.List("FURNISH_CORS_ORIGINS", c.CORSOrigins)
	c.WebhookTTL = env.Duration("FURNISH_WEBHOOK_TTL", c.WebhookTTL)
	c.ReadTimeout = env.Duration("FURNISH_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = env.Duration("FURNISH_WRITE_TIMEOUT", c.WriteTimeout)
	c.E2.BaseURL = env.String("E2_BASE_URL", c.E2.BaseURL)
	c.E2.ClientID = env.String("E2_CLIENT_ID", c.E2.ClientID)
	c.E2.ClientSecret = env.String("E2_CLIENT_SECRET", c.E2.ClientSecret)
	c.E2.MpesaWallet = env.String("E2_WALLET_ID", c.E2.MpesaWallet)
	c.E2.EmolaWallet = env.String("E2_EMOLA_WALLET_ID", c.E2.EmolaWallet)
	c.E2.WebhookSecret = env.String("E2_WEBHOOK_SECRET", c.E2.WebhookSecret)
	return c
}

func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// Validate reports every setting the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DBDriver) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("FURNISH_DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		errs = append(errs, errors.New("FURNISH_DB_DSN is required"))
	}
	switch strings.ToLower(c.StockPolicy) {
	case "", "reserve", "advisory":
	default:
		errs = append(errs, fmt.Errorf("FURNISH_STOCK_POLICY must be reserve or advisory, got %q", c.StockPolicy))
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("FURNISH_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("FURNISH_PORT out of range: %d", c.Port))
	}
	if c.JWTSecret == "" && c.Production() {
		errs = append(errs, errors.New("FURNISH_JWT_SECRET is required in production"))
	}
	if c.E2.WebhookSecret == "" && c.E2.Enabled() && c.Production() {
		errs = append(errs, errors.New("E2_WEBHOOK_SECRET is required in production when payments are enabled"))
	}
	return errors.Join(errs...)
}
