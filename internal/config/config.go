package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Debug       bool
	Port        string

	DatabaseURL string

	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseSecretKey      string
	JWKSRefreshInterval    time.Duration

	TelegramBotToken      string
	TelegramWebhookSecret string

	// DefaultTimezone is assigned to users created from a token.
	DefaultTimezone string
	DefaultLanguage string

	AllowedOrigins []string

	MetricsUser string
	MetricsPass string

	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string
	LogFile  string
	LogJSON  bool
}

// LoadEnvFile loads key/value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup and validates it.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := &Config{
		Environment:            strings.ToLower(get("ENVIRONMENT", "development")),
		Port:                   get("PORT", "8000"),
		DatabaseURL:            get("DATABASE_URL", ""),
		SupabaseURL:            strings.TrimRight(get("SUPABASE_URL", ""), "/"),
		SupabasePublishableKey: get("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseSecretKey:      get("SUPABASE_SECRET_KEY", ""),
		TelegramBotToken:       get("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret:  get("TELEGRAM_WEBHOOK_SECRET", ""),
		DefaultTimezone:        get("TIMEZONE", "America/Chicago"),
		DefaultLanguage:        get("DEFAULT_LANGUAGE", "es"),
		AllowedOrigins:         splitList(get("CORS_ORIGINS", "http://localhost:3000,http://localhost:8000")),
		MetricsUser:            get("METRICS_USER", ""),
		MetricsPass:            get("METRICS_PASS", ""),
		LogLevel:               strings.ToLower(get("LOG_LEVEL", "info")),
		LogFile:                get("LOG_FILE", ""),
	}

	var errs []error
	var err error

	if cfg.Debug, err = parseBool(get("DEBUG", "false")); err != nil {
		errs = append(errs, fmt.Errorf("DEBUG: %w", err))
	}
	if cfg.LogJSON, err = parseBool(get("LOG_JSON", "false")); err != nil {
		errs = append(errs, fmt.Errorf("LOG_JSON: %w", err))
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "5"), 64); err != nil || cfg.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be a positive number"))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "30")); err != nil || cfg.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer"))
	}
	if cfg.JWKSRefreshInterval, err = time.ParseDuration(get("JWKS_REFRESH_INTERVAL", "1h")); err != nil || cfg.JWKSRefreshInterval <= 0 {
		errs = append(errs, fmt.Errorf("JWKS_REFRESH_INTERVAL must be a positive duration"))
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if c.SupabaseURL == "" {
		errs = append(errs, errors.New("SUPABASE_URL is required"))
	} else if u, err := url.Parse(c.SupabaseURL); err != nil || u.Scheme != "https" || u.Host == "" {
		errs = append(errs, errors.New("SUPABASE_URL must be an https URL"))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}

	if c.IsProduction() {
		if c.Debug {
			errs = append(errs, errors.New("DEBUG must be disabled in production"))
		}
		for _, origin := range c.AllowedOrigins {
			if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
				errs = append(errs, fmt.Errorf("CORS_ORIGINS must not contain %s in production", origin))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// JWKSURL is where the identity provider publishes its signing keys.
func (c *Config) JWKSURL() string {
	return c.SupabaseURL + "/auth/v1/.well-known/jwks.json"
}

// TokenIssuer is the expected iss claim of provider-issued tokens.
func (c *Config) TokenIssuer() string {
	return c.SupabaseURL + "/auth/v1"
}

func (c *Config) MetricsEnabled() bool {
	return c.MetricsUser != "" && c.MetricsPass != ""
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
