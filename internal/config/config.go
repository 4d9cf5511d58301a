package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/paynet-bridge/internal/paynet"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	Paynet PaynetConfig

	SessionTTL       time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	ReplayTTL        time.Duration

	PollInterval      time.Duration
	PollMaxInterval   time.Duration
	PollMaxAttempts   int
	PollJitter        float64
	PollQueue         string
	WorkerConcurrency int

	CircuitMinRequests  int
	CircuitFailureRatio float64
	CircuitOpenFor      time.Duration
	StatusRetryAttempts int
	RetryBaseBackoff    time.Duration

	// PaymentRateLimit* drive the sliding window on payment creation.
	PaymentRateLimitWindow time.Duration
	PaymentRateLimitMax    int
	// CallbackRateLimit is a limiter rate expression such as "120-M".
	CallbackRateLimit string
}

// PaynetConfig is the merchant account on the gateway.
type PaynetConfig struct {
	BaseURL     string
	EndPoint    string
	Login       string
	SigningKey  string
	RedirectURL string
	CallbackURL string
	Timeout     time.Duration
}

// QueryConfig converts the settings into the engine config.
func (p PaynetConfig) QueryConfig() paynet.QueryConfig {
	return paynet.QueryConfig{
		EndPoint:    p.EndPoint,
		Login:       p.Login,
		SigningKey:  p.SigningKey,
		RedirectURL: p.RedirectURL,
		CallbackURL: p.CallbackURL,
	}
}

// String never includes the signing key.
func (p PaynetConfig) String() string {
	return fmt.Sprintf("PaynetConfig{BaseURL:%s EndPoint:%s Login:%s}", p.BaseURL, p.EndPoint, p.Login)
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Paynet: PaynetConfig{
			BaseURL:     strings.TrimRight(strings.TrimSpace(k.String("PAYNET_BASE_URL")), "/"),
			EndPoint:    strings.TrimSpace(k.String("PAYNET_END_POINT")),
			Login:       strings.TrimSpace(k.String("PAYNET_LOGIN")),
			SigningKey:  k.String("PAYNET_SIGNING_KEY"),
			RedirectURL: strings.TrimSpace(k.String("PAYNET_REDIRECT_URL")),
			CallbackURL: strings.TrimSpace(k.String("PAYNET_CALLBACK_URL")),
			Timeout:     parseDuration(k.String("PAYNET_TIMEOUT"), "30s"),
		},
		SessionTTL:             parseDuration(k.String("SESSION_TTL"), "72h"),
		LockTTL:                parseDuration(k.String("LOCK_TTL"), "45s"),
		LockRetryBackoff:       parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		ReplayTTL:              parseDuration(k.String("CALLBACK_REPLAY_TTL"), "24h"),
		PollInterval:           parseDuration(k.String("POLL_INTERVAL"), "5s"),
		PollMaxInterval:        parseDuration(k.String("POLL_MAX_INTERVAL"), "2m"),
		PollMaxAttempts:        parseInt(k.String("POLL_MAX_ATTEMPTS"), 20),
		PollJitter:             parseFloat(k.String("POLL_JITTER"), 0.2),
		PollQueue:              valueOrDefault(k.String("POLL_QUEUE"), "paynet"),
		WorkerConcurrency:      parseInt(k.String("WORKER_CONCURRENCY"), 10),
		CircuitMinRequests:     parseInt(k.String("CB_MIN_REQUESTS"), 20),
		CircuitFailureRatio:    parseFloat(k.String("CB_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:         parseDuration(k.String("CB_OPEN_FOR"), "30s"),
		StatusRetryAttempts:    parseInt(k.String("STATUS_RETRY_ATTEMPTS"), 3),
		RetryBaseBackoff:       parseDuration(k.String("RETRY_BASE_BACKOFF"), "200ms"),
		PaymentRateLimitWindow: parseDuration(k.String("PAYMENT_RATE_LIMIT_WINDOW"), "1m"),
		PaymentRateLimitMax:    parseInt(k.String("PAYMENT_RATE_LIMIT_MAX"), 30),
		CallbackRateLimit:      valueOrDefault(k.String("CALLBACK_RATE_LIMIT"), "600-M"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.Paynet.BaseURL == "" {
		return nil, errors.New("PAYNET_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.Paynet.BaseURL); err != nil {
		return nil, fmt.Errorf("PAYNET_BASE_URL is invalid: %w", err)
	}
	if cfg.Paynet.EndPoint == "" {
		return nil, errors.New("PAYNET_END_POINT is required")
	}
	if cfg.Paynet.Login == "" {
		return nil, errors.New("PAYNET_LOGIN is required")
	}
	if cfg.Paynet.SigningKey == "" {
		return nil, errors.New("PAYNET_SIGNING_KEY is required")
	}
	if cfg.PollMaxAttempts < 1 {
		cfg.PollMaxAttempts = 1
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
