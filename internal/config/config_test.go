package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":          "redis://localhost:6379/0",
		"PAYNET_BASE_URL":    "https://sandbox.example.com/paynet/api/v2/",
		"PAYNET_END_POINT":   "789",
		"PAYNET_LOGIN":       "merchant",
		"PAYNET_SIGNING_KEY": "B17DDE2B-08DE-4E58-B4B8-8A4A6BE8A3EC",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "https://sandbox.example.com/paynet/api/v2", cfg.Paynet.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Paynet.Timeout)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, 2*time.Minute, cfg.PollMaxInterval)
	require.Equal(t, 20, cfg.PollMaxAttempts)
	require.Equal(t, "paynet", cfg.PollQueue)
	require.Equal(t, "600-M", cfg.CallbackRateLimit)
	require.Equal(t, ":8080", cfg.HTTPAddr())

	qc := cfg.Paynet.QueryConfig()
	require.Equal(t, "789", qc.EndPoint)
	require.Equal(t, "merchant", qc.Login)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["POLL_INTERVAL"] = "2s"
	env["POLL_MAX_ATTEMPTS"] = "0"
	env["CB_FAILURE_RATIO"] = "0.25"
	env["CORS_ALLOWED_ORIGINS"] = " https://a.example.com , ,https://b.example.com"
	env["SESSION_TTL"] = "bogus"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 2*time.Second, cfg.PollInterval)
	require.Equal(t, 1, cfg.PollMaxAttempts)
	require.Equal(t, 0.25, cfg.CircuitFailureRatio)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 72*time.Hour, cfg.SessionTTL)
}

func TestLoadRequiresGatewaySettings(t *testing.T) {
	for _, key := range []string{"REDIS_URL", "PAYNET_BASE_URL", "PAYNET_END_POINT", "PAYNET_LOGIN", "PAYNET_SIGNING_KEY"} {
		t.Run(key, func(t *testing.T) {
			env := baseEnv()
			env[key] = ""
			_, err := LoadForTests(env)
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestPaynetConfigStringHidesSigningKey(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.NotContains(t, cfg.Paynet.String(), "B17DDE2B")
}
