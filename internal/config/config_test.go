package config

import (
	"testing"

	"github.com/spf13/viper"
)

// Viper keeps package-level state; each test resets it so bindings and
// defaults from one case cannot leak into the next.
func loadFromEnv(t *testing.T, env map[string]string) Config {
	t.Helper()
	viper.Reset()
	for key, value := range env {
		t.Setenv(key, value)
	}
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/wallet",
	})

	if cfg.ServerPort != "7000" {
		t.Errorf("expected default server port 7000, got %q", cfg.ServerPort)
	}
	if cfg.TransactionEventExchange != "wallet.events" {
		t.Errorf("expected default exchange wallet.events, got %q", cfg.TransactionEventExchange)
	}
	if cfg.RedisRateLimitPrefix != "wallet:rate_limit" {
		t.Errorf("expected default rate limit prefix, got %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.JWTTTLHours != 24 {
		t.Errorf("expected default JWT TTL of 24 hours, got %d", cfg.JWTTTLHours)
	}
	if cfg.MutationRateLimitPerMin != 60 {
		t.Errorf("expected default mutation rate limit 60, got %d", cfg.MutationRateLimitPerMin)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/wallet" {
		t.Errorf("expected database url from env, got %q", cfg.DatabaseURL)
	}
}

func TestLoadConfigPortOverride(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"SERVER_PORT": "7000",
		"PORT":        "8080",
	})
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected PORT to win over SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfigEnvAliases(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"WALLET_REDIS_URL":  "redis://cache:6379/0",
		"WALLET_JWT_SECRET": "alias-secret",
	})
	if cfg.RedisURL != "redis://cache:6379/0" {
		t.Errorf("expected WALLET_REDIS_URL alias to bind, got %q", cfg.RedisURL)
	}
	if cfg.JWTSecret != "alias-secret" {
		t.Errorf("expected WALLET_JWT_SECRET alias to bind, got %q", cfg.JWTSecret)
	}
}

func TestLoadConfigCoercesBadValues(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"MUTATION_RATE_LIMIT_PER_MINUTE": "-5",
		"JWT_TTL_HOURS":                  "0",
		"REDIS_RATE_LIMIT_PREFIX":        "   ",
	})
	if cfg.MutationRateLimitPerMin != 0 {
		t.Errorf("expected a negative rate limit to disable limiting, got %d", cfg.MutationRateLimitPerMin)
	}
	if cfg.JWTTTLHours != 24 {
		t.Errorf("expected non-positive JWT TTL to fall back to 24, got %d", cfg.JWTTTLHours)
	}
	if cfg.RedisRateLimitPrefix != "wallet:rate_limit" {
		t.Errorf("expected blank prefix to fall back to the default, got %q", cfg.RedisRateLimitPrefix)
	}
}
