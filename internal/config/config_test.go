package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Tidewallet", cfg.AppName)
	assert.Equal(t, "mainnet-beta", cfg.Cluster)
	assert.Equal(t, 5*time.Second, cfg.BiometricTrustWindow)
	assert.Equal(t, time.Duration(0), cfg.ExchangeTimeout)
	assert.Equal(t, "solana:mainnet-beta", cfg.Chain())
	assert.Equal(t, "Tidewallet", cfg.Identity().Name)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_NAME", "My Wallet")
	t.Setenv("SOLANA_CLUSTER", "devnet")
	t.Setenv("BIOMETRIC_TRUST_WINDOW", "2s")
	t.Setenv("EXCHANGE_TIMEOUT", "30000")
	t.Setenv("EXCHANGE_RATE_LIMIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "My Wallet", cfg.AppName)
	assert.Equal(t, "solana:devnet", cfg.Chain())
	assert.Equal(t, 2*time.Second, cfg.BiometricTrustWindow)
	// Bare numbers are milliseconds.
	assert.Equal(t, 30*time.Second, cfg.ExchangeTimeout)
	assert.Equal(t, 0.5, cfg.ExchangeRateLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "unknown cluster",
			mutate:  func(c *Config) { c.Cluster = "localnet" },
			wantErr: "SOLANA_CLUSTER",
		},
		{
			name:    "trust window too long",
			mutate:  func(c *Config) { c.BiometricTrustWindow = 2 * time.Minute },
			wantErr: "BIOMETRIC_TRUST_WINDOW",
		},
		{
			name:    "token path without passphrase",
			mutate:  func(c *Config) { c.TokenStorePath = "/tmp/tokens" },
			wantErr: "TOKEN_STORE_PASSPHRASE",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.ExchangeRateLimit = -1 },
			wantErr: "EXCHANGE_RATE_LIMIT",
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.AppName = "" },
			wantErr: "APP_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				AppName:              "Test",
				Cluster:              "devnet",
				BiometricTrustWindow: 5 * time.Second,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
