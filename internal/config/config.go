package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidewallet/tidewallet/pkg/types"
)

// Config holds process-level configuration for the session coordinator.
// Everything else (sessions, active pointer) is runtime state, not config.
type Config struct {
	// Identity presented to external wallets during authorization
	AppName string
	AppURI  string
	AppIcon string

	// Target cluster: mainnet-beta, devnet, or testnet
	Cluster string

	// Biometric trust window for chained privileged calls. Must stay short
	// enough that it cannot span distinct user sessions.
	BiometricTrustWindow time.Duration

	// Secure token store. Empty path keeps tokens in memory only.
	TokenStorePath       string
	TokenStorePassphrase string

	// Caller-level timeout applied around each exchange (0 = none; the
	// protocol itself has no in-process timeout)
	ExchangeTimeout time.Duration

	// Exchange-open throttle (opens per second, 0 disables)
	ExchangeRateLimit float64
	ExchangeRateBurst int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		AppName:              getEnv("APP_NAME", "Tidewallet"),
		AppURI:               getEnv("APP_URI", "https://tidewallet.app"),
		AppIcon:              getEnv("APP_ICON", "favicon.ico"),
		Cluster:              getEnv("SOLANA_CLUSTER", "mainnet-beta"),
		BiometricTrustWindow: getEnvDuration("BIOMETRIC_TRUST_WINDOW", 5*time.Second),
		TokenStorePath:       getEnv("TOKEN_STORE_PATH", ""),
		TokenStorePassphrase: getEnv("TOKEN_STORE_PASSPHRASE", ""),
		ExchangeTimeout:      getEnvDuration("EXCHANGE_TIMEOUT", 0),
		ExchangeRateLimit:    getEnvFloat("EXCHANGE_RATE_LIMIT", 0),
		ExchangeRateBurst:    getEnvInt("EXCHANGE_RATE_BURST", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.AppName == "" {
		return fmt.Errorf("APP_NAME is required")
	}

	switch c.Cluster {
	case "mainnet-beta", "devnet", "testnet":
	default:
		return fmt.Errorf("SOLANA_CLUSTER must be 'mainnet-beta', 'devnet', or 'testnet', got: %s", c.Cluster)
	}

	if c.BiometricTrustWindow < 0 || c.BiometricTrustWindow > time.Minute {
		return fmt.Errorf("BIOMETRIC_TRUST_WINDOW must be between 0 and 1m, got: %s", c.BiometricTrustWindow)
	}

	if c.TokenStorePath != "" && c.TokenStorePassphrase == "" {
		return fmt.Errorf("TOKEN_STORE_PASSPHRASE is required when TOKEN_STORE_PATH is set")
	}

	if c.ExchangeRateLimit < 0 {
		return fmt.Errorf("EXCHANGE_RATE_LIMIT must not be negative")
	}

	return nil
}

// Identity builds the wallet-facing identity from the configured app fields.
func (c *Config) Identity() types.Identity {
	return types.Identity{
		Name: c.AppName,
		URI:  c.AppURI,
		Icon: c.AppIcon,
	}
}

// Chain returns the chain identifier sent in authorize requests.
func (c *Config) Chain() string {
	return "solana:" + c.Cluster
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration gets a duration environment variable with a default value.
// Accepts Go duration strings ("5s") or a bare number of milliseconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
