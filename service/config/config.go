package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Config holds all application configuration loaded from environment variables.
// Only the RPC and analysis settings are required; every integration
// (database, NATS, Temporal) is optional and disabled when its URL is empty.
type Config struct {
	// Server configuration
	ServerAddr  string
	MetricsAddr string
	LogLevel    string

	// Optional integrations
	DatabaseURL string
	NATSURL     string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Solana RPC configuration
	RPCURL          string
	RPCTimeout      time.Duration
	RPCMaxRetries   int
	RPCRetryBackoff time.Duration

	// Analysis configuration
	HistoryLimit         int
	SystemProgramID      string
	TokenProgramID       string
	EdgeThreshold        int
	Concurrency          int
	MaxCorrelatedWallets int
}

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		ServerAddr:           ":8080",
		MetricsAddr:          ":9091",
		LogLevel:             "info",
		TemporalNamespace:    "default",
		TemporalTaskQueue:    "walletlink-analysis",
		RPCURL:               "https://api.mainnet-beta.solana.com",
		RPCTimeout:           20 * time.Second,
		RPCMaxRetries:        3,
		RPCRetryBackoff:      500 * time.Millisecond,
		HistoryLimit:         50,
		SystemProgramID:      solana.SystemProgramID.String(),
		TokenProgramID:       solana.TokenProgramID.String(),
		EdgeThreshold:        25,
		Concurrency:          8,
		MaxCorrelatedWallets: 200,
	}
}

// Load reads configuration from environment variables and validates it.
// Returns an error listing every invalid value.
func Load() (*Config, error) {
	d := Default()
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", d.ServerAddr)
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", d.MetricsAddr)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", d.LogLevel)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.TemporalHost = os.Getenv("TEMPORAL_HOST")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", d.TemporalNamespace)
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", d.TemporalTaskQueue)

	cfg.RPCURL = getEnvOrDefault("SOLANA_RPC_URL", d.RPCURL)
	cfg.SystemProgramID = getEnvOrDefault("SYSTEM_PROGRAM_ID", d.SystemProgramID)
	cfg.TokenProgramID = getEnvOrDefault("TOKEN_PROGRAM_ID", d.TokenProgramID)

	var err error
	if cfg.RPCTimeout, err = parseDuration("RPC_TIMEOUT", d.RPCTimeout.String()); err != nil {
		errs = append(errs, err)
	}
	if cfg.RPCRetryBackoff, err = parseDuration("RPC_RETRY_BACKOFF", d.RPCRetryBackoff.String()); err != nil {
		errs = append(errs, err)
	}
	if cfg.RPCMaxRetries, err = parseInt("RPC_MAX_RETRIES", d.RPCMaxRetries); err != nil {
		errs = append(errs, err)
	}
	if cfg.HistoryLimit, err = parseInt("HISTORY_LIMIT", d.HistoryLimit); err != nil {
		errs = append(errs, err)
	}
	if cfg.EdgeThreshold, err = parseInt("EDGE_THRESHOLD", d.EdgeThreshold); err != nil {
		errs = append(errs, err)
	}
	if cfg.Concurrency, err = parseInt("ANALYSIS_CONCURRENCY", d.Concurrency); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxCorrelatedWallets, err = parseInt("MAX_CORRELATED_WALLETS", d.MaxCorrelatedWallets); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, fmt.Errorf("RPCURL is required"))
	}

	if _, err := solana.PublicKeyFromBase58(c.SystemProgramID); err != nil {
		errs = append(errs, fmt.Errorf("SystemProgramID %q is not a valid address: %w", c.SystemProgramID, err))
	}

	if _, err := solana.PublicKeyFromBase58(c.TokenProgramID); err != nil {
		errs = append(errs, fmt.Errorf("TokenProgramID %q is not a valid address: %w", c.TokenProgramID, err))
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > 1000 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be between 1 and 1000, got %d", c.HistoryLimit))
	}

	if c.EdgeThreshold < 0 || c.EdgeThreshold > 100 {
		errs = append(errs, fmt.Errorf("EdgeThreshold must be between 0 and 100, got %d", c.EdgeThreshold))
	}

	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("Concurrency must be at least 1, got %d", c.Concurrency))
	}

	if c.MaxCorrelatedWallets < 0 {
		errs = append(errs, fmt.Errorf("MaxCorrelatedWallets cannot be negative"))
	}

	if c.RPCTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RPCTimeout must be positive"))
	}

	if c.RPCMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("RPCMaxRetries cannot be negative"))
	}

	if c.RPCRetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("RPCRetryBackoff cannot be negative"))
	}

	if c.TemporalHost != "" && c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required when TemporalHost is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
