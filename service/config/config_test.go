package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, 25, cfg.EdgeThreshold)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "11111111111111111111111111111111", cfg.SystemProgramID)
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", cfg.TokenProgramID)
	assert.Equal(t, 20*time.Second, cfg.RPCTimeout)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.TemporalHost)
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SOLANA_RPC_URL", "https://rpc.example.com")
	os.Setenv("HISTORY_LIMIT", "100")
	os.Setenv("EDGE_THRESHOLD", "40")
	os.Setenv("ANALYSIS_CONCURRENCY", "4")
	os.Setenv("MAX_CORRELATED_WALLETS", "10")
	os.Setenv("RPC_TIMEOUT", "5s")
	os.Setenv("RPC_MAX_RETRIES", "1")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 40, cfg.EdgeThreshold)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 10, cfg.MaxCorrelatedWallets)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 1, cfg.RPCMaxRetries)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
}

func TestLoad_InvalidValues(t *testing.T) {
	os.Setenv("RPC_TIMEOUT", "invalid")
	os.Setenv("HISTORY_LIMIT", "fifty")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
	assert.Contains(t, err.Error(), "invalid integer")
}

func TestLoad_InvalidProgramID(t *testing.T) {
	os.Setenv("TOKEN_PROGRAM_ID", "not-base58!")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TokenProgramID")
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_Bounds(t *testing.T) {
	cfg := Default()
	cfg.HistoryLimit = 0
	cfg.EdgeThreshold = 101
	cfg.Concurrency = 0
	cfg.RPCTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HistoryLimit")
	assert.Contains(t, err.Error(), "EdgeThreshold")
	assert.Contains(t, err.Error(), "Concurrency")
	assert.Contains(t, err.Error(), "RPCTimeout")
}

func TestValidate_MissingRPCURL(t *testing.T) {
	cfg := Default()
	cfg.RPCURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPCURL is required")
}

func TestMustLoad_Panics(t *testing.T) {
	os.Setenv("ANALYSIS_CONCURRENCY", "0")
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	for _, key := range []string{
		"SERVER_ADDR", "METRICS_ADDR", "LOG_LEVEL",
		"DATABASE_URL", "NATS_URL",
		"TEMPORAL_HOST", "TEMPORAL_NAMESPACE", "TEMPORAL_TASK_QUEUE",
		"SOLANA_RPC_URL", "RPC_TIMEOUT", "RPC_MAX_RETRIES", "RPC_RETRY_BACKOFF",
		"HISTORY_LIMIT", "SYSTEM_PROGRAM_ID", "TOKEN_PROGRAM_ID",
		"EDGE_THRESHOLD", "ANALYSIS_CONCURRENCY", "MAX_CORRELATED_WALLETS",
	} {
		os.Unsetenv(key)
	}
}
