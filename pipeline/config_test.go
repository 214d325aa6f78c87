package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbug/fiscai/constants"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, constants.DefaultChunkMaxRows, cfg.ChunkMaxRows)
	assert.Equal(t, constants.DefaultWorkers, cfg.Workers)
	assert.True(t, cfg.BalanceEpsilon.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 0.80, cfg.HeaderSimilarity)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_CHUNK_MAX_ROWS", "25")
	t.Setenv("LEDGER_WORKERS", "8")
	t.Setenv("LEDGER_CLEAN_BACKOFF_BASE", "250ms")
	t.Setenv("LEDGER_BALANCE_EPSILON", "0.05")
	t.Setenv("LEDGER_HEADER_SIMILARITY", "0.9")

	cfg := LoadConfig()
	assert.Equal(t, 25, cfg.ChunkMaxRows)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.BackoffBase)
	assert.True(t, cfg.BalanceEpsilon.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 0.9, cfg.HeaderSimilarity)
}

func TestLoadConfigIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("LEDGER_WORKERS", "many")
	t.Setenv("LEDGER_BALANCE_EPSILON", "cheap")

	cfg := LoadConfig()
	assert.Equal(t, constants.DefaultWorkers, cfg.Workers)
	assert.True(t, cfg.BalanceEpsilon.Equal(decimal.RequireFromString(constants.DefaultBalanceEpsilon)))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk rows", func(c *Config) { c.ChunkMaxRows = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"similarity above one", func(c *Config) { c.HeaderSimilarity = 1.5 }},
		{"negative epsilon", func(c *Config) { c.BalanceEpsilon = decimal.RequireFromString("-0.01") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var aerr *AppError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, "CONFIG_ERROR", aerr.Code)
		})
	}
}
