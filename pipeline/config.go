package pipeline

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hansbug/fiscai/constants"
)

// Config holds the pipeline's policy knobs. The balance epsilon and header
// similarity threshold are deliberately configuration rather than constants.
type Config struct {
	// Chunking
	ChunkMaxRows  int
	ChunkMaxBytes int

	// Cleaning gateway
	MaxRetries   int
	BackoffBase  time.Duration
	BackoffCap   time.Duration
	CleanTimeout time.Duration

	// Scheduling
	Workers int

	// Schema resolution
	HeaderVotePages int

	// Validation policy
	BalanceEpsilon   decimal.Decimal
	HeaderSimilarity float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ChunkMaxRows:     constants.DefaultChunkMaxRows,
		ChunkMaxBytes:    constants.DefaultChunkMaxBytes,
		MaxRetries:       constants.DefaultMaxRetries,
		BackoffBase:      constants.DefaultBackoffBase,
		BackoffCap:       constants.DefaultBackoffCap,
		CleanTimeout:     constants.DefaultCleanTimeout,
		Workers:          constants.DefaultWorkers,
		HeaderVotePages:  constants.DefaultHeaderVotePages,
		BalanceEpsilon:   decimal.RequireFromString(constants.DefaultBalanceEpsilon),
		HeaderSimilarity: constants.DefaultHeaderSimilarity,
	}
}

// LoadConfig reads overrides from environment variables on top of the
// defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkMaxRows = getEnvAsInt("LEDGER_CHUNK_MAX_ROWS", cfg.ChunkMaxRows)
	cfg.ChunkMaxBytes = getEnvAsInt("LEDGER_CHUNK_MAX_BYTES", cfg.ChunkMaxBytes)
	cfg.MaxRetries = getEnvAsInt("LEDGER_CLEAN_MAX_RETRIES", cfg.MaxRetries)
	cfg.BackoffBase = getEnvAsDuration("LEDGER_CLEAN_BACKOFF_BASE", cfg.BackoffBase)
	cfg.BackoffCap = getEnvAsDuration("LEDGER_CLEAN_BACKOFF_CAP", cfg.BackoffCap)
	cfg.CleanTimeout = getEnvAsDuration("LEDGER_CLEAN_TIMEOUT", cfg.CleanTimeout)
	cfg.Workers = getEnvAsInt("LEDGER_WORKERS", cfg.Workers)
	cfg.HeaderVotePages = getEnvAsInt("LEDGER_HEADER_VOTE_PAGES", cfg.HeaderVotePages)
	cfg.HeaderSimilarity = getEnvAsFloat("LEDGER_HEADER_SIMILARITY", cfg.HeaderSimilarity)
	if v := os.Getenv("LEDGER_BALANCE_EPSILON"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.BalanceEpsilon = d
		}
	}
	return cfg
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.ChunkMaxRows <= 0 {
		return NewAppError("CONFIG_ERROR", "ChunkMaxRows must be positive", nil)
	}
	if c.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "Workers must be positive", nil)
	}
	if c.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "MaxRetries must not be negative", nil)
	}
	if c.HeaderSimilarity <= 0 || c.HeaderSimilarity > 1 {
		return NewAppError("CONFIG_ERROR", "HeaderSimilarity must be in (0, 1]", nil)
	}
	if c.BalanceEpsilon.IsNegative() {
		return NewAppError("CONFIG_ERROR", "BalanceEpsilon must not be negative", nil)
	}
	return nil
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
