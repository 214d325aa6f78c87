package constants

import "time"

// Pipeline defaults. All of these are overridable through pipeline.Config;
// the epsilon and similarity threshold are deliberately policy knobs.
const (
	DefaultChunkMaxRows     = 40
	DefaultChunkMaxBytes    = 16 * 1024
	DefaultMaxRetries       = 3
	DefaultBackoffBase      = 500 * time.Millisecond
	DefaultBackoffCap       = 8 * time.Second
	DefaultCleanTimeout     = 60 * time.Second
	DefaultWorkers          = 4
	DefaultHeaderVotePages  = 3
	DefaultBalanceEpsilon   = "0.01"
	DefaultHeaderSimilarity = 0.80
)
