package cleaning

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

// GatewayConfig bounds the retry behavior around one capability call.
type GatewayConfig struct {
	MaxRetries     int           // additional attempts after the first
	BackoffBase    time.Duration // first retry delay
	BackoffCap     time.Duration // delay ceiling
	AttemptTimeout time.Duration // per-attempt context deadline
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		MaxRetries:     constants.DefaultMaxRetries,
		BackoffBase:    constants.DefaultBackoffBase,
		BackoffCap:     constants.DefaultBackoffCap,
		AttemptTimeout: constants.DefaultCleanTimeout,
	}
}

// Gateway is the retry/backoff wrapper around the opaque capability. A
// chunk whose retries are exhausted is returned Degraded rather than
// failing the run; the reconciler then falls back to heuristic alignment.
type Gateway struct {
	capability Capability
	cfg        GatewayConfig
	logger     *slog.Logger
}

func NewGateway(capability Capability, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = constants.DefaultBackoffBase
	}
	if cfg.BackoffCap < cfg.BackoffBase {
		cfg.BackoffCap = constants.DefaultBackoffCap
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = constants.DefaultCleanTimeout
	}
	return &Gateway{capability: capability, cfg: cfg, logger: logger}
}

// TableResult is the outcome of a table-mode exchange. When Degraded, Rows
// holds the original uncleaned rows and Err records the exhausted failure.
type TableResult struct {
	Rows     []ledger.Row
	Raw      []byte // last raw payload, retained for audit
	Attempts int
	Degraded bool
	Err      error
}

// MetadataResult is the outcome of a metadata-mode exchange.
type MetadataResult struct {
	Fields   []RawField
	Raw      []byte
	Attempts int
	Degraded bool
	Err      error
}

// CleanTable submits a chunk for table cleaning. Only context cancellation
// is returned as an error; capability failures degrade the result instead.
func (g *Gateway) CleanTable(ctx context.Context, req Request) (TableResult, error) {
	req.Mode = ModeTable
	columns := 0
	if req.SchemaHint != nil {
		columns = req.SchemaHint.Len()
	}

	var res TableResult
	err := g.exchange(ctx, req, func(raw []byte) error {
		rows, perr := ParseTablePayload(raw, columns)
		if perr != nil {
			return perr
		}
		res.Rows = rows
		res.Raw = raw
		return nil
	}, &res.Attempts, &res.Err)
	if err != nil {
		return TableResult{}, err
	}
	if res.Err != nil {
		res.Degraded = true
		res.Rows = req.Rows // deterministic heuristic path takes over
	}
	return res, nil
}

// CleanMetadata submits non-tabular text for metadata extraction.
func (g *Gateway) CleanMetadata(ctx context.Context, req Request) (MetadataResult, error) {
	req.Mode = ModeMetadata

	var res MetadataResult
	err := g.exchange(ctx, req, func(raw []byte) error {
		fields, perr := ParseMetadataPayload(raw)
		if perr != nil {
			return perr
		}
		res.Fields = fields
		res.Raw = raw
		return nil
	}, &res.Attempts, &res.Err)
	if err != nil {
		return MetadataResult{}, err
	}
	res.Degraded = res.Err != nil
	return res, nil
}

// exchange runs the bounded retry loop: identical request each attempt,
// exponential backoff with jitter between attempts. accept parses and
// validates a raw payload; any accept failure counts as a capability
// failure. On exhaustion *lastErr carries a CapabilityError and the
// returned error is nil; degradation is the caller's decision.
func (g *Gateway) exchange(ctx context.Context, req Request, accept func([]byte) error, attempts *int, lastErr *error) error {
	rid := uuid.New().String()
	start := time.Now()
	maxAttempts := g.cfg.MaxRetries + 1

	g.logger.Info("gateway.clean.start",
		"req_id", rid,
		"mode", string(req.Mode),
		"rows", len(req.Rows),
		"has_schema_hint", req.SchemaHint != nil,
		"max_attempts", maxAttempts,
	)

	var failure error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		*attempts = attempt

		actx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
		raw, err := g.capability.Clean(actx, req)
		cancel()

		if err == nil {
			err = accept(raw)
		}
		if err == nil {
			g.logger.Info("gateway.clean.ok",
				"req_id", rid,
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			*lastErr = nil
			return nil
		}

		failure = err
		g.logger.Warn("gateway.clean.attempt_failed",
			"req_id", rid,
			"attempt", attempt,
			"error", err,
		)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < maxAttempts {
			if werr := g.wait(ctx, attempt); werr != nil {
				return werr
			}
		}
	}

	*lastErr = &CapabilityError{Attempts: maxAttempts, Cause: failure}
	g.logger.Warn("gateway.clean.exhausted",
		"req_id", rid,
		"attempts", maxAttempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", failure,
	)
	return nil
}

// wait sleeps for the attempt's backoff delay: exponential from the base,
// capped, with up to 50% random jitter to avoid retry stampedes.
func (g *Gateway) wait(ctx context.Context, attempt int) error {
	d := g.cfg.BackoffBase << (attempt - 1)
	if d > g.cfg.BackoffCap || d <= 0 {
		d = g.cfg.BackoffCap
	}
	half := d / 2
	d = half + time.Duration(rand.Int63n(int64(half+1)))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
