package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hansbug/fiscai/chunker"
	"github.com/hansbug/fiscai/cleaning"
	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
	"github.com/hansbug/fiscai/noise"
	"github.com/hansbug/fiscai/reconcile"
)

// chunkResult is one chunk's contribution to the final merge.
type chunkResult struct {
	pageIndex  int
	chunkIndex int
	records    []ledger.TransactionRecord
	issues     []ledger.ValidationIssue
	degraded   bool
	err        error // context cancellation only
}

// chunkProcessor runs one chunk through its whole per-chunk pipeline:
// noise filter, external cleaning, noise filter again, reconciliation.
// Stateless across chunks; safe for concurrent use.
type chunkProcessor struct {
	schema     ledger.ReferenceSchema
	filter     *noise.Filter
	gateway    *cleaning.Gateway
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

func newChunkProcessor(s ledger.ReferenceSchema, filter *noise.Filter, gw *cleaning.Gateway, logger *slog.Logger) *chunkProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &chunkProcessor{
		schema:     s,
		filter:     filter,
		gateway:    gw,
		reconciler: reconcile.New(s, logger),
		logger:     logger,
	}
}

// process cleans and reconciles one chunk. refTable is the carry-forward
// hint from the first successfully cleaned chunk; it is immutable shared
// context, never written to.
func (p *chunkProcessor) process(ctx context.Context, c chunker.Chunk, refTable []ledger.Row) chunkResult {
	res := chunkResult{pageIndex: c.PageIndex, chunkIndex: c.Index}

	// Pre-clean: strip repeated header/footer stamps before spending a
	// capability call on them.
	rows, preFlags := p.filter.Clean(c.Rows, c.HasHeader)
	if len(rows) == 0 {
		return res
	}

	gres, err := p.gateway.CleanTable(ctx, cleaning.Request{
		Rows:           rows,
		SchemaHint:     &p.schema,
		ReferenceTable: refTable,
	})
	if err != nil {
		res.err = err
		return res
	}

	if gres.Degraded {
		res.degraded = true
		res.issues = append(res.issues, ledger.ValidationIssue{
			Severity: constants.SeverityWarning,
			Kind:     constants.IssueDegradedChunk,
			Message: fmt.Sprintf("page %d chunk %d: cleaning exhausted after %d attempt(s), heuristic alignment used: %v",
				c.PageIndex, c.Index, gres.Attempts, gres.Err),
		})
	}

	// Post-clean: the capability may echo the header or miss a stamp.
	cleaned, postFlags := p.filter.Clean(gres.Rows, c.HasHeader)

	for _, f := range append(preFlags, postFlags...) {
		res.issues = append(res.issues, ledger.ValidationIssue{
			Severity: constants.SeverityWarning,
			Kind:     f.Kind,
			Message:  fmt.Sprintf("page %d chunk %d: %s", c.PageIndex, c.Index, f.Message),
		})
	}

	records, recIssues := p.reconciler.Reconcile(c.PageIndex, c.Index, cleaned, gres.Degraded)
	res.records = records
	res.issues = append(res.issues, recIssues...)

	p.logger.Info("pipeline.chunk.done",
		"page", c.PageIndex,
		"chunk", c.Index,
		"records", len(records),
		"issues", len(res.issues),
		"degraded", res.degraded,
	)
	return res
}
