// Package pipeline wires the reconciliation stages together: schema
// resolution, chunking, parallel cleaning/reconciliation, financial
// validation, metadata extraction, and the final ordered assembly into one
// immutable Ledger.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hansbug/fiscai/chunker"
	"github.com/hansbug/fiscai/cleaning"
	"github.com/hansbug/fiscai/ledger"
	"github.com/hansbug/fiscai/metadata"
	"github.com/hansbug/fiscai/noise"
	"github.com/hansbug/fiscai/schema"
	"github.com/hansbug/fiscai/validate"
)

// Pipeline converts page-fragmented statement text into a validated ledger.
// One Pipeline may serve many runs; each run is independent.
type Pipeline struct {
	cfg     Config
	gateway *cleaning.Gateway
	logger  *slog.Logger
}

// New builds a pipeline around the opaque cleaning capability.
func New(capability cleaning.Capability, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gw := cleaning.NewGateway(capability, cleaning.GatewayConfig{
		MaxRetries:     cfg.MaxRetries,
		BackoffBase:    cfg.BackoffBase,
		BackoffCap:     cfg.BackoffCap,
		AttemptTimeout: cfg.CleanTimeout,
	}, logger)
	return &Pipeline{cfg: cfg, gateway: gw, logger: logger}, nil
}

// Input is one pipeline invocation.
type Input struct {
	Pages []ledger.RawPage

	// ReferenceSchema, when supplied, is authoritative for all records.
	ReferenceSchema *ledger.ReferenceSchema

	// ReferenceMetadata names and types the expected document metadata
	// fields; absent fields become warning issues.
	ReferenceMetadata []ledger.ColumnDescriptor
}

// Run executes the full pipeline. Callers receive either a Ledger
// (possibly with a non-empty issue list) or a single fatal error; partial
// success always beats total failure when any record could be recovered.
func (p *Pipeline) Run(ctx context.Context, in Input) (*ledger.Ledger, error) {
	if len(in.Pages) == 0 {
		return nil, NewAppError("NO_PAGES", "document has no pages", ErrNoPages)
	}

	runID := uuid.New()
	p.logger.Info("pipeline.run.start",
		"run_id", runID,
		"pages", len(in.Pages),
		"has_reference_schema", in.ReferenceSchema != nil,
	)

	// Schema resolution is the only fatal gate: failure cancels the run
	// before any chunk work is in flight.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resolver := schema.NewResolver(in.ReferenceSchema, p.cfg.HeaderVotePages, p.logger)
	resolution, err := resolver.Resolve(in.Pages)
	if err != nil {
		cancel()
		return nil, NewAppError("SCHEMA_RESOLUTION", err.Error(), ErrSchemaResolution)
	}
	activeSchema := resolution.Schema

	filter := p.buildFilter(in.Pages, resolution.HeaderRow)
	processor := newChunkProcessor(activeSchema, filter, p.gateway, p.logger)

	chunks := p.chunkPages(in.Pages, resolution.HeaderRow)
	if len(chunks) == 0 {
		return nil, NewAppError("NO_PAGES", "document pages contain no rows", ErrNoPages)
	}

	// Metadata runs on its own path, concurrent with the chunk pool.
	metaCh := make(chan metaOutcome, 1)
	go p.extractMetadata(ctx, in, activeSchema, filter, metaCh)

	// The first chunk runs ahead of the pool so its cleaned table can be
	// carried forward as a formatting hint for every later chunk.
	first := processor.process(ctx, chunks[0], nil)
	var refTable []ledger.Row
	if !first.degraded && len(first.records) > 0 {
		refTable = recordRows(first.records)
	}

	queue := newChunkQueue(func(ctx context.Context, c chunker.Chunk) chunkResult {
		return processor.process(ctx, c, refTable)
	}, p.logger, withWorkers(p.cfg.Workers), withQueueSize(len(chunks)))
	results := queue.run(ctx, chunks[1:])
	results = append(results, first)

	mo := <-metaCh
	if mo.err != nil {
		return nil, mo.err
	}

	validator := validate.New(activeSchema, p.cfg.BalanceEpsilon, p.logger)
	return newAssembler(p.logger).assemble(runID, activeSchema, results, validator, mo.meta, mo.issues)
}

type metaOutcome struct {
	meta   ledger.DocumentMetadata
	issues []ledger.ValidationIssue
	err    error
}

func (p *Pipeline) extractMetadata(ctx context.Context, in Input, s ledger.ReferenceSchema, filter *noise.Filter, out chan<- metaOutcome) {
	var nontabular []ledger.Row
	for _, page := range in.Pages {
		rows, _ := filter.Clean(page.Rows, false)
		nontabular = append(nontabular, metadata.NonTabular(rows, s.Len())...)
	}

	ex := metadata.NewExtractor(p.gateway, in.ReferenceMetadata, p.logger)
	meta, issues, err := ex.Extract(ctx, nontabular, nil)
	if err != nil {
		out <- metaOutcome{err: fmt.Errorf("metadata extraction: %w", err)}
		return
	}
	out <- metaOutcome{meta: meta, issues: issues}
}

// buildFilter assembles the noise filter: the resolved header signature
// plus page-repeating boundary rows, excluding the header itself.
func (p *Pipeline) buildFilter(pages []ledger.RawPage, header ledger.Row) *noise.Filter {
	filter := noise.NewFilter(header, p.cfg.HeaderSimilarity, p.logger)
	for _, f := range noise.DetectFooters(pages, p.cfg.HeaderSimilarity) {
		if header != nil && filter.RowSimilarity(f, header) >= p.cfg.HeaderSimilarity {
			continue
		}
		filter.Footers = append(filter.Footers, f)
	}
	return filter
}

func (p *Pipeline) chunkPages(pages []ledger.RawPage, header ledger.Row) []chunker.Chunk {
	c := chunker.New(p.cfg.ChunkMaxRows, p.cfg.ChunkMaxBytes, header)
	var chunks []chunker.Chunk
	for _, page := range pages {
		chunks = append(chunks, c.Split(page)...)
	}
	return chunks
}

// recordRows renders reconciled records back to plain rows for use as a
// carry-forward formatting hint.
func recordRows(records []ledger.TransactionRecord) []ledger.Row {
	out := make([]ledger.Row, 0, len(records)+1)
	if len(records) > 0 {
		out = append(out, ledger.Row(records[0].Columns))
	}
	for _, r := range records {
		out = append(out, ledger.Row(r.Texts()))
	}
	return out
}
