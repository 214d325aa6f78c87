package pipeline

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/hansbug/fiscai/ledger"
	"github.com/hansbug/fiscai/validate"
)

// assembler is the deterministic merge barrier: chunk results arrive in
// completion order and leave in page-then-chunk order, so the output is
// stable under parallel execution.
type assembler struct {
	logger *slog.Logger
}

func newAssembler(logger *slog.Logger) *assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &assembler{logger: logger}
}

// assemble merges all chunk results into the final ledger. Fails only on
// total extraction failure (every chunk degraded, zero usable records);
// otherwise partial success wins and issues tell the rest of the story.
func (a *assembler) assemble(
	runID uuid.UUID,
	s ledger.ReferenceSchema,
	results []chunkResult,
	validator *validate.Validator,
	meta ledger.DocumentMetadata,
	metaIssues []ledger.ValidationIssue,
) (*ledger.Ledger, error) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].pageIndex != results[j].pageIndex {
			return results[i].pageIndex < results[j].pageIndex
		}
		return results[i].chunkIndex < results[j].chunkIndex
	})

	out := &ledger.Ledger{RunID: runID, Schema: s, Metadata: meta}
	degraded, total := 0, 0

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		total++
		if r.degraded {
			degraded++
		}
		out.Records = append(out.Records, r.records...)
		out.Issues = append(out.Issues, r.issues...)
	}

	if total > 0 && degraded == total && len(out.Records) == 0 {
		return nil, NewAppError("TOTAL_EXTRACTION_FAILURE",
			fmt.Sprintf("all %d chunk(s) degraded with zero usable records", total),
			ErrTotalExtraction)
	}

	out.Issues = append(out.Issues, metaIssues...)
	out.Issues = append(out.Issues, validator.Validate(out.Records)...)

	a.logger.Info("pipeline.assemble.done",
		"run_id", runID,
		"records", len(out.Records),
		"issues", len(out.Issues),
		"chunks", total,
		"degraded_chunks", degraded,
	)
	return out, nil
}
