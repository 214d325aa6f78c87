// Package schema resolves the target column schema for a pipeline run:
// either the caller-supplied reference schema (authoritative) or a
// document-native schema voted from repeated header rows.
package schema

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

// ResolutionError is fatal: without a schema no record can be aligned, so
// the whole run aborts and in-flight work is cancelled.
type ResolutionError struct {
	PagesScanned int
	Reason       string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("schema resolution failed after scanning %d page(s): %s", e.PagesScanned, e.Reason)
}

// Resolver determines the active schema and the document's header-row
// signature (used downstream for chunk anchoring and noise dedup).
type Resolver struct {
	Reference *ledger.ReferenceSchema // authoritative when non-nil
	VotePages int                     // pages scanned for the majority vote
	Logger    *slog.Logger
}

func NewResolver(ref *ledger.ReferenceSchema, votePages int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if votePages <= 0 {
		votePages = constants.DefaultHeaderVotePages
	}
	return &Resolver{Reference: ref, VotePages: votePages, Logger: logger}
}

// Resolution is the outcome of schema resolution.
type Resolution struct {
	Schema    ledger.ReferenceSchema
	HeaderRow ledger.Row // detected document header row; may be nil with a reference schema
}

// Resolve picks the active schema. With a reference schema supplied it is
// returned untouched (field names and order are binding on all downstream
// records); the document header is still detected best-effort for noise
// dedup. Without one, the most frequent header signature across the first
// VotePages pages wins.
func (r *Resolver) Resolve(pages []ledger.RawPage) (Resolution, error) {
	header := r.detectHeader(pages)

	if r.Reference != nil {
		s := *r.Reference
		s.Source = ledger.SchemaSourceReference
		r.Logger.Info("schema.resolve.reference",
			"columns", s.Len(),
			"header_detected", header != nil,
		)
		return Resolution{Schema: s, HeaderRow: header}, nil
	}

	if header == nil {
		return Resolution{}, &ResolutionError{
			PagesScanned: min(len(pages), r.VotePages),
			Reason:       "no plausible header signature (row of mostly non-numeric, non-empty cells repeating across pages)",
		}
	}

	cols := make([]ledger.ColumnDescriptor, 0, len(header))
	for _, name := range header {
		n := strings.TrimSpace(name)
		cols = append(cols, ledger.ColumnDescriptor{
			Name:     n,
			Type:     constants.InferColumnType(n),
			Required: true,
		})
	}
	s := ledger.ReferenceSchema{Columns: cols, Source: ledger.SchemaSourceDocument}
	r.Logger.Info("schema.resolve.document", "columns", s.Len(), "header", strings.Join(header, "|"))
	return Resolution{Schema: s, HeaderRow: header}, nil
}

// detectHeader runs the majority vote: exact string-sequence signatures of
// plausible header rows across the first VotePages pages.
func (r *Resolver) detectHeader(pages []ledger.RawPage) ledger.Row {
	votes := map[string]int{}
	first := map[string]ledger.Row{}
	order := []string{}

	limit := r.VotePages
	for _, page := range pages {
		if page.Index >= limit {
			continue
		}
		for _, row := range page.Rows {
			if !IsHeaderCandidate(row) {
				continue
			}
			sig := Signature(row)
			if votes[sig] == 0 {
				first[sig] = row.Clone()
				order = append(order, sig)
			}
			votes[sig]++
		}
	}

	best, bestVotes := "", 0
	for _, sig := range order { // insertion order keeps ties deterministic
		if votes[sig] > bestVotes {
			best, bestVotes = sig, votes[sig]
		}
	}
	if bestVotes == 0 {
		return nil
	}
	// A single-page document cannot repeat its header; accept one vote then.
	if bestVotes < 2 && len(pages) > 1 {
		return nil
	}
	return first[best]
}

// IsHeaderCandidate reports whether a row looks like a table header: at
// least two cells, and at least 60% of them non-empty and non-numeric.
func IsHeaderCandidate(row ledger.Row) bool {
	if len(row) < 2 {
		return false
	}
	good := 0
	for _, cell := range row {
		c := strings.TrimSpace(cell)
		if c == "" || ledger.HasMaskedID(c) {
			continue
		}
		if _, err := ledger.ParseNumber(c); err == nil {
			continue
		}
		good++
	}
	return float64(good) >= 0.6*float64(len(row))
}

// Signature is the exact string-sequence identity of a row, used for the
// majority vote and for header anchoring in the chunker.
func Signature(row ledger.Row) string {
	trimmed := make([]string, len(row))
	for i, c := range row {
		trimmed[i] = strings.TrimSpace(c)
	}
	return strings.Join(trimmed, "\x1f")
}
