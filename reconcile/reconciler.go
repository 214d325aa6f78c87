// Package reconcile merges fragmented table cells into coherent records
// aligned to the active schema. It repairs broken line feeds (cells split
// across physical rows or glued inside one cell) and emits typed
// transaction records; rows it cannot align become audit issues, never
// silent drops.
package reconcile

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hansbug/fiscai/chunker"
	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
	"github.com/hansbug/fiscai/schema"
)

// Reconciler aligns cleaned rows to the schema and produces typed records.
type Reconciler struct {
	Schema ledger.ReferenceSchema
	Logger *slog.Logger
}

func New(s ledger.ReferenceSchema, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{Schema: s, Logger: logger}
}

// Reconcile processes one chunk's rows. degraded marks rows that skipped
// external cleaning; they get best-effort positional alignment instead of
// strict repair.
func (r *Reconciler) Reconcile(pageIdx, chunkIdx int, rows []ledger.Row, degraded bool) ([]ledger.TransactionRecord, []ledger.ValidationIssue) {
	var records []ledger.TransactionRecord
	var issues []ledger.ValidationIssue

	logical := mergeContinuations(rows)

	for i, row := range logical {
		if r.isSchemaHeader(row) {
			continue
		}
		if mismatch := r.headerMismatch(row); mismatch != "" {
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityError,
				Kind:     constants.IssueSchemaMismatch,
				Message:  mismatch,
			})
			continue
		}

		cells, ok := r.align(row, degraded)
		if !ok {
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityError,
				Kind:     constants.IssueUnalignedRow,
				Message: fmt.Sprintf("row cannot be aligned to %d columns: %q",
					r.Schema.Len(), strings.Join(row, " | ")),
			})
			r.Logger.Warn("reconcile.row.unaligned",
				"page", pageIdx, "chunk", chunkIdx, "row", i, "cells", len(row))
			continue
		}

		rec, recIssues := r.emit(pageIdx, chunkIdx, len(records), cells)
		records = append(records, rec)
		issues = append(issues, recIssues...)
	}
	return records, issues
}

// isSchemaHeader reports whether the row is the schema's own header row.
func (r *Reconciler) isSchemaHeader(row ledger.Row) bool {
	names := r.Schema.ColumnNames()
	if len(row) != len(names) {
		return false
	}
	for i, c := range row {
		if strings.TrimSpace(c) != names[i] {
			return false
		}
	}
	return true
}

// headerMismatch detects a cleaned header row whose names disagree with an
// authoritative reference schema. A reference schema is never silently
// renamed to; the disagreement surfaces as a schema-mismatch issue.
func (r *Reconciler) headerMismatch(row ledger.Row) string {
	if r.Schema.Source != ledger.SchemaSourceReference {
		return ""
	}
	if !schema.IsHeaderCandidate(row) || r.isSchemaHeader(row) {
		return ""
	}
	if len(row) != r.Schema.Len() {
		return ""
	}
	got := make([]string, len(row))
	for i, c := range row {
		got[i] = strings.TrimSpace(c)
	}
	return fmt.Sprintf("cleaned header %v does not match reference schema %v",
		got, r.Schema.ColumnNames())
}

// mergeContinuations folds continuation rows (leading blank cell) into the
// preceding logical row, joining cell-wise with a line break that later
// normalization collapses.
func mergeContinuations(rows []ledger.Row) []ledger.Row {
	var out []ledger.Row
	for _, row := range rows {
		if chunker.IsContinuation(row) && len(out) > 0 {
			prev := out[len(out)-1]
			for i, cell := range row {
				c := strings.TrimSpace(cell)
				if c == "" {
					continue
				}
				if i < len(prev) {
					if prev[i] == "" {
						prev[i] = c
					} else {
						prev[i] = prev[i] + "\n" + c
					}
				} else {
					// Positional overflow joins the last cell.
					prev[len(prev)-1] = prev[len(prev)-1] + "\n" + c
				}
			}
			out[len(out)-1] = prev
			continue
		}
		out = append(out, row.Clone())
	}
	return out
}

// align coerces a logical row to exactly the schema's column count.
// Strict path: drop empty extras, split newline-glued cells, merge
// overflow into the free-text column. Degraded path: positional
// truncate/pad best effort. Returns false when the count cannot be reached.
func (r *Reconciler) align(row ledger.Row, degraded bool) (ledger.Row, bool) {
	n := r.Schema.Len()
	cells := row.Clone()

	if len(cells) == n {
		return cells, true
	}

	if degraded {
		return alignPositional(cells, n, r.textColumnIndex()), true
	}

	// Too many cells: empty extras are layout artifacts; then fold
	// neighbors into the free-text column.
	for len(cells) > n {
		if i := indexOfEmpty(cells); i >= 0 {
			cells = append(cells[:i], cells[i+1:]...)
			continue
		}
		t := r.textColumnIndex()
		if t < 0 || t+1 >= len(cells) {
			return nil, false
		}
		cells[t] = cells[t] + " " + cells[t+1]
		cells = append(cells[:t+1], cells[t+2:]...)
	}

	// Too few cells: a line feed inside one physical cell glued two
	// logical columns together; split left to right.
	for len(cells) < n {
		i := indexOfNewline(cells)
		if i < 0 {
			return nil, false
		}
		parts := strings.SplitN(cells[i], "\n", 2)
		expanded := make(ledger.Row, 0, len(cells)+1)
		expanded = append(expanded, cells[:i]...)
		expanded = append(expanded, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		expanded = append(expanded, cells[i+1:]...)
		cells = expanded
	}

	return cells, len(cells) == n
}

// alignPositional is the degraded-chunk fallback: best-effort column
// alignment by cell position only.
func alignPositional(cells ledger.Row, n, textCol int) ledger.Row {
	out := cells.Clone()
	for len(out) > n {
		i := textCol
		if i < 0 || i+1 >= len(out) {
			i = n - 1
		}
		out[i] = strings.TrimSpace(out[i] + " " + out[i+1])
		out = append(out[:i+1], out[i+2:]...)
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

// textColumnIndex returns the first free-text column, the usual landing
// spot for split merchant descriptions.
func (r *Reconciler) textColumnIndex() int {
	for i, c := range r.Schema.Columns {
		if c.Type == constants.ColumnString {
			return i
		}
	}
	return -1
}

func indexOfEmpty(cells ledger.Row) int {
	for i, c := range cells {
		if strings.TrimSpace(c) == "" {
			return i
		}
	}
	return -1
}

func indexOfNewline(cells ledger.Row) int {
	for i, c := range cells {
		if strings.Contains(c, "\n") {
			return i
		}
	}
	return -1
}

// emit builds the typed record for an aligned row and its per-field issues.
// The field-name set always equals the schema exactly; an empty required
// field becomes an error issue rather than a dropped record.
func (r *Reconciler) emit(pageIdx, chunkIdx, rowIdx int, cells ledger.Row) (ledger.TransactionRecord, []ledger.ValidationIssue) {
	ref := ledger.RecordRef{
		RecordID: uuid.New(),
		Page:     pageIdx,
		Chunk:    chunkIdx,
		Row:      rowIdx,
	}
	rec := ledger.TransactionRecord{
		Ref:     ref,
		Columns: r.Schema.ColumnNames(),
		Fields:  make(map[string]ledger.TypedValue, r.Schema.Len()),
	}

	var issues []ledger.ValidationIssue
	for i, col := range r.Schema.Columns {
		v := ledger.Coerce(cells[i], col.Type)
		rec.Fields[col.Name] = v

		if col.Required && v.Text == "" {
			refCopy := ref
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityError,
				Kind:     constants.IssueMissingRequired,
				Record:   &refCopy,
				Message:  fmt.Sprintf("required field %q is empty", col.Name),
			})
			continue
		}
		if !v.Parsed && v.Text != "" &&
			(col.Type == constants.ColumnNumber || col.Type == constants.ColumnDate) {
			refCopy := ref
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityWarning,
				Kind:     constants.IssueValueParse,
				Record:   &refCopy,
				Message:  fmt.Sprintf("field %q: cannot parse %q as %s", col.Name, v.Text, col.Type),
			})
		}
	}
	return rec, issues
}
