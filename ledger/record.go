package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hansbug/fiscai/constants"
)

// TypedValue is one reconciled cell: the verbatim source text for audit plus
// the normalized text and, where the column type allows it, a parsed value.
type TypedValue struct {
	Raw    string               // verbatim source text, never rewritten
	Text   string               // normalized text (whitespace/newline collapse only)
	Type   constants.ColumnType //
	Number decimal.Decimal      // set when Type == number and Parsed
	Date   time.Time            // set when Type == date and Parsed
	Parsed bool                 // typed parse succeeded
}

// RecordRef locates a record in its source document for audit and issue
// attachment.
type RecordRef struct {
	RecordID uuid.UUID
	Page     int // source page ordinal
	Chunk    int // chunk ordinal within the page
	Row      int // row ordinal within the chunk's cleaned rows
}

// TransactionRecord is one reconciled ledger row. Its field-name set always
// equals the active schema's column names exactly. Never mutated after
// validation annotation.
type TransactionRecord struct {
	Ref     RecordRef
	Columns []string // schema order, shared across records of a run
	Fields  map[string]TypedValue
}

// Value returns the typed value for a column.
func (r TransactionRecord) Value(name string) (TypedValue, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Texts returns the normalized cell texts in schema column order.
func (r TransactionRecord) Texts() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = r.Fields[c].Text
	}
	return out
}
