package ledger

// Row is one ordered sequence of text cells as extracted from the source
// document. Cells may contain embedded line breaks.
type Row []string

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Bytes returns the total cell text length, used for chunk budgeting.
func (r Row) Bytes() int {
	n := 0
	for _, c := range r {
		n += len(c)
	}
	return n
}

// RawPage is one page of extracted rows. Immutable once captured; the
// pipeline never writes back into it.
type RawPage struct {
	Index int // ordinal position in the document, 0-based
	Rows  []Row
}
