// Package chunker splits a page's rows into bounded work units for the
// cleaning gateway. Chunk order is preserved so the assembler can merge
// deterministically regardless of completion order.
package chunker

import (
	"strings"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
	"github.com/hansbug/fiscai/schema"
)

// Chunk is a bounded subset of one page's rows processed as a unit.
type Chunk struct {
	PageIndex int
	Index     int // chunk ordinal within the page
	Rows      []ledger.Row
	HasHeader bool // the detected header row is the first row of this chunk
}

// Chunker bounds chunks by row count and byte budget. The detected header
// row always stays attached to a page's first chunk, and a logical record
// is never split across a boundary when continuation markers are present.
type Chunker struct {
	MaxRows   int
	MaxBytes  int
	HeaderSig string // exact signature of the resolved header row; "" if none
}

func New(maxRows, maxBytes int, headerRow ledger.Row) *Chunker {
	if maxRows <= 0 {
		maxRows = constants.DefaultChunkMaxRows
	}
	if maxBytes <= 0 {
		maxBytes = constants.DefaultChunkMaxBytes
	}
	sig := ""
	if headerRow != nil {
		sig = schema.Signature(headerRow)
	}
	return &Chunker{MaxRows: maxRows, MaxBytes: maxBytes, HeaderSig: sig}
}

// IsContinuation reports whether a row continues the previous logical
// record: its leading cell is empty or whitespace.
func IsContinuation(row ledger.Row) bool {
	return len(row) > 0 && strings.TrimSpace(row[0]) == ""
}

// Split partitions the page's rows into ordered chunks. The result is a
// plain slice: finite, restartable, and deterministic for a given input.
func (c *Chunker) Split(page ledger.RawPage) []Chunk {
	var chunks []Chunk
	var cur []ledger.Row
	curBytes := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			PageIndex: page.Index,
			Index:     len(chunks),
			Rows:      cur,
		})
		cur, curBytes = nil, 0
	}

	for _, row := range page.Rows {
		overBudget := len(cur) >= c.MaxRows || (curBytes > 0 && curBytes+row.Bytes() > c.MaxBytes)
		// Never start a chunk on a continuation row: it belongs to the
		// record that opened in the current chunk.
		if overBudget && !IsContinuation(row) {
			flush()
		}
		cur = append(cur, row.Clone())
		curBytes += row.Bytes()
	}
	flush()

	if len(chunks) > 0 && c.HeaderSig != "" && len(chunks[0].Rows) > 0 &&
		schema.Signature(chunks[0].Rows[0]) == c.HeaderSig {
		chunks[0].HasHeader = true
	}
	return chunks
}
