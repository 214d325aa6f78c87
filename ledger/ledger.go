// Package ledger defines the data model shared across the reconciliation
// pipeline: raw pages in, typed transaction records, document metadata, and
// validation issues out.
package ledger

import (
	"github.com/google/uuid"

	"github.com/hansbug/fiscai/constants"
)

// Ledger is the sole externally returned artifact of a pipeline run:
// ordered transaction records (page order, then chunk order within a page),
// one document metadata record, and the accumulated validation issues.
// Assembled exactly once per run and immutable thereafter.
type Ledger struct {
	RunID    uuid.UUID
	Schema   ReferenceSchema
	Records  []TransactionRecord
	Metadata DocumentMetadata
	Issues   []ValidationIssue
}

// ErrorCount returns the number of error-severity issues.
func (l *Ledger) ErrorCount() int {
	n := 0
	for _, i := range l.Issues {
		if i.Severity == constants.SeverityError {
			n++
		}
	}
	return n
}

// IssuesFor returns the issues attached to the given record.
func (l *Ledger) IssuesFor(ref RecordRef) []ValidationIssue {
	var out []ValidationIssue
	for _, i := range l.Issues {
		if i.Record != nil && i.Record.RecordID == ref.RecordID {
			out = append(out, i)
		}
	}
	return out
}
