package ledger

import (
	"fmt"

	"github.com/hansbug/fiscai/constants"
)

// ValidationIssue annotates a record or the ledger as a whole. Issues never
// drive silent data loss: an excluded row's text is retained in Message.
type ValidationIssue struct {
	Severity constants.Severity
	Kind     constants.IssueKind
	Record   *RecordRef // nil for ledger-level issues
	Message  string
}

func (i ValidationIssue) String() string {
	if i.Record != nil {
		return fmt.Sprintf("%s/%s page=%d chunk=%d row=%d: %s",
			i.Severity, i.Kind, i.Record.Page, i.Record.Chunk, i.Record.Row, i.Message)
	}
	return fmt.Sprintf("%s/%s: %s", i.Severity, i.Kind, i.Message)
}
