package ledger

import (
	"strings"

	"github.com/hansbug/fiscai/constants"
)

// SchemaSource records where the active schema came from.
type SchemaSource string

const (
	SchemaSourceReference SchemaSource = "reference" // caller-supplied, authoritative
	SchemaSourceDocument  SchemaSource = "document"  // majority vote over header rows
)

// ColumnDescriptor describes one schema column.
type ColumnDescriptor struct {
	Name     string
	Type     constants.ColumnType
	Required bool
}

// ReferenceSchema is the ordered column structure every reconciled record
// must match exactly. Once resolved for a run it is immutable.
type ReferenceSchema struct {
	Columns []ColumnDescriptor
	Source  SchemaSource
}

func (s *ReferenceSchema) Len() int { return len(s.Columns) }

// ColumnNames returns the ordered column names.
func (s *ReferenceSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// IndexOf returns the position of the named column, or -1.
func (s *ReferenceSchema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the descriptor for the named column.
func (s *ReferenceSchema) Column(name string) (ColumnDescriptor, bool) {
	i := s.IndexOf(name)
	if i < 0 {
		return ColumnDescriptor{}, false
	}
	return s.Columns[i], true
}

// firstOfType returns the name of the nth column with the given type, or "".
func (s *ReferenceSchema) firstOfType(t constants.ColumnType, skip int) string {
	for _, c := range s.Columns {
		if c.Type == t {
			if skip == 0 {
				return c.Name
			}
			skip--
		}
	}
	return ""
}

// DateColumn returns the first date-typed column name, or "".
func (s *ReferenceSchema) DateColumn() string {
	return s.firstOfType(constants.ColumnDate, 0)
}

// AmountColumn returns the column holding the signed transaction amount:
// a number column whose name suggests an amount, else the first number column.
func (s *ReferenceSchema) AmountColumn() string {
	for _, c := range s.Columns {
		if c.Type == constants.ColumnNumber && nameSuggests(c.Name, "amount", "金额") {
			return c.Name
		}
	}
	return s.firstOfType(constants.ColumnNumber, 0)
}

// BalanceColumn returns the running-balance column: a number column whose
// name suggests a balance, else the second number column.
func (s *ReferenceSchema) BalanceColumn() string {
	for _, c := range s.Columns {
		if c.Type == constants.ColumnNumber && nameSuggests(c.Name, "balance", "余额") {
			return c.Name
		}
	}
	return s.firstOfType(constants.ColumnNumber, 1)
}

// GroupingColumns returns the columns identifying an account/currency group
// for financial validation: all masked_id columns plus currency-named ones.
func (s *ReferenceSchema) GroupingColumns() []string {
	var out []string
	for _, c := range s.Columns {
		if c.Type == constants.ColumnMaskedID || nameSuggests(c.Name, "currency", "币种") {
			out = append(out, c.Name)
		}
	}
	return out
}

func nameSuggests(name string, subs ...string) bool {
	n := strings.ToLower(name)
	for _, sub := range subs {
		if strings.Contains(n, sub) {
			return true
		}
	}
	return false
}
