package constants

import "strings"

// ColumnType is the declared type of a schema column or metadata value.
type ColumnType string

const (
	ColumnString   ColumnType = "string"
	ColumnNumber   ColumnType = "number"
	ColumnDate     ColumnType = "date"
	ColumnMaskedID ColumnType = "masked_id"
)

// MaskedIDPattern matches masked account identifiers: a run of digits, four
// or more mask characters, then digits (e.g. "6222****1234").
const MaskedIDPattern = `\d+\*{4,}\d+`

// InferColumnType guesses a column type from its header name. Used only for
// document-native schemas; a caller-supplied reference schema is authoritative.
func InferColumnType(name string) ColumnType {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case containsAny(n, "date", "time", "日期", "时间"):
		return ColumnDate
	case containsAny(n, "amount", "balance", "debit", "credit", "金额", "余额"):
		return ColumnNumber
	case containsAny(n, "account", "card", "账号", "卡号"):
		return ColumnMaskedID
	default:
		return ColumnString
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
