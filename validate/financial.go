// Package validate enforces financial-consistency invariants over the
// assembled, ordered record sequence. It only annotates issues; record
// values are never altered.
package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

var maskRe = regexp.MustCompile(`^` + constants.MaskedIDPattern + `$`)

// Validator checks running-balance continuity, date monotonicity, and mask
// patterns per account/currency grouping.
type Validator struct {
	Schema  ledger.ReferenceSchema
	Epsilon decimal.Decimal // balance continuity tolerance, default 0.01
	Logger  *slog.Logger
}

func New(s ledger.ReferenceSchema, epsilon decimal.Decimal, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	if epsilon.LessThanOrEqual(decimal.Zero) {
		epsilon = decimal.RequireFromString(constants.DefaultBalanceEpsilon)
	}
	return &Validator{Schema: s, Epsilon: epsilon, Logger: logger}
}

// groupState tracks the last seen balance and date within one grouping key.
type groupState struct {
	hasBalance bool
	balance    decimal.Decimal
	hasDate    bool
	date       time.Time
}

// Validate runs over records in their final assembled order. OCR numeric
// noise is expected, so continuity and ordering violations are warnings;
// a malformed masked identifier is an error.
func (v *Validator) Validate(records []ledger.TransactionRecord) []ledger.ValidationIssue {
	var issues []ledger.ValidationIssue
	groups := map[string]*groupState{}

	amountCol := v.Schema.AmountColumn()
	balanceCol := v.Schema.BalanceColumn()
	dateCol := v.Schema.DateColumn()

	for _, rec := range records {
		issues = append(issues, v.checkMasks(rec)...)

		key := v.groupKey(rec)
		st := groups[key]
		if st == nil {
			st = &groupState{}
			groups[key] = st
		}

		if dateCol != "" {
			if d, ok := rec.Value(dateCol); ok && d.Parsed {
				if st.hasDate && d.Date.Before(st.date) {
					issues = append(issues, v.issue(rec, constants.SeverityWarning, constants.IssueDateOutOfOrder,
						fmt.Sprintf("date %s precedes previous %s in group %q",
							d.Date.Format(time.DateTime), st.date.Format(time.DateTime), key)))
				}
				st.hasDate, st.date = true, d.Date
			}
		}

		if amountCol != "" && balanceCol != "" {
			amt, okA := rec.Value(amountCol)
			bal, okB := rec.Value(balanceCol)
			if okA && okB && amt.Parsed && bal.Parsed {
				if st.hasBalance {
					expected := st.balance.Add(amt.Number)
					diff := bal.Number.Sub(expected).Abs()
					if diff.GreaterThan(v.Epsilon) {
						issues = append(issues, v.issue(rec, constants.SeverityWarning, constants.IssueBalanceGap,
							fmt.Sprintf("balance %s != previous %s + amount %s (diff %s, epsilon %s)",
								bal.Number, st.balance, amt.Number, diff, v.Epsilon)))
					}
				}
				st.hasBalance, st.balance = true, bal.Number
			}
		}
	}

	if len(issues) > 0 {
		v.Logger.Info("validate.financial.done", "records", len(records), "issues", len(issues))
	}
	return issues
}

// checkMasks flags masked_id fields that do not match the mask pattern
// (digits, mask run, digits). The record is retained, only flagged.
func (v *Validator) checkMasks(rec ledger.TransactionRecord) []ledger.ValidationIssue {
	var issues []ledger.ValidationIssue
	for _, col := range v.Schema.Columns {
		if col.Type != constants.ColumnMaskedID {
			continue
		}
		val, ok := rec.Value(col.Name)
		if !ok || val.Text == "" {
			continue
		}
		if !maskRe.MatchString(val.Text) {
			issues = append(issues, v.issue(rec, constants.SeverityError, constants.IssueMaskPattern,
				fmt.Sprintf("field %q: %q does not match the masked identifier pattern", col.Name, val.Text)))
		}
	}
	return issues
}

// groupKey concatenates the account/currency-identifying column texts.
// Documents without such columns validate as a single group.
func (v *Validator) groupKey(rec ledger.TransactionRecord) string {
	cols := v.Schema.GroupingColumns()
	if len(cols) == 0 {
		return ""
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		if val, ok := rec.Value(c); ok {
			parts[i] = val.Text
		}
	}
	return strings.Join(parts, "\x1f")
}

func (v *Validator) issue(rec ledger.TransactionRecord, sev constants.Severity, kind constants.IssueKind, msg string) ledger.ValidationIssue {
	ref := rec.Ref
	return ledger.ValidationIssue{Severity: sev, Kind: kind, Record: &ref, Message: msg}
}
