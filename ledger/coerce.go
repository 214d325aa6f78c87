package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hansbug/fiscai/constants"
)

// DateLayouts are the date formats observed across supported statement
// sources, tried in order. The first layout that parses a document's dates
// is effectively the document's format: layouts are mutually exclusive for
// any given input string.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006年01月02日 15:04:05",
	"2006年01月02日",
	"02/01/2006",
}

var (
	maskedIDRe = regexp.MustCompile(constants.MaskedIDPattern)
	newlineRe  = regexp.MustCompile(`\s*\n\s*`)
)

// HasMaskedID reports whether the text contains a masked account identifier.
func HasMaskedID(s string) bool { return maskedIDRe.MatchString(s) }

// IsMaskedID reports whether the whole text is a masked account identifier.
func IsMaskedID(s string) bool {
	m := maskedIDRe.FindString(s)
	return m == strings.TrimSpace(s) && m != ""
}

// CollapseNewlines replaces embedded line breaks (and surrounding space)
// with a single space, trimming the ends. Interior intentional whitespace is
// left alone.
func CollapseNewlines(s string) string {
	return strings.TrimSpace(newlineRe.ReplaceAllString(s, " "))
}

// ParseNumber parses a numeric cell: thousands separators are stripped
// (plain comma removal between digit groups, no locale guessing), embedded
// newlines removed, currency symbols left to the caller's raw text.
func ParseNumber(s string) (decimal.Decimal, error) {
	t := strings.TrimSpace(strings.ReplaceAll(s, "\n", ""))
	t = stripThousands(t)
	t = strings.TrimPrefix(t, "+")
	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse number %q: %w", s, err)
	}
	return d, nil
}

func stripThousands(s string) string {
	// Go's regexp has no lookahead; remove commas that sit between digits.
	var b strings.Builder
	b.Grow(len(s))
	rs := []rune(s)
	for i, r := range rs {
		if r == ',' && i > 0 && i+1 < len(rs) && isDigit(rs[i-1]) && isDigit(rs[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// ParseDate parses a date cell against the known layouts, returning the
// parsed time and the layout that matched.
func ParseDate(s string) (time.Time, string, error) {
	t := CollapseNewlines(s)
	for _, layout := range DateLayouts {
		if ts, err := time.Parse(layout, t); err == nil {
			return ts, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("parse date %q: no known layout", s)
}

// Coerce builds a TypedValue for raw cell text under the given column type.
// The raw text is always retained verbatim; normalization touches only
// whitespace and line breaks, plus thousands separators for numbers.
func Coerce(raw string, typ constants.ColumnType) TypedValue {
	v := TypedValue{Raw: raw, Type: typ}
	switch typ {
	case constants.ColumnNumber:
		v.Text = strings.TrimSpace(strings.ReplaceAll(stripThousands(raw), "\n", ""))
		if d, err := ParseNumber(raw); err == nil {
			v.Number = d
			v.Parsed = true
		}
	case constants.ColumnDate:
		v.Text = CollapseNewlines(raw)
		if ts, _, err := ParseDate(raw); err == nil {
			v.Date = ts
			v.Parsed = true
		}
	case constants.ColumnMaskedID:
		// Verbatim beyond whitespace collapse; validation flags bad masks.
		v.Text = CollapseNewlines(raw)
		v.Parsed = IsMaskedID(v.Text)
	default:
		v.Text = CollapseNewlines(raw)
		v.Parsed = true
	}
	return v
}
