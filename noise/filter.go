// Package noise strips obvious layout artifacts from extracted rows before
// and after external cleaning: repeated header/footer rows stamped mid-page
// and watermark bleed-through. It never attempts semantic repair.
package noise

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

// Flag marks a cell for downstream reconciliation attention without
// altering it.
type Flag struct {
	Row     int
	Cell    int
	Kind    constants.IssueKind
	Message string
}

// Filter removes near-duplicates of known header/footer signatures and
// flags watermark bleed-through. Rows carrying a masked account value are
// always preserved verbatim as candidate data.
type Filter struct {
	Similarity float64      // cell-wise match ratio threshold, default 0.80
	Header     ledger.Row   // resolved header signature; nil disables dedup
	Footers    []ledger.Row // repeated page footer signatures
	Logger     *slog.Logger
}

func NewFilter(header ledger.Row, similarity float64, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	if similarity <= 0 || similarity > 1 {
		similarity = constants.DefaultHeaderSimilarity
	}
	return &Filter{Similarity: similarity, Header: header, Logger: logger}
}

// isolated single alphanumeric runs surrounded by spaces: watermark bleed.
var strayRunRe = regexp.MustCompile(`(?:^|\s)[0-9A-Za-z](?:\s|$)`)

// Clean returns the rows with repeated header/footer artifacts removed
// (keeping the first header occurrence when keepFirstHeader is set) and the
// bleed-through flags gathered along the way.
func (f *Filter) Clean(rows []ledger.Row, keepFirstHeader bool) ([]ledger.Row, []Flag) {
	out := make([]ledger.Row, 0, len(rows))
	var flags []Flag
	headerSeen := false

	for i, row := range rows {
		if f.rowHasMaskedValue(row) {
			// Candidate data; never discard, only flag.
			flags = append(flags, f.flagBleed(i, row)...)
			out = append(out, row)
			continue
		}

		if f.Header != nil && f.RowSimilarity(row, f.Header) >= f.Similarity {
			if keepFirstHeader && !headerSeen {
				headerSeen = true
				out = append(out, row)
				continue
			}
			f.Logger.Debug("noise.strip.header_repeat", "row", i)
			continue
		}

		if f.matchesFooter(row) {
			f.Logger.Debug("noise.strip.footer_repeat", "row", i)
			continue
		}

		flags = append(flags, f.flagBleed(i, row)...)
		out = append(out, row)
	}
	return out, flags
}

func (f *Filter) matchesFooter(row ledger.Row) bool {
	for _, sig := range f.Footers {
		if f.RowSimilarity(row, sig) >= f.Similarity {
			return true
		}
	}
	return false
}

func (f *Filter) rowHasMaskedValue(row ledger.Row) bool {
	for _, cell := range row {
		if ledger.HasMaskedID(cell) {
			return true
		}
	}
	return false
}

func (f *Filter) flagBleed(rowIdx int, row ledger.Row) []Flag {
	var flags []Flag
	for c, cell := range row {
		t := strings.TrimSpace(cell)
		// At least two isolated stray runs inside otherwise substantial
		// text: likely watermark bleed-through, left for reconciliation.
		if len(t) >= 8 && len(strayRunRe.FindAllString(t, -1)) >= 2 && hasWord(t) {
			flags = append(flags, Flag{
				Row:     rowIdx,
				Cell:    c,
				Kind:    constants.IssueWatermarkBleed,
				Message: fmt.Sprintf("stray character runs in cell %d: %q", c, t),
			})
		}
	}
	return flags
}

func hasWord(s string) bool {
	for _, tok := range strings.Fields(s) {
		if len([]rune(tok)) >= 3 {
			return true
		}
	}
	return false
}

// RowSimilarity is the cell-wise match ratio between a row and a signature.
// Cells match when equal after trimming, or within a small Levenshtein
// distance, since OCR corrupts a few characters of repeated stamps.
func (f *Filter) RowSimilarity(row, sig ledger.Row) float64 {
	if len(sig) == 0 {
		return 0
	}
	n := len(sig)
	if len(row) > n {
		n = len(row)
	}
	matched := 0
	for i := 0; i < n; i++ {
		var a, b string
		if i < len(row) {
			a = strings.TrimSpace(row[i])
		}
		if i < len(sig) {
			b = strings.TrimSpace(sig[i])
		}
		if cellsSimilar(a, b) {
			matched++
		}
	}
	return float64(matched) / float64(n)
}

func cellsSimilar(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	tolerance := longest / 5
	if tolerance < 1 {
		tolerance = 1
	}
	return fuzzy.LevenshteinDistance(a, b) <= tolerance
}
