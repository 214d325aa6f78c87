package noise

import (
	"strings"

	"github.com/hansbug/fiscai/ledger"
)

// DetectFooters collects page-repeating boundary rows: a signature that
// shows up as the first or last row of two or more pages is a print
// header/footer stamp, not data. Rows that look like transaction data
// (masked accounts, numeric or date cells) are never treated as footers;
// consecutive statement rows are often within fuzzy-match distance of each
// other and must not poison the signature set.
func DetectFooters(pages []ledger.RawPage, similarity float64) []ledger.Row {
	f := &Filter{Similarity: similarity}

	var candidates []ledger.Row
	for _, page := range pages {
		if len(page.Rows) == 0 {
			continue
		}
		candidates = append(candidates, page.Rows[len(page.Rows)-1])
		if len(page.Rows) > 1 {
			candidates = append(candidates, page.Rows[0])
		}
	}

	var footers []ledger.Row
	for i, cand := range candidates {
		if f.rowHasMaskedValue(cand) || looksLikeData(cand) {
			continue
		}
		repeats := 0
		for j, other := range candidates {
			if i != j && f.RowSimilarity(cand, other) >= similarity {
				repeats++
			}
		}
		if repeats >= 1 && !containsSimilar(f, footers, cand) {
			footers = append(footers, cand.Clone())
		}
	}
	return footers
}

// looksLikeData reports whether any cell parses as a number or date.
func looksLikeData(row ledger.Row) bool {
	for _, cell := range row {
		c := strings.TrimSpace(cell)
		if c == "" {
			continue
		}
		if _, err := ledger.ParseNumber(c); err == nil {
			return true
		}
		if _, _, err := ledger.ParseDate(c); err == nil {
			return true
		}
	}
	return false
}

func containsSimilar(f *Filter, rows []ledger.Row, cand ledger.Row) bool {
	for _, r := range rows {
		if f.RowSimilarity(cand, r) >= f.Similarity {
			return true
		}
	}
	return false
}
