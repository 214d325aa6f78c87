package cleaning

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hansbug/fiscai/ledger"
)

// ExtractFencedPayload strips a single Markdown code fence (```json, ```csv,
// or bare ```) wrapping the payload, if present. Capabilities frequently
// fence their output even when asked not to.
func ExtractFencedPayload(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		// drop the language tag line
		t = t[i+1:]
	} else {
		return strings.TrimSpace(strings.TrimSuffix(t, "```"))
	}
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// ParseTablePayload decodes a table-mode payload: a JSON array of string
// arrays, or CSV text. Cell counts are checked against the schema column
// count when one is known; a violation is ErrMalformedPayload so the
// gateway retries rather than passing bad shapes downstream.
func ParseTablePayload(raw []byte, columns int) ([]ledger.Row, error) {
	content := ExtractFencedPayload(string(raw))
	if content == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	if strings.HasPrefix(content, "[") {
		if err := validateAgainstSchema(tableSchema(columns), []byte(content)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		var rows [][]string
		if err := json.Unmarshal([]byte(content), &rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out := make([]ledger.Row, len(rows))
		for i, r := range rows {
			out[i] = ledger.Row(r)
		}
		return out, nil
	}

	// CSV fallback. Per-row widths are checked explicitly below so the
	// error can name the offending row.
	cr := csv.NewReader(strings.NewReader(content))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %v", ErrMalformedPayload, err)
	}
	out := make([]ledger.Row, 0, len(records))
	for i, rec := range records {
		if columns > 0 && len(rec) != columns {
			return nil, fmt.Errorf("%w: row %d has %d cells, schema has %d",
				ErrMalformedPayload, i, len(rec), columns)
		}
		out = append(out, ledger.Row(rec))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedPayload)
	}
	return out, nil
}

// ParseMetadataPayload decodes a metadata-mode payload: a JSON array of
// {zh_name, name, text, value} descriptors, validated before acceptance.
func ParseMetadataPayload(raw []byte) ([]RawField, error) {
	content := ExtractFencedPayload(string(raw))
	if content == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	if err := validateAgainstSchema(metadataSchema(), []byte(content)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var fields []RawField
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return fields, nil
}
