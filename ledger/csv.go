package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hansbug/fiscai/constants"
)

// WriteCSV writes the transaction portion of the ledger as a delimited table:
// one header row of schema column names, then one row per record using the
// normalized cell texts. Quoting/escaping follows RFC 4180 via encoding/csv.
func (l *Ledger) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(l.Schema.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range l.Records {
		if err := cw.Write(rec.Texts()); err != nil {
			return fmt.Errorf("write record %s: %w", rec.Ref.RecordID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// metadataDescriptor is the serialized shape of one metadata field.
type metadataDescriptor struct {
	ZHName string `json:"zh_name,omitempty"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Value  any    `json:"value"`
}

// MetadataJSON returns the document metadata as an ordered JSON array of
// field descriptors ({zh_name, name, text, value}).
func (l *Ledger) MetadataJSON() ([]byte, error) {
	out := make([]metadataDescriptor, 0, len(l.Metadata.Fields))
	for _, f := range l.Metadata.Fields {
		out = append(out, metadataDescriptor{
			ZHName: f.ZHName,
			Name:   f.Name,
			Text:   f.Text,
			Value:  typedValueJSON(f.Value),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

func typedValueJSON(v TypedValue) any {
	if !v.Parsed {
		return v.Text
	}
	switch v.Type {
	case constants.ColumnNumber:
		// decimal keeps exact scale; serialize as JSON number when possible
		if f, exact := v.Number.Float64(); exact {
			return f
		}
		return v.Number.String()
	case constants.ColumnDate:
		return v.Date.Format("2006-01-02 15:04:05")
	default:
		return v.Text
	}
}
