package ledger

// MetadataField is one document-level field descriptor: the native-language
// name (when present), the canonical name, the verbatim source text, and the
// coerced typed value.
type MetadataField struct {
	ZHName string     `json:"zh_name,omitempty"`
	Name   string     `json:"name"`
	Text   string     `json:"text"`
	Value  TypedValue `json:"-"`
}

// DocumentMetadata holds the document-level fields (account, period, totals).
// Built once per document, independent of transaction rows.
type DocumentMetadata struct {
	Fields []MetadataField
}

// Get returns the field with the given canonical name.
func (m DocumentMetadata) Get(name string) (MetadataField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return MetadataField{}, false
}
