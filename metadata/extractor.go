// Package metadata extracts document-level fields (account, period, totals)
// from the non-tabular page regions, independently of the transaction-row
// path. Metadata absence is never fatal to the transaction ledger.
package metadata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hansbug/fiscai/cleaning"
	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

// Extractor sends noise-cleaned non-tabular rows through the cleaning
// gateway in metadata mode and coerces the returned descriptors.
type Extractor struct {
	Gateway *cleaning.Gateway
	// Reference names and declared types for the metadata fields. When
	// supplied, returned fields outside this set are dropped and missing
	// ones become warning issues.
	Reference []ledger.ColumnDescriptor
	Logger    *slog.Logger
}

func NewExtractor(gw *cleaning.Gateway, reference []ledger.ColumnDescriptor, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Gateway: gw, Reference: reference, Logger: logger}
}

// NonTabular selects the rows outside the transaction table's row-count
// signature: header/footer/summary regions whose cell count does not match
// the schema's column width.
func NonTabular(rows []ledger.Row, columns int) []ledger.Row {
	var out []ledger.Row
	for _, row := range rows {
		if len(row) != columns && nonEmpty(row) {
			out = append(out, row)
		}
	}
	return out
}

func nonEmpty(row ledger.Row) bool {
	for _, c := range row {
		if c != "" {
			return true
		}
	}
	return false
}

// Extract runs the metadata path. A degraded gateway result yields empty
// metadata plus a warning issue; the transaction ledger is unaffected.
func (e *Extractor) Extract(ctx context.Context, rows []ledger.Row, refMeta []cleaning.RawField) (ledger.DocumentMetadata, []ledger.ValidationIssue, error) {
	if len(rows) == 0 {
		return ledger.DocumentMetadata{}, e.missingReferenceIssues(nil), nil
	}

	res, err := e.Gateway.CleanMetadata(ctx, cleaning.Request{
		Rows:              rows,
		ReferenceMetadata: refMeta,
	})
	if err != nil {
		return ledger.DocumentMetadata{}, nil, err
	}
	if res.Degraded {
		e.Logger.Warn("metadata.extract.degraded", "error", res.Err)
		return ledger.DocumentMetadata{}, []ledger.ValidationIssue{{
			Severity: constants.SeverityWarning,
			Kind:     constants.IssueMetadataUnattained,
			Message:  fmt.Sprintf("metadata extraction degraded: %v", res.Err),
		}}, nil
	}

	meta, issues := e.coerce(res.Fields)
	issues = append(issues, e.missingReferenceIssues(meta.Fields)...)
	e.Logger.Info("metadata.extract.ok", "fields", len(meta.Fields), "issues", len(issues))
	return meta, issues, nil
}

// coerce types each returned descriptor. With a reference set, unknown
// fields are dropped silently (per contract) and declared types win over
// guessing.
func (e *Extractor) coerce(fields []cleaning.RawField) (ledger.DocumentMetadata, []ledger.ValidationIssue) {
	var meta ledger.DocumentMetadata
	var issues []ledger.ValidationIssue

	for _, f := range fields {
		typ, known := e.declaredType(f.Name)
		if e.Reference != nil && !known {
			continue
		}

		text := f.Text
		if text == "" {
			text = fmt.Sprintf("%v", f.Value)
		}
		v := ledger.Coerce(text, typ)
		if !v.Parsed && (typ == constants.ColumnNumber || typ == constants.ColumnDate) {
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityWarning,
				Kind:     constants.IssueValueParse,
				Message:  fmt.Sprintf("metadata field %q: cannot coerce %q to %s", f.Name, text, typ),
			})
		}
		meta.Fields = append(meta.Fields, ledger.MetadataField{
			ZHName: f.ZHName,
			Name:   f.Name,
			Text:   f.Text,
			Value:  v,
		})
	}
	return meta, issues
}

func (e *Extractor) declaredType(name string) (constants.ColumnType, bool) {
	for _, r := range e.Reference {
		if r.Name == name {
			return r.Type, true
		}
	}
	return constants.InferColumnType(name), false
}

// missingReferenceIssues reports reference fields absent from the response.
func (e *Extractor) missingReferenceIssues(got []ledger.MetadataField) []ledger.ValidationIssue {
	var issues []ledger.ValidationIssue
	for _, r := range e.Reference {
		found := false
		for _, f := range got {
			if f.Name == r.Name {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, ledger.ValidationIssue{
				Severity: constants.SeverityWarning,
				Kind:     constants.IssueMetadataMissing,
				Message:  fmt.Sprintf("reference metadata field %q missing from response", r.Name),
			})
		}
	}
	return issues
}
