package ledger

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders the ledger as an XLSX workbook: a Transactions sheet
// (header + normalized cell texts), a Metadata sheet, and an Issues sheet.
func (l *Ledger) ExportXLSX() ([]byte, error) {
	f := excelize.NewFile()

	const txSheet = "Transactions"
	if err := renameDefaultSheet(f, txSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, txSheet, 1, toAny(l.Schema.ColumnNames())); err != nil {
		return nil, err
	}
	for i, rec := range l.Records {
		if err := writeRow(f, txSheet, i+2, toAny(rec.Texts())); err != nil {
			return nil, err
		}
	}

	const metaSheet = "Metadata"
	if _, err := f.NewSheet(metaSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, metaSheet, 1, []any{"Name", "Native Name", "Source Text", "Value"}); err != nil {
		return nil, err
	}
	for i, fld := range l.Metadata.Fields {
		row := []any{fld.Name, fld.ZHName, fld.Text, fmt.Sprintf("%v", typedValueJSON(fld.Value))}
		if err := writeRow(f, metaSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	const issueSheet = "Issues"
	if _, err := f.NewSheet(issueSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, issueSheet, 1, []any{"Severity", "Kind", "Page", "Message"}); err != nil {
		return nil, err
	}
	for i, is := range l.Issues {
		page := ""
		if is.Record != nil {
			page = fmt.Sprintf("%d", is.Record.Page)
		}
		row := []any{string(is.Severity), string(is.Kind), page, is.Message}
		if err := writeRow(f, issueSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func renameDefaultSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
