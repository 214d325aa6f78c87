package ledger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbug/fiscai/constants"
)

func testSchema() ReferenceSchema {
	return ReferenceSchema{
		Source: SchemaSourceDocument,
		Columns: []ColumnDescriptor{
			{Name: "date", Type: constants.ColumnDate, Required: true},
			{Name: "merchant", Type: constants.ColumnString, Required: true},
			{Name: "amount", Type: constants.ColumnNumber, Required: true},
			{Name: "balance", Type: constants.ColumnNumber, Required: true},
		},
	}
}

func makeRecord(s ReferenceSchema, cells []string) TransactionRecord {
	rec := TransactionRecord{
		Ref:     RecordRef{RecordID: uuid.New()},
		Columns: s.ColumnNames(),
		Fields:  map[string]TypedValue{},
	}
	for i, c := range s.Columns {
		rec.Fields[c.Name] = Coerce(cells[i], c.Type)
	}
	return rec
}

func TestLedgerWriteCSV(t *testing.T) {
	s := testSchema()
	l := &Ledger{
		Schema: s,
		Records: []TransactionRecord{
			makeRecord(s, []string{"2025-09-07 08:20:50", `Cafe "Central", downtown`, "-5.00", "1799.57"}),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, l.WriteCSV(&buf))

	want := "date,merchant,amount,balance\n" +
		"2025-09-07 08:20:50,\"Cafe \"\"Central\"\", downtown\",-5.00,1799.57\n"
	assert.Equal(t, want, buf.String())
}

func TestLedgerMetadataJSON(t *testing.T) {
	l := &Ledger{
		Metadata: DocumentMetadata{Fields: []MetadataField{
			{ZHName: "账号", Name: "account", Text: "6222****1234", Value: Coerce("6222****1234", constants.ColumnMaskedID)},
			{Name: "total_count", Text: "42", Value: Coerce("42", constants.ColumnNumber)},
		}},
	}

	raw, err := l.MetadataJSON()
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "账号", got[0]["zh_name"])
	assert.Equal(t, "account", got[0]["name"])
	assert.Equal(t, "6222****1234", got[0]["value"])
	assert.Equal(t, float64(42), got[1]["value"])
}

func TestSchemaColumnRoles(t *testing.T) {
	s := ReferenceSchema{Columns: []ColumnDescriptor{
		{Name: "交易日期", Type: constants.ColumnDate},
		{Name: "账号", Type: constants.ColumnMaskedID},
		{Name: "币种", Type: constants.ColumnString},
		{Name: "金额", Type: constants.ColumnNumber},
		{Name: "余额", Type: constants.ColumnNumber},
	}}

	assert.Equal(t, "交易日期", s.DateColumn())
	assert.Equal(t, "金额", s.AmountColumn())
	assert.Equal(t, "余额", s.BalanceColumn())
	assert.Equal(t, []string{"账号", "币种"}, s.GroupingColumns())
}

func TestLedgerExportXLSX(t *testing.T) {
	s := testSchema()
	l := &Ledger{
		Schema:  s,
		Records: []TransactionRecord{makeRecord(s, []string{"2025-09-07", "Cafe", "-5.00", "1799.57"})},
		Issues: []ValidationIssue{{
			Severity: constants.SeverityWarning,
			Kind:     constants.IssueBalanceGap,
			Message:  "example",
		}},
	}

	b, err := l.ExportXLSX()
	require.NoError(t, err)
	assert.NotEmpty(t, b)
	// XLSX files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, b[:2])
}
