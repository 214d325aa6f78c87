package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbug/fiscai/constants"
	"github.com/hansbug/fiscai/ledger"
)

func bankSchema(source ledger.SchemaSource) ledger.ReferenceSchema {
	return ledger.ReferenceSchema{
		Source: source,
		Columns: []ledger.ColumnDescriptor{
			{Name: "date", Type: constants.ColumnDate, Required: true},
			{Name: "merchant", Type: constants.ColumnString, Required: true},
			{Name: "amount", Type: constants.ColumnNumber, Required: true},
			{Name: "balance", Type: constants.ColumnNumber, Required: true},
		},
	}
}

func TestReconcileSplitCells(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	// A line feed split the date cell and glued the merchant across rows.
	rows := []ledger.Row{
		{"2025-09-07\n08:20:50", "Coffee\nHouse Ltd", "-5.00", "1799.57"},
	}
	records, issues := r.Reconcile(0, 0, rows, false)
	require.Len(t, records, 1)
	assert.Empty(t, issues)

	rec := records[0]
	date, _ := rec.Value("date")
	assert.Equal(t, "2025-09-07 08:20:50", date.Text)
	assert.True(t, date.Parsed)

	merchant, _ := rec.Value("merchant")
	assert.Equal(t, "Coffee House Ltd", merchant.Text)

	amount, _ := rec.Value("amount")
	assert.Equal(t, "-5", amount.Number.String())

	balance, _ := rec.Value("balance")
	assert.Equal(t, "1799.57", balance.Number.String())
}

func TestReconcileContinuationRows(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	rows := []ledger.Row{
		{"2025-09-07", "Coffee", "-5.00", "1799.57"},
		{"", "House Ltd", "", ""},
		{"2025-09-08", "Market", "-7.00", "1792.57"},
	}
	records, issues := r.Reconcile(0, 0, rows, false)
	require.Len(t, records, 2)
	assert.Empty(t, issues)

	merchant, _ := records[0].Value("merchant")
	assert.Equal(t, "Coffee House Ltd", merchant.Text)
	assert.Equal(t, "Coffee\nHouse Ltd", merchant.Raw)
}

func TestReconcileGluedColumnsSplit(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	// Three physical cells for four columns: amount and balance share one.
	rows := []ledger.Row{
		{"2025-09-07 08:20:50", "Cafe", "-5.00\n1799.57"},
	}
	records, issues := r.Reconcile(0, 0, rows, false)
	require.Len(t, records, 1)
	assert.Empty(t, issues)

	amount, _ := records[0].Value("amount")
	assert.Equal(t, "-5", amount.Number.String())
	balance, _ := records[0].Value("balance")
	assert.Equal(t, "1799.57", balance.Number.String())
}

func TestReconcileExtraCells(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	t.Run("empty extras dropped", func(t *testing.T) {
		records, issues := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "", "Cafe", "-5.00", "1799.57"},
		}, false)
		require.Len(t, records, 1)
		assert.Empty(t, issues)
		m, _ := records[0].Value("merchant")
		assert.Equal(t, "Cafe", m.Text)
	})

	t.Run("overflow folds into free text column", func(t *testing.T) {
		records, issues := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "Coffee", "House Ltd", "-5.00", "1799.57"},
		}, false)
		require.Len(t, records, 1)
		assert.Empty(t, issues)
		m, _ := records[0].Value("merchant")
		assert.Equal(t, "Coffee House Ltd", m.Text)
	})
}

func TestReconcileUnalignedRow(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	records, issues := r.Reconcile(2, 1, []ledger.Row{
		{"watermark fragment"},
	}, false)
	assert.Empty(t, records)
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityError, issues[0].Severity)
	assert.Equal(t, constants.IssueUnalignedRow, issues[0].Kind)
	// Row text is retained for audit.
	assert.Contains(t, issues[0].Message, "watermark fragment")
}

func TestReconcileSkipsSchemaHeader(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	records, issues := r.Reconcile(0, 0, []ledger.Row{
		{"date", "merchant", "amount", "balance"},
		{"2025-09-07", "Cafe", "-5.00", "1799.57"},
	}, false)
	require.Len(t, records, 1)
	assert.Empty(t, issues)
}

func TestReconcileReferenceHeaderMismatch(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceReference), nil)

	records, issues := r.Reconcile(0, 0, []ledger.Row{
		{"交易日期", "商户", "金额", "余额"},
		{"2025-09-07", "Cafe", "-5.00", "1799.57"},
	}, false)
	require.Len(t, records, 1)
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityError, issues[0].Severity)
	assert.Equal(t, constants.IssueSchemaMismatch, issues[0].Kind)
}

func TestReconcileDegradedPositional(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	t.Run("short row padded", func(t *testing.T) {
		records, _ := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "Cafe", "-5.00"},
		}, true)
		require.Len(t, records, 1)
		b, _ := records[0].Value("balance")
		assert.Equal(t, "", b.Text)
	})

	t.Run("long row folded", func(t *testing.T) {
		records, _ := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "Coffee", "House", "-5.00", "1799.57"},
		}, true)
		require.Len(t, records, 1)
		m, _ := records[0].Value("merchant")
		assert.Equal(t, "Coffee House", m.Text)
	})
}

func TestReconcileFieldIssues(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	t.Run("missing required", func(t *testing.T) {
		records, issues := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "", "-5.00", "1799.57"},
		}, false)
		require.Len(t, records, 1, "record is kept alongside the issue")
		require.Len(t, issues, 1)
		assert.Equal(t, constants.SeverityError, issues[0].Severity)
		assert.Equal(t, constants.IssueMissingRequired, issues[0].Kind)
		require.NotNil(t, issues[0].Record)
		assert.Equal(t, records[0].Ref.RecordID, issues[0].Record.RecordID)
	})

	t.Run("unparsable number", func(t *testing.T) {
		records, issues := r.Reconcile(0, 0, []ledger.Row{
			{"2025-09-07", "Cafe", "five", "1799.57"},
		}, false)
		require.Len(t, records, 1)
		require.Len(t, issues, 1)
		assert.Equal(t, constants.SeverityWarning, issues[0].Severity)
		assert.Equal(t, constants.IssueValueParse, issues[0].Kind)

		// The raw text survives even though parsing failed.
		a, _ := records[0].Value("amount")
		assert.Equal(t, "five", a.Text)
		assert.False(t, a.Parsed)
	})
}

func TestReconcileIdempotent(t *testing.T) {
	r := New(bankSchema(ledger.SchemaSourceDocument), nil)

	rows := []ledger.Row{
		{"2025-09-07 08:20:50", "Coffee House Ltd", "-5.00", "1799.57"},
		{"2025-09-08 11:02:13", "Market", "-7.00", "1792.57"},
	}
	first, issues := r.Reconcile(0, 0, rows, false)
	require.Len(t, first, 2)
	assert.Empty(t, issues)

	// Feeding the reconciled texts back through produces identical values.
	again := make([]ledger.Row, len(first))
	for i, rec := range first {
		again[i] = ledger.Row(rec.Texts())
	}
	second, issues := r.Reconcile(0, 0, again, false)
	require.Len(t, second, 2)
	assert.Empty(t, issues)
	for i := range first {
		assert.Equal(t, first[i].Texts(), second[i].Texts())
	}
}

func TestMergeContinuationsOverflow(t *testing.T) {
	rows := []ledger.Row{
		{"2025-09-07", "Coffee", "-5.00", "1799.57"},
		{"", "House", "", "", "trailing"},
	}
	merged := mergeContinuations(rows)
	require.Len(t, merged, 1)
	assert.Equal(t, "Coffee\nHouse", merged[0][1])
	assert.Equal(t, "1799.57\ntrailing", merged[0][3])
}
