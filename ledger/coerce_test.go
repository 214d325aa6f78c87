package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbug/fiscai/constants"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", "1799.57", "1799.57", true},
		{"negative", "-5.00", "-5", true},
		{"thousands separators", "1,799,000.57", "1799000.57", true},
		{"embedded newline", "1,7\n99.57", "1799.57", true},
		{"leading plus", "+7.00", "7", true},
		{"not a number", "abc", "", false},
		{"comma not thousands", "a,b", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseNumber(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", d, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		layout string
	}{
		{"2025-09-07 08:20:50", "2006-01-02 15:04:05"},
		{"2025-09-07", "2006-01-02"},
		{"2025/09/07", "2006/01/02"},
		{"2025年09月07日", "2006年01月02日"},
		{"2025-09-07\n08:20:50", "2006-01-02 15:04:05"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, layout, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.layout, layout)
		})
	}

	t.Run("unknown layout", func(t *testing.T) {
		_, _, err := ParseDate("September the 7th")
		assert.Error(t, err)
	})
}

func TestCollapseNewlines(t *testing.T) {
	assert.Equal(t, "2025-09-07 08:20:50", CollapseNewlines("2025-09-07\n08:20:50"))
	assert.Equal(t, "a b c", CollapseNewlines("a\nb \n c"))
	// interior intentional whitespace is untouched
	assert.Equal(t, "a  b", CollapseNewlines(" a  b "))
}

func TestMaskedID(t *testing.T) {
	assert.True(t, IsMaskedID("6222****1234"))
	assert.True(t, IsMaskedID(" 6222********99 "))
	assert.False(t, IsMaskedID("6222***1234"), "needs four or more mask characters")
	assert.False(t, IsMaskedID("****1234"))
	assert.True(t, HasMaskedID("account 6222****1234 (savings)"))
}

func TestCoerce(t *testing.T) {
	t.Run("number keeps raw verbatim", func(t *testing.T) {
		v := Coerce("1,799.57", constants.ColumnNumber)
		assert.Equal(t, "1,799.57", v.Raw)
		assert.Equal(t, "1799.57", v.Text)
		require.True(t, v.Parsed)
		assert.True(t, v.Number.Equal(decimal.RequireFromString("1799.57")))
	})

	t.Run("date collapses split cell", func(t *testing.T) {
		v := Coerce("2025-09-07\n08:20:50", constants.ColumnDate)
		assert.Equal(t, "2025-09-07 08:20:50", v.Text)
		assert.True(t, v.Parsed)
	})

	t.Run("masked id preserved", func(t *testing.T) {
		v := Coerce("6222****1234", constants.ColumnMaskedID)
		assert.Equal(t, "6222****1234", v.Text)
		assert.True(t, v.Parsed)
	})

	t.Run("string collapses line breaks only", func(t *testing.T) {
		v := Coerce("Coffee\nHouse  Ltd", constants.ColumnString)
		assert.Equal(t, "Coffee House  Ltd", v.Text)
	})
}
