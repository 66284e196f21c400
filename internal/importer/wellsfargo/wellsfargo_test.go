package wellsfargo_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guppyfunds/consumer/internal/importer/wellsfargo"
	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

func decode(t *testing.T, csv string) *table.Table {
	t.Helper()

	tbl, err := table.Decode(strings.NewReader(csv))
	require.NoError(t, err)

	return tbl
}

func TestParser_CanParse(t *testing.T) {
	tests := []struct {
		name  string
		table *table.Table
		want  bool
	}{
		{
			name:  "Quoted Export",
			table: decode(t, `"06/06/2025","-45.00","*","","GROCERY STORE"`+"\n"),
			want:  true,
		},
		{
			name:  "Literal Quote In Cell",
			table: table.New([][]string{{`"6/6/2025"`, "-45.00", "*", "", "GROCERY"}}),
			want:  true,
		},
		{
			name:  "Unquoted Short Date",
			table: decode(t, "6/6/2025,-45.00,*,,GROCERY\n"),
			want:  false,
		},
		{
			name:  "No Slash",
			table: decode(t, "2025-06-06,-45.00,*,,GROCERY\n"),
			want:  false,
		},
		{
			name:  "Wrong Width",
			table: decode(t, `"06/06/2025","-45.00","*","GROCERY"`+"\n"),
			want:  false,
		},
		{
			name:  "Empty Table",
			table: table.New(nil),
			want:  false,
		},
	}

	p := wellsfargo.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CanParse(tt.table))
		})
	}
}

func TestParser_ParseRows(t *testing.T) {
	csv := `"06/06/2025","-45.00","*","","GROCERY STORE #12"
"06/07/2025","1200.00","*","1234","PAYROLL ACME INC"
`

	res := wellsfargo.New().ParseRows(decode(t, csv))
	require.Empty(t, res.Skipped)
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, transaction.BankWellsFargo, first.Bank)
	assert.Equal(t, "06/06/2025", first.Date)
	assert.True(t, decimal.RequireFromString("-45").Equal(first.Amount))
	assert.Equal(t, "GROCERY STORE #12", first.Description)
	require.NotNil(t, first.Wells)
	assert.Equal(t, "*", first.Wells.Status)
	assert.Nil(t, first.Wells.UnknownField)
	assert.Nil(t, first.Amex)

	second := res.Records[1]
	require.NotNil(t, second.Wells.UnknownField)
	assert.Equal(t, "1234", *second.Wells.UnknownField)
}

func TestParser_StripsLiteralQuotes(t *testing.T) {
	tbl := table.New([][]string{
		{`"06/06/2025"`, "-45.00", "*", "", `"GROCERY STORE"`},
	})

	res := wellsfargo.New().ParseRows(tbl)
	require.Len(t, res.Records, 1)

	assert.Equal(t, "06/06/2025", res.Records[0].Date)
	assert.Equal(t, "GROCERY STORE", res.Records[0].Description)
}

func TestParser_SkipsBadRows(t *testing.T) {
	csv := `"06/06/2025","-45.00","*","","GROCERY"
"06/07/2025","n/a","*","","BROKEN"
"06/08/2025","-3.00"
"06/09/2025","-9.99","*","","GAS"
`

	res := wellsfargo.New().ParseRows(decode(t, csv))
	require.Len(t, res.Records, 2)
	require.Len(t, res.Skipped, 2)

	assert.Equal(t, 2, res.Skipped[0].Row)
	assert.Equal(t, 3, res.Skipped[1].Row)
	assert.ErrorIs(t, res.Skipped[1], wellsfargo.ErrMissingField)
	assert.Equal(t, 4, res.RowsProcessed())
}
