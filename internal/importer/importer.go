package importer

import (
	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// Parser recognizes and reads one bank's CSV export layout.
type Parser interface {
	// CanParse inspects only the column layout and the first data row.
	CanParse(t *table.Table) bool
	Bank() transaction.Bank
	// ParseRows converts every data row it can. Rows that fail are reported
	// in the result's Skipped list and never abort the batch.
	ParseRows(t *table.Table) transaction.ParseResult
}
