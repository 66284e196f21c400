package importer

import (
	"log/slog"

	"github.com/guppyfunds/consumer/internal/importer/amex"
	"github.com/guppyfunds/consumer/internal/importer/wellsfargo"
	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// Detector picks the parser for a table. The first parser whose CanParse
// matches wins, so order matters.
type Detector struct {
	parsers []Parser
}

// NewDetector returns a detector over the supported banks: Amex, then
// Wells Fargo.
func NewDetector() *Detector {
	return &Detector{
		parsers: []Parser{
			amex.New(),
			wellsfargo.New(),
		},
	}
}

// Detect returns the bank whose layout matches t, or BankUnknown.
func (d *Detector) Detect(t *table.Table) transaction.Bank {
	p, ok := d.ParserFor(t)
	if !ok {
		slog.Warn("no parser matched csv layout", "columns", t.Width(), "header", t.Header)
		return transaction.BankUnknown
	}

	slog.Info("detected bank format", "bank", p.Bank())

	return p.Bank()
}

// ParserFor returns the first parser that accepts t.
func (d *Detector) ParserFor(t *table.Table) (Parser, bool) {
	for _, p := range d.parsers {
		if p.CanParse(t) {
			return p, true
		}

		slog.Debug("parser rejected csv layout", "bank", p.Bank())
	}

	return nil, false
}
