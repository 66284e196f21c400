package wellsfargo

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// The export has no header row; fields are positional.
const (
	fieldDate = iota
	fieldAmount
	fieldStatus
	fieldUnknown
	fieldDescription
	numFields
)

var fieldNames = [numFields]string{"date", "amount", "status", "unknown_field", "description"}

var ErrMissingField = errors.New("missing required field")

// Parser reads the Wells Fargo account activity export: five unnamed,
// quoted columns with a MM/DD/YYYY date first.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Bank() transaction.Bank {
	return transaction.BankWellsFargo
}

// CanParse requires exactly five columns and a first cell that looks like a
// quoted MM/DD/YYYY date. Unquoted dates shorter than ten characters
// (6/6/2025) do not match.
func (p *Parser) CanParse(t *table.Table) bool {
	if t.Width() != numFields {
		return false
	}

	records := t.Records()
	if len(records) == 0 || len(records[0]) == 0 {
		return false
	}

	first := records[0][fieldDate]

	return strings.Contains(first, "/") && (strings.Contains(first, `"`) || len(first) == 10)
}

// ParseRows reads every record, the first line included.
func (p *Parser) ParseRows(t *table.Table) transaction.ParseResult {
	var res transaction.ParseResult

	for i, row := range t.Records() {
		rec, err := parseRow(row)
		if err != nil {
			rowErr := transaction.RowError{Row: i + 1, Err: err}
			slog.Warn("skipping wells fargo row", "row", rowErr.Row, "error", err)
			res.Skipped = append(res.Skipped, rowErr)

			continue
		}

		res.Records = append(res.Records, rec)
	}

	return res
}

func parseRow(row []string) (*transaction.Record, error) {
	if len(row) < numFields {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, fieldNames[len(row)])
	}

	date := unquote(row[fieldDate])
	if date == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, fieldNames[fieldDate])
	}

	rawAmount := strings.TrimSpace(row[fieldAmount])

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}

	var unknown *string
	if v, ok := table.Cell(row, fieldUnknown); ok {
		unknown = &v
	}

	return transaction.NewWells(date, amount, unquote(row[fieldDescription]), transaction.WellsFields{
		Status:       strings.TrimSpace(row[fieldStatus]),
		UnknownField: unknown,
	}), nil
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}
