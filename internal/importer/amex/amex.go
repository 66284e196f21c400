package amex

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

const (
	colDate        = "Date"
	colDescription = "Description"
	colCardMember  = "Card Member"
	colAccount     = "Account #"
	colAmount      = "Amount"
	colExtended    = "Extended Details"
	colStatementAs = "Appears On Your Statement As"
	colAddress     = "Address"
	colCityState   = "City/State"
	colZip         = "Zip Code"
	colCountry     = "Country"
	colReference   = "Reference"
	colCategory    = "Category"
	minColumns     = 10
)

var ErrMissingField = errors.New("missing required field")

// Parser reads the Amex activity export, which has a header row and 13
// named columns.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Bank() transaction.Bank {
	return transaction.BankAmex
}

// CanParse matches on "Card Member" and "Reference", which no other
// supported export has.
func (p *Parser) CanParse(t *table.Table) bool {
	if t.Width() < minColumns {
		return false
	}

	return t.HasColumns(colCardMember, colReference)
}

func (p *Parser) ParseRows(t *table.Table) transaction.ParseResult {
	cols := indexColumns(t)

	var res transaction.ParseResult

	for i, row := range t.Rows {
		rec, err := parseRow(cols, row)
		if err != nil {
			rowErr := transaction.RowError{Row: i + 1, Err: err}
			slog.Warn("skipping amex row", "row", rowErr.Row, "error", err)
			res.Skipped = append(res.Skipped, rowErr)

			continue
		}

		res.Records = append(res.Records, rec)
	}

	return res
}

// columns maps each known header to its position, -1 when absent.
type columns map[string]int

func indexColumns(t *table.Table) columns {
	names := []string{
		colDate, colDescription, colCardMember, colAccount, colAmount,
		colExtended, colStatementAs, colAddress, colCityState, colZip,
		colCountry, colReference, colCategory,
	}

	cols := make(columns, len(names))
	for _, n := range names {
		cols[n] = t.Index(n)
	}

	return cols
}

func (c columns) value(row []string, name string) string {
	v, _ := table.Cell(row, c[name])
	return v
}

// optional returns nil for a missing or blank cell.
func (c columns) optional(row []string, name string) *string {
	v, ok := table.Cell(row, c[name])
	if !ok {
		return nil
	}

	return &v
}

func parseRow(cols columns, row []string) (*transaction.Record, error) {
	date, ok := table.Cell(row, cols[colDate])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, colDate)
	}

	rawAmount, ok := table.Cell(row, cols[colAmount])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, colAmount)
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}

	return transaction.NewAmex(date, amount, cols.value(row, colDescription), transaction.AmexFields{
		CardMember:           cols.value(row, colCardMember),
		AccountNumber:        cols.value(row, colAccount),
		ExtendedDetails:      cols.optional(row, colExtended),
		AppearsOnStatementAs: cols.optional(row, colStatementAs),
		Address:              cols.optional(row, colAddress),
		CityState:            cols.optional(row, colCityState),
		ZipCode:              cols.optional(row, colZip),
		Country:              cols.optional(row, colCountry),
		Reference:            cols.optional(row, colReference),
		Category:             cols.optional(row, colCategory),
	}), nil
}
