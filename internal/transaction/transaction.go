package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bank identifies the statement format a record or parser belongs to.
type Bank string

const (
	BankAmex       Bank = "amex"
	BankWellsFargo Bank = "wells_fargo"
	BankUnknown    Bank = "unknown"
)

var ErrUnknownBank = errors.New("unknown bank type")

// ParseBank maps a bank tag to a Bank. Anything unsupported yields BankUnknown.
func ParseBank(s string) (Bank, error) {
	switch Bank(s) {
	case BankAmex:
		return BankAmex, nil
	case BankWellsFargo:
		return BankWellsFargo, nil
	}

	return BankUnknown, ErrUnknownBank
}

// Record is one parsed statement row. Exactly one of Amex or Wells is set,
// matching Bank.
type Record struct {
	ID          uuid.UUID // Assigned when persisted
	Bank        Bank
	Date        string // Verbatim from the export
	Amount      decimal.Decimal
	Description string
	RawHash     string // Empty until hashed
	CreatedAt   time.Time

	Amex  *AmexFields
	Wells *WellsFields
}

// AmexFields holds the Amex-only columns. Reference is the dedup anchor.
type AmexFields struct {
	CardMember           string
	AccountNumber        string
	ExtendedDetails      *string
	AppearsOnStatementAs *string
	Address              *string
	CityState            *string
	ZipCode              *string
	Country              *string
	Reference            *string
	Category             *string
}

// WellsFields holds the Wells Fargo-only columns. The export has no
// transaction identifier.
type WellsFields struct {
	Status       string
	UnknownField *string
}

// NewAmex builds an Amex record stamped with the current time.
func NewAmex(date string, amount decimal.Decimal, description string, fields AmexFields) *Record {
	return &Record{
		Bank:        BankAmex,
		Date:        date,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Amex:        &fields,
	}
}

// NewWells builds a Wells Fargo record stamped with the current time.
func NewWells(date string, amount decimal.Decimal, description string, fields WellsFields) *Record {
	return &Record{
		Bank:        BankWellsFargo,
		Date:        date,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
		Wells:       &fields,
	}
}

// Reference returns the Amex reference, or "" when absent.
func (r *Record) Reference() string {
	if r.Amex == nil || r.Amex.Reference == nil {
		return ""
	}

	return *r.Amex.Reference
}
