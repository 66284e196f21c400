package query

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guppyfunds/consumer/internal/transaction"
)

type recordResponse struct {
	ID          uuid.UUID        `json:"id"`
	Bank        transaction.Bank `json:"bank"`
	Date        string           `json:"date"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	RawHash     string           `json:"raw_hash,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Amex        *amexResponse    `json:"amex,omitempty"`
	Wells       *wellsResponse   `json:"wells_fargo,omitempty"`
}

type amexResponse struct {
	CardMember           string  `json:"card_member"`
	AccountNumber        string  `json:"account_number"`
	ExtendedDetails      *string `json:"extended_details"`
	AppearsOnStatementAs *string `json:"appears_on_statement_as"`
	Address              *string `json:"address"`
	CityState            *string `json:"city_state"`
	ZipCode              *string `json:"zip_code"`
	Country              *string `json:"country"`
	Reference            *string `json:"reference"`
	Category             *string `json:"category"`
}

type wellsResponse struct {
	Status       string  `json:"status"`
	UnknownField *string `json:"unknown_field"`
}

func toResponse(r *transaction.Record) recordResponse {
	resp := recordResponse{
		ID:          r.ID,
		Bank:        r.Bank,
		Date:        r.Date,
		Amount:      r.Amount,
		Description: r.Description,
		RawHash:     r.RawHash,
		CreatedAt:   r.CreatedAt,
	}

	if r.Amex != nil {
		resp.Amex = &amexResponse{
			CardMember:           r.Amex.CardMember,
			AccountNumber:        r.Amex.AccountNumber,
			ExtendedDetails:      r.Amex.ExtendedDetails,
			AppearsOnStatementAs: r.Amex.AppearsOnStatementAs,
			Address:              r.Amex.Address,
			CityState:            r.Amex.CityState,
			ZipCode:              r.Amex.ZipCode,
			Country:              r.Amex.Country,
			Reference:            r.Amex.Reference,
			Category:             r.Amex.Category,
		}
	}

	if r.Wells != nil {
		resp.Wells = &wellsResponse{
			Status:       r.Wells.Status,
			UnknownField: r.Wells.UnknownField,
		}
	}

	return resp
}

func toResponseList(records []*transaction.Record) []recordResponse {
	resp := make([]recordResponse, len(records))
	for i, r := range records {
		resp[i] = toResponse(r)
	}

	return resp
}
