package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const keySeparator = "|"

// Hash returns the dedup digest for r. The composite key depends on the bank:
//
//	amex:        date|amount|reference
//	wells_fargo: date|amount|lower(trim(description))
//
// Hash panics on a record without a supported bank tag.
func Hash(r *Record) string {
	var key string

	switch r.Bank {
	case BankAmex:
		key = strings.Join([]string{r.Date, r.Amount.String(), r.Reference()}, keySeparator)
	case BankWellsFargo:
		desc := strings.ToLower(strings.TrimSpace(r.Description))
		key = strings.Join([]string{r.Date, r.Amount.String(), desc}, keySeparator)
	default:
		panic(fmt.Sprintf("hash: %v: %q", ErrUnknownBank, r.Bank))
	}

	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// AssignHashes sets RawHash on every record that does not have one yet.
// Already hashed records keep their hash.
func AssignHashes(records []*Record) []*Record {
	for _, r := range records {
		if r.RawHash != "" {
			continue
		}

		r.RawHash = Hash(r)
	}

	return records
}

// Hashes collects the RawHash of each record, in order.
func Hashes(records []*Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.RawHash)
	}

	return out
}
