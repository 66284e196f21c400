package store_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guppyfunds/consumer/internal/database"
	"github.com/guppyfunds/consumer/internal/transaction"
	"github.com/guppyfunds/consumer/internal/transaction/store"
)

// newIntegrationStore creates a pair of throwaway tables in the database at
// DATABASE_URL and drops them when the test ends.
func newIntegrationStore(t *testing.T) (*store.Store, store.Tables) {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := database.New(ctx, url, database.PoolConfig{MaxConns: 4})
	require.NoError(t, err)

	suffix := time.Now().UnixNano()
	tables := store.Tables{
		Amex:  fmt.Sprintf("amex_it_%d", suffix),
		Wells: fmt.Sprintf("wells_it_%d", suffix),
	}

	t.Cleanup(func() {
		dropTables(t, pool, tables)
		pool.Close()
	})

	require.NoError(t, database.EnsureSchema(ctx, pool, tables.Amex, tables.Wells))

	return store.New(pool, tables), tables
}

func dropTables(t *testing.T, pool *pgxpool.Pool, tables store.Tables) {
	t.Helper()

	for _, name := range []string{tables.Amex, tables.Wells} {
		_, err := pool.Exec(context.Background(), `DROP TABLE IF EXISTS `+pgx.Identifier{name}.Sanitize())
		assert.NoError(t, err)
	}
}

func amexRecord(ref, amount string) *transaction.Record {
	r := transaction.NewAmex("06/01/2025", decimal.RequireFromString(amount), "COFFEE SHOP "+ref, transaction.AmexFields{
		CardMember:    "JANE DOE",
		AccountNumber: "-12345",
		Reference:     &ref,
	})
	r.RawHash = transaction.Hash(r)

	return r
}

func wellsRecord(desc, amount string) *transaction.Record {
	r := transaction.NewWells("06/06/2025", decimal.RequireFromString(amount), desc, transaction.WellsFields{Status: "*"})
	r.RawHash = transaction.Hash(r)

	return r
}

func writeErrorIndexes(t *testing.T, res *transaction.WriteResult) []int {
	t.Helper()

	indexes := make([]int, 0, len(res.WriteErrors))

	for _, we := range res.WriteErrors {
		assert.True(t, we.IsDuplicateKey(), "write error %d has code %s", we.Index, we.Code)
		indexes = append(indexes, we.Index)
	}

	return indexes
}

func TestStore_InsertManyReportsDuplicatesByIndex(t *testing.T) {
	s, _ := newIntegrationStore(t)
	ctx := context.Background()

	first := []*transaction.Record{
		amexRecord("R1", "4.50"),
		amexRecord("R2", "12.00"),
		amexRecord("R3", "-7.25"),
	}

	res, err := s.InsertMany(ctx, transaction.BankAmex, first)
	require.NoError(t, err)
	assert.Equal(t, 3, res.InsertedCount())
	assert.Empty(t, res.WriteErrors)

	second := []*transaction.Record{
		amexRecord("R4", "1.00"),
		amexRecord("R2", "12.00"),
		amexRecord("R5", "2.00"),
		amexRecord("R1", "4.50"),
	}

	res, err = s.InsertMany(ctx, transaction.BankAmex, second)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InsertedCount())
	assert.Equal(t, []string{second[0].ID.String(), second[2].ID.String()}, res.InsertedIDs)
	assert.Equal(t, []int{1, 3}, writeErrorIndexes(t, res))

	count, err := s.Count(ctx, transaction.BankAmex)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestStore_InsertManyDuplicateWithinBatch(t *testing.T) {
	s, _ := newIntegrationStore(t)
	ctx := context.Background()

	batch := []*transaction.Record{
		wellsRecord("GROCERY STORE", "-45.00"),
		wellsRecord("  grocery store ", "-45.00"),
		wellsRecord("PAYROLL", "1500.00"),
	}

	res, err := s.InsertMany(ctx, transaction.BankWellsFargo, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, res.InsertedCount())
	assert.Equal(t, []int{1}, writeErrorIndexes(t, res))
}

func TestStore_Queries(t *testing.T) {
	s, tables := newIntegrationStore(t)
	ctx := context.Background()

	stored := []*transaction.Record{amexRecord("Q1", "3.00"), amexRecord("Q2", "9.99")}

	_, err := s.InsertMany(ctx, transaction.BankAmex, stored)
	require.NoError(t, err)

	found, err := s.ExistingHashes(ctx, transaction.BankAmex, []string{stored[0].RawHash, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{stored[0].RawHash: {}}, found)

	ok, err := s.HashExists(ctx, transaction.BankAmex, stored[1].RawHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HashExists(ctx, transaction.BankWellsFargo, stored[1].RawHash)
	require.NoError(t, err)
	assert.False(t, ok)

	sample, err := s.Sample(ctx, transaction.BankAmex, 10)
	require.NoError(t, err)
	require.Len(t, sample, 2)

	for _, r := range sample {
		require.NotNil(t, r.Amex)
		assert.Equal(t, "JANE DOE", r.Amex.CardMember)
		assert.Equal(t, transaction.Hash(r), r.RawHash)
	}

	st, err := s.Stats(ctx, transaction.BankAmex)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Rows)
	assert.EqualValues(t, 5, st.IndexCount)
	assert.Positive(t, st.TotalBytes)
	assert.Positive(t, st.AvgRowBytes)

	indexes, err := s.Indexes(ctx, transaction.BankWellsFargo)
	require.NoError(t, err)

	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}

	assert.Len(t, names, 4)
	assert.Contains(t, names, tables.Wells+"_pkey")
	assert.Contains(t, names, tables.Wells+"_raw_hash_idx")

	require.NoError(t, s.Ping(ctx))
}
