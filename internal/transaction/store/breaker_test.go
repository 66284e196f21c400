package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/guppyfunds/consumer/internal/transaction"
	"github.com/guppyfunds/consumer/internal/transaction/store"
)

func newBreaker(repo transaction.Repository) *store.Breaker {
	return store.NewBreaker(repo, store.BreakerConfig{
		Name:                "postgres",
		MaxRequests:         1,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}, nil)
}

func TestBreaker_PassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	b := newBreaker(repo)

	repo.EXPECT().
		ExistingHashes(gomock.Any(), transaction.BankAmex, []string{"h1"}).
		Return(map[string]struct{}{"h1": {}}, nil)
	repo.EXPECT().
		InsertMany(gomock.Any(), transaction.BankAmex, gomock.Len(0)).
		Return(&transaction.WriteResult{InsertedIDs: []string{}}, nil)
	repo.EXPECT().Count(gomock.Any(), transaction.BankWellsFargo).Return(int64(7), nil)
	repo.EXPECT().Stats(gomock.Any(), transaction.BankAmex).Return(&transaction.TableStats{Rows: 7, IndexCount: 5}, nil)
	repo.EXPECT().Indexes(gomock.Any(), transaction.BankAmex).Return([]transaction.Index{{Name: "amex_raw_pkey"}}, nil)

	found, err := b.ExistingHashes(context.Background(), transaction.BankAmex, []string{"h1"})
	require.NoError(t, err)
	assert.Contains(t, found, "h1")

	res, err := b.InsertMany(context.Background(), transaction.BankAmex, []*transaction.Record{})
	require.NoError(t, err)
	assert.Zero(t, res.InsertedCount())

	n, err := b.Count(context.Background(), transaction.BankWellsFargo)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	st, err := b.Stats(context.Background(), transaction.BankAmex)
	require.NoError(t, err)
	assert.EqualValues(t, 5, st.IndexCount)

	idx, err := b.Indexes(context.Background(), transaction.BankAmex)
	require.NoError(t, err)
	assert.Equal(t, "amex_raw_pkey", idx[0].Name)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	b := newBreaker(repo)

	dbErr := errors.New("connection refused")
	repo.EXPECT().
		ExistingHashes(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dbErr).
		Times(2)

	for range 2 {
		_, err := b.ExistingHashes(context.Background(), transaction.BankAmex, []string{"h"})
		assert.ErrorIs(t, err, dbErr)
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())

	// Rejected without reaching the store.
	_, err := b.InsertMany(context.Background(), transaction.BankAmex, nil)
	assert.ErrorIs(t, err, store.ErrCircuitOpen)
}

func TestBreaker_UnknownBankDoesNotTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	b := newBreaker(repo)

	repo.EXPECT().
		HashExists(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(false, transaction.ErrUnknownBank).
		Times(3)

	for range 3 {
		_, err := b.HashExists(context.Background(), transaction.BankUnknown, "h")
		assert.ErrorIs(t, err, transaction.ErrUnknownBank)
	}

	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PingBypassesOpenCircuit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	b := newBreaker(repo)

	repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("timeout")).Times(2)
	repo.EXPECT().Ping(gomock.Any()).Return(nil)

	for range 2 {
		_, _ = b.Count(context.Background(), transaction.BankAmex)
	}

	require.Equal(t, gobreaker.StateOpen, b.State())
	assert.NoError(t, b.Ping(context.Background()))
}
