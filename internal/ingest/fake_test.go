package ingest_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/guppyfunds/consumer/internal/transaction"
)

// memRepo is an in-memory store with a unique hash per bank.
type memRepo struct {
	mu          sync.Mutex
	rows        map[transaction.Bank]map[string]*transaction.Record
	lookupCalls int
	insertCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[transaction.Bank]map[string]*transaction.Record)}
}

func (m *memRepo) ExistingHashes(_ context.Context, bank transaction.Bank, hashes []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookupCalls++

	found := make(map[string]struct{})

	for _, h := range hashes {
		if _, ok := m.rows[bank][h]; ok {
			found[h] = struct{}{}
		}
	}

	return found, nil
}

func (m *memRepo) InsertMany(_ context.Context, bank transaction.Bank, records []*transaction.Record) (*transaction.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++

	if m.rows[bank] == nil {
		m.rows[bank] = make(map[string]*transaction.Record)
	}

	res := &transaction.WriteResult{}

	for i, r := range records {
		if _, ok := m.rows[bank][r.RawHash]; ok {
			res.WriteErrors = append(res.WriteErrors, transaction.WriteError{
				Index:   i,
				Code:    transaction.CodeDuplicateKey,
				Message: "duplicate key",
			})

			continue
		}

		r.ID = uuid.New()
		m.rows[bank][r.RawHash] = r
		res.InsertedIDs = append(res.InsertedIDs, r.ID.String())
	}

	return res, nil
}

func (m *memRepo) HashExists(_ context.Context, bank transaction.Bank, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.rows[bank][hash]

	return ok, nil
}

func (m *memRepo) Count(_ context.Context, bank transaction.Bank) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.rows[bank])), nil
}

func (m *memRepo) Sample(_ context.Context, bank transaction.Bank, limit int) ([]*transaction.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*transaction.Record

	for _, r := range m.rows[bank] {
		if len(out) == limit {
			break
		}

		out = append(out, r)
	}

	return out, nil
}

func (m *memRepo) Stats(_ context.Context, bank transaction.Bank) (*transaction.TableStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &transaction.TableStats{Rows: int64(len(m.rows[bank]))}, nil
}

func (m *memRepo) Indexes(context.Context, transaction.Bank) ([]transaction.Index, error) {
	return nil, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

func (m *memRepo) calls() (lookups, inserts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lookupCalls, m.insertCalls
}

// blindRepo shares memRepo's rows but never sees existing hashes, like a
// second request whose lookup ran before the first request's insert landed.
type blindRepo struct {
	*memRepo
}

func (blindRepo) ExistingHashes(context.Context, transaction.Bank, []string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
