package transaction

import (
	"context"
)

// CodeDuplicateKey is the SQLSTATE for a unique constraint violation.
const CodeDuplicateKey = "23505"

//go:generate mockgen -source=repository.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// ExistingHashes returns the subset of hashes already stored for bank,
	// in a single round trip.
	ExistingHashes(ctx context.Context, bank Bank, hashes []string) (map[string]struct{}, error)
	// InsertMany attempts every record, continuing past per-record failures.
	// A non-nil error means the write as a whole failed.
	InsertMany(ctx context.Context, bank Bank, records []*Record) (*WriteResult, error)
	HashExists(ctx context.Context, bank Bank, hash string) (bool, error)

	Count(ctx context.Context, bank Bank) (int64, error)
	Sample(ctx context.Context, bank Bank, limit int) ([]*Record, error)
	Stats(ctx context.Context, bank Bank) (*TableStats, error)
	Indexes(ctx context.Context, bank Bank) ([]Index, error)
	Ping(ctx context.Context) error
}

// TableStats sizes one bank's table.
type TableStats struct {
	Rows        int64
	TotalBytes  int64 // Table, indexes and toast
	IndexCount  int64
	AvgRowBytes int64
}

// Index is one index on a bank's table.
type Index struct {
	Name       string
	Definition string
}

// WriteResult reports the outcome of an unordered bulk insert.
type WriteResult struct {
	InsertedIDs []string
	WriteErrors []WriteError
}

// WriteError describes one record the store refused. Index points into the
// submitted batch.
type WriteError struct {
	Index   int
	Code    string
	Message string
}

func (e WriteError) IsDuplicateKey() bool {
	return e.Code == CodeDuplicateKey
}

func (r *WriteResult) InsertedCount() int {
	if r == nil {
		return 0
	}

	return len(r.InsertedIDs)
}
