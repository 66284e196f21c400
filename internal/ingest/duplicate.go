package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guppyfunds/consumer/internal/metrics"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// DuplicateFilter drops records whose hash is already stored, using one
// batch lookup per call.
type DuplicateFilter struct {
	repo    transaction.Repository
	metrics metrics.Collector
}

func NewDuplicateFilter(repo transaction.Repository, collector metrics.Collector) *DuplicateFilter {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	return &DuplicateFilter{repo: repo, metrics: collector}
}

// FilterNew hashes records and returns, in input order, those not yet in the
// bank's store. If the lookup fails the filter fails open and returns every
// record: the unique index still rejects real duplicates at insert time.
func (f *DuplicateFilter) FilterNew(ctx context.Context, records []*transaction.Record, bank transaction.Bank) []*transaction.Record {
	if len(records) == 0 {
		return nil
	}

	transaction.AssignHashes(records)

	existing, err := f.existingHashes(ctx, records, bank)
	if err != nil {
		slog.Warn("duplicate check failed, assuming no duplicates", "bank", bank, "records", len(records), "error", err)
		existing = nil
	}

	fresh := make([]*transaction.Record, 0, len(records))

	for _, r := range records {
		if _, found := existing[r.RawHash]; found {
			continue
		}

		fresh = append(fresh, r)
	}

	slog.Info("duplicate detection",
		"bank", bank,
		"total", len(records),
		"duplicates", len(records)-len(fresh),
		"new", len(fresh),
	)

	return fresh
}

func (f *DuplicateFilter) existingHashes(ctx context.Context, records []*transaction.Record, bank transaction.Bank) (map[string]struct{}, error) {
	start := time.Now()

	existing, err := f.repo.ExistingHashes(ctx, bank, transaction.Hashes(records))
	f.metrics.RecordDuplicateCheck(string(bank), err != nil, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("finding existing hashes: %w", err)
	}

	return existing, nil
}

// ExistsSingle looks up one hash. Diagnostics only.
func (f *DuplicateFilter) ExistsSingle(ctx context.Context, hash string, bank transaction.Bank) (bool, error) {
	exists, err := f.repo.HashExists(ctx, bank, hash)
	if err != nil {
		return false, fmt.Errorf("checking hash: %w", err)
	}

	return exists, nil
}
