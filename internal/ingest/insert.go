package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guppyfunds/consumer/internal/metrics"
	"github.com/guppyfunds/consumer/internal/transaction"
)

// Inserter persists a batch of records after filtering known duplicates.
// It never fails: every outcome is reported through InsertionResult.
type Inserter struct {
	repo    transaction.Repository
	filter  *DuplicateFilter
	metrics metrics.Collector
}

func NewInserter(repo transaction.Repository, filter *DuplicateFilter, collector metrics.Collector) *Inserter {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	return &Inserter{repo: repo, filter: filter, metrics: collector}
}

// Insert filters records against the store and bulk-inserts the rest in one
// unordered write.
func (i *Inserter) Insert(ctx context.Context, records []*transaction.Record, bank transaction.Bank) (res InsertionResult) {
	start := time.Now()
	submitted := len(records)

	slog.Info("starting bulk insertion", "bank", bank, "records", submitted)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("critical error in bulk insertion", "bank", bank, "panic", r)
			res = criticalResult(submitted, fmt.Sprint(r), start)
		}

		i.metrics.RecordInsertion(string(bank), res.TotalInserted, res.TotalDuplicates, res.TotalErrors, time.Since(start))
	}()

	fresh := i.filter.FilterNew(ctx, records, bank)

	res = InsertionResult{
		TotalSubmitted:  submitted,
		TotalDuplicates: submitted - len(fresh),
		InsertIDs:       []string{},
		ErrorDetails:    []ErrorDetail{},
	}

	if len(fresh) == 0 {
		slog.Info("no new records to insert after duplicate filtering", "bank", bank)
		res.ProcessingTimeMs = elapsedMs(start)

		return res
	}

	written, err := i.repo.InsertMany(ctx, bank, fresh)
	if err != nil {
		slog.Error("bulk insert failed", "bank", bank, "records", len(fresh), "error", err)
		res.TotalErrors = len(fresh)
		res.ErrorDetails = append(res.ErrorDetails, ErrorDetail{
			Message: err.Error(),
			Code:    codeBulkInsertFailure,
		})
		res.ProcessingTimeMs = elapsedMs(start)

		return res
	}

	if written == nil {
		written = &transaction.WriteResult{}
	}

	res.TotalInserted = written.InsertedCount()
	res.InsertIDs = append(res.InsertIDs, written.InsertedIDs...)

	reconcile(&res, written.WriteErrors)

	if len(written.WriteErrors) > 0 {
		slog.Warn("bulk write partial failure",
			"bank", bank,
			"inserted", res.TotalInserted,
			"duplicates", res.TotalDuplicates,
			"errors", res.TotalErrors,
		)
	}

	slog.Info("bulk insertion completed",
		"bank", bank,
		"inserted", res.TotalInserted,
		"duplicates", res.TotalDuplicates,
		"errors", res.TotalErrors,
	)

	res.ProcessingTimeMs = elapsedMs(start)

	return res
}

// reconcile classifies per-record write errors. A duplicate key means a
// concurrent request stored the same hash between our check and our write.
func reconcile(res *InsertionResult, writeErrors []transaction.WriteError) {
	for _, we := range writeErrors {
		if we.IsDuplicateKey() {
			res.TotalDuplicates++
			continue
		}

		res.TotalErrors++
		res.ErrorDetails = append(res.ErrorDetails, ErrorDetail{
			Message: we.Message,
			Code:    we.Code,
			Index:   new(we.Index),
		})
	}
}

func criticalResult(submitted int, msg string, start time.Time) InsertionResult {
	return InsertionResult{
		TotalSubmitted: submitted,
		TotalErrors:    submitted,
		InsertIDs:      []string{},
		ErrorDetails: []ErrorDetail{{
			Message: msg,
			Code:    codeCriticalFailure,
		}},
		ProcessingTimeMs: elapsedMs(start),
	}
}
