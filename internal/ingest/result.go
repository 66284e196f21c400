package ingest

import (
	"time"

	"github.com/guppyfunds/consumer/internal/transaction"
)

// InsertionResult accounts for every submitted record:
// TotalSubmitted = TotalInserted + TotalDuplicates + TotalErrors.
type InsertionResult struct {
	TotalSubmitted   int           `json:"total_submitted"`
	TotalInserted    int           `json:"total_inserted"`
	TotalDuplicates  int           `json:"total_duplicates"`
	TotalErrors      int           `json:"total_errors"`
	InsertIDs        []string      `json:"insert_ids"`
	ErrorDetails     []ErrorDetail `json:"error_details"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// ErrorDetail is a store failure for one record, or a synthetic entry for a
// failure of the whole write (Index is nil then).
type ErrorDetail struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Index   *int   `json:"index,omitempty"`
}

// ProcessingResult is the outcome of one ingestion request. It is always
// returned; failures are described by the flags and Error.
type ProcessingResult struct {
	BankType           transaction.Bank `json:"bank_type"`
	BankDetected       bool             `json:"bank_detected"`
	ParsingSuccessful  bool             `json:"parsing_successful"`
	TotalRowsProcessed int              `json:"total_rows_processed"`
	SkippedRows        []string         `json:"skipped_rows,omitempty"`
	InsertionResult    InsertionResult  `json:"insertion_result"`
	Error              string           `json:"error_message,omitempty"`
}

const (
	codeCriticalFailure   = "critical_failure"
	codeBulkInsertFailure = "bulk_insert_failure"
)

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
