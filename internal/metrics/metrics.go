package metrics

import (
	"time"
)

// Collector records ingestion pipeline metrics. Implementations export them
// to a backend such as Prometheus.
type Collector interface {
	// Pipeline outcome per request
	RecordPipeline(bank string, outcome Outcome, duration time.Duration)

	// Parsing
	RecordParsed(bank string, parsed, skipped int)

	// Duplicate check against the store
	RecordDuplicateCheck(bank string, failedOpen bool, duration time.Duration)

	// Bulk insert
	RecordInsertion(bank string, inserted, duplicates, errors int, duration time.Duration)

	// Store circuit breaker
	RecordCircuitState(name string, state CircuitState)
}

// Outcome is the terminal state of one ingestion request.
type Outcome string

const (
	OutcomeProcessed         Outcome = "processed"
	OutcomeUnsupportedFormat Outcome = "unsupported_format"
	OutcomeNoValidRows       Outcome = "no_valid_rows"
	OutcomeFailed            Outcome = "failed"
)

// CircuitState mirrors the breaker states as gauge values.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitHalfOpen
	CircuitOpen
)

// NoOpCollector discards everything. It is the default when metrics are
// not wired.
type NoOpCollector struct{}

func (NoOpCollector) RecordPipeline(bank string, outcome Outcome, duration time.Duration) {}

func (NoOpCollector) RecordParsed(bank string, parsed, skipped int) {}

func (NoOpCollector) RecordDuplicateCheck(bank string, failedOpen bool, duration time.Duration) {}

func (NoOpCollector) RecordInsertion(bank string, inserted, duplicates, errors int, duration time.Duration) {
}

func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
