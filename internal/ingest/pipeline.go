package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guppyfunds/consumer/internal/importer"
	"github.com/guppyfunds/consumer/internal/metrics"
	"github.com/guppyfunds/consumer/internal/table"
	"github.com/guppyfunds/consumer/internal/transaction"
)

const (
	msgUnsupportedFormat = "unable to detect format: supported formats are Amex and Wells Fargo"
	msgNoValidRows       = "no valid transactions parsed"
)

// Detector finds the parser for a table's layout.
type Detector interface {
	ParserFor(t *table.Table) (importer.Parser, bool)
}

// Pipeline runs detect, parse and insert for one uploaded table.
type Pipeline struct {
	detector Detector
	inserter *Inserter
	metrics  metrics.Collector
}

func NewPipeline(detector Detector, inserter *Inserter, collector metrics.Collector) *Pipeline {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	return &Pipeline{detector: detector, inserter: inserter, metrics: collector}
}

// Process ingests t. It always returns a result; a panic in any stage is
// reported as a failed result.
func (p *Pipeline) Process(ctx context.Context, t *table.Table) (res ProcessingResult) {
	start := time.Now()

	if t == nil {
		t = table.New(nil)
	}

	slog.Info("starting csv processing", "rows", t.Len(), "columns", t.Width())

	defer func() {
		if r := recover(); r != nil {
			slog.Error("critical error in csv processing", "panic", r)
			res = ProcessingResult{
				BankType:           transaction.BankUnknown,
				TotalRowsProcessed: t.Len(),
				InsertionResult:    emptyInsertion(),
				Error:              fmt.Sprintf("processing failed: %v", r),
			}
		}

		p.metrics.RecordPipeline(string(res.BankType), outcomeOf(res), time.Since(start))
	}()

	parser, ok := p.detector.ParserFor(t)
	if !ok {
		slog.Warn("bank detection failed, unknown format", "columns", t.Width())

		return ProcessingResult{
			BankType:        transaction.BankUnknown,
			InsertionResult: emptyInsertion(),
			Error:           msgUnsupportedFormat,
		}
	}

	bank := parser.Bank()
	slog.Info("detected bank type", "bank", bank)

	parsed := parser.ParseRows(t)
	p.metrics.RecordParsed(string(bank), len(parsed.Records), len(parsed.Skipped))

	res = ProcessingResult{
		BankType:           bank,
		BankDetected:       true,
		TotalRowsProcessed: parsed.RowsProcessed(),
		SkippedRows:        skippedMessages(parsed.Skipped),
		InsertionResult:    emptyInsertion(),
	}

	if len(parsed.Records) == 0 {
		slog.Warn("parsing produced no valid transactions", "bank", bank, "skipped", len(parsed.Skipped))
		res.Error = msgNoValidRows

		return res
	}

	slog.Info("parsed transactions", "bank", bank, "records", len(parsed.Records), "skipped", len(parsed.Skipped))

	res.ParsingSuccessful = true
	res.InsertionResult = p.inserter.Insert(ctx, parsed.Records, bank)

	slog.Info("csv processing completed",
		"bank", bank,
		"inserted", res.InsertionResult.TotalInserted,
		"duplicates", res.InsertionResult.TotalDuplicates,
		"errors", res.InsertionResult.TotalErrors,
	)

	return res
}

func emptyInsertion() InsertionResult {
	return InsertionResult{
		InsertIDs:    []string{},
		ErrorDetails: []ErrorDetail{},
	}
}

func skippedMessages(skipped []transaction.RowError) []string {
	if len(skipped) == 0 {
		return nil
	}

	out := make([]string, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, s.Error())
	}

	return out
}

func outcomeOf(res ProcessingResult) metrics.Outcome {
	switch {
	case res.ParsingSuccessful:
		return metrics.OutcomeProcessed
	case res.BankDetected:
		return metrics.OutcomeNoValidRows
	case res.Error == msgUnsupportedFormat:
		return metrics.OutcomeUnsupportedFormat
	default:
		return metrics.OutcomeFailed
	}
}
