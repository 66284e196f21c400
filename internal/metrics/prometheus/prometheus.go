package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guppyfunds/consumer/internal/metrics"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	rowsParsed      *prometheus.CounterVec
	rowsSkipped     *prometheus.CounterVec
	dupChecks       *prometheus.CounterVec
	dupCheckLatency *prometheus.HistogramVec
	records         *prometheus.CounterVec
	insertLatency   *prometheus.HistogramVec
	circuitState    *prometheus.GaugeVec
}

// NewCollector creates the collector. Call Register before use.
func NewCollector(namespace string) *Collector {
	return &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_requests_total",
				Help:      "Total number of CSV ingestion requests per bank and outcome",
			},
			[]string{"bank", "outcome"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "End to end ingestion latency per bank",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bank"},
		),
		rowsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_parsed_total",
				Help:      "Total number of CSV rows converted into records",
			},
			[]string{"bank"},
		),
		rowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_skipped_total",
				Help:      "Total number of CSV rows that failed to parse",
			},
			[]string{"bank"},
		),
		dupChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_checks_total",
				Help:      "Total number of batch duplicate checks; failed_open=true when the store errored",
			},
			[]string{"bank", "failed_open"},
		),
		dupCheckLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "duplicate_check_duration_seconds",
				Help:      "Latency of the batch duplicate check",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bank"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of submitted records per bank and result (inserted, duplicate, error)",
			},
			[]string{"bank", "result"},
		),
		insertLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "insert_duration_seconds",
				Help:      "Latency of the bulk insert including duplicate filtering",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"bank"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state per dependency (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}
}

// Register registers all metrics with the given registerer.
func (c *Collector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.requests,
		c.requestLatency,
		c.rowsParsed,
		c.rowsSkipped,
		c.dupChecks,
		c.dupCheckLatency,
		c.records,
		c.insertLatency,
		c.circuitState,
	}

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) RecordPipeline(bank string, outcome metrics.Outcome, duration time.Duration) {
	c.requests.WithLabelValues(bank, string(outcome)).Inc()
	c.requestLatency.WithLabelValues(bank).Observe(duration.Seconds())
}

func (c *Collector) RecordParsed(bank string, parsed, skipped int) {
	c.rowsParsed.WithLabelValues(bank).Add(float64(parsed))
	c.rowsSkipped.WithLabelValues(bank).Add(float64(skipped))
}

func (c *Collector) RecordDuplicateCheck(bank string, failedOpen bool, duration time.Duration) {
	c.dupChecks.WithLabelValues(bank, strconv.FormatBool(failedOpen)).Inc()
	c.dupCheckLatency.WithLabelValues(bank).Observe(duration.Seconds())
}

func (c *Collector) RecordInsertion(bank string, inserted, duplicates, errors int, duration time.Duration) {
	c.records.WithLabelValues(bank, "inserted").Add(float64(inserted))
	c.records.WithLabelValues(bank, "duplicate").Add(float64(duplicates))
	c.records.WithLabelValues(bank, "error").Add(float64(errors))
	c.insertLatency.WithLabelValues(bank).Observe(duration.Seconds())
}

func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(name).Set(float64(state))
}

var _ metrics.Collector = (*Collector)(nil)
