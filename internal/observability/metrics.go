// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	ChunkQueriesTotal  prometheus.Counter
	RangeSplitsTotal   prometheus.Counter
	SkippedRangesTotal prometheus.Counter
	EventsScanned      *prometheus.CounterVec
	ScanDuration       prometheus.Histogram

	// Ledger metrics
	LedgerOpsTotal   *prometheus.CounterVec
	LedgerOpFailures *prometheus.CounterVec

	// Treasury metrics
	PaybacksTotal  prometheus.Counter
	DividendsTotal prometheus.Counter
	USDCPaidOut    prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "erc1155_treasury_lab"
	}

	return &Metrics{
		ChunkQueriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "chunk_queries_total",
			Help:      "Total number of log range queries issued",
		}),
		RangeSplitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "range_splits_total",
			Help:      "Total number of chunk-size reductions after a range rejection",
		}),
		SkippedRangesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "skipped_ranges_total",
			Help:      "Total number of block sub-ranges dropped as unretrievable",
		}),
		EventsScanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "events_total",
			Help:      "Total number of transfer events reconstructed by kind",
		}, []string{"kind"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of full scan runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		LedgerOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by kind",
		}, []string{"operation"}),
		LedgerOpFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_failures_total",
			Help:      "Total number of failed ledger operations by kind",
		}, []string{"operation"}),
		PaybacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "paybacks_total",
			Help:      "Total number of completed buy-backs",
		}),
		DividendsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "dividends_total",
			Help:      "Total number of dividends paid",
		}),
		USDCPaidOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "treasury",
			Name:      "usdc_paid_out_units_total",
			Help:      "Total USDC paid out in 6-decimal units",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "Latency of Ethereum RPC calls by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

var (
	defaultOnce sync.Once

	// DefaultMetrics is the process-wide metrics instance.
	DefaultMetrics *Metrics
)

// Default returns the process-wide metrics instance, creating it on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		DefaultMetrics = NewMetrics("")
	})
	return DefaultMetrics
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScan records the outcome of one scan run.
func RecordScan(chunkQueries, rangeSplits, skippedRanges int, durationSeconds float64) {
	m := Default()
	m.ChunkQueriesTotal.Add(float64(chunkQueries))
	m.RangeSplitsTotal.Add(float64(rangeSplits))
	m.SkippedRangesTotal.Add(float64(skippedRanges))
	m.ScanDuration.Observe(durationSeconds)
}

// RecordEventScanned increments the scanned event counter for a kind.
func RecordEventScanned(kind string) {
	Default().EventsScanned.WithLabelValues(kind).Inc()
}

// RecordLedgerOp records a ledger operation outcome.
func RecordLedgerOp(operation string, err error) {
	m := Default()
	m.LedgerOpsTotal.WithLabelValues(operation).Inc()
	if err != nil {
		m.LedgerOpFailures.WithLabelValues(operation).Inc()
	}
}

// RecordPayback records a completed buy-back.
func RecordPayback(usdcUnits uint64) {
	m := Default()
	m.PaybacksTotal.Inc()
	m.USDCPaidOut.Add(float64(usdcUnits))
}

// RecordDividend records a paid dividend.
func RecordDividend(usdcUnits uint64) {
	m := Default()
	m.DividendsTotal.Inc()
	m.USDCPaidOut.Add(float64(usdcUnits))
}
