package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // promauto registers collectors on the default registry once
var (
	// httpRequestsTotal counts handled requests by route and status code.
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status code",
	}, []string{"route", "status"})

	// upstreamLatencySeconds measures time until upstream response headers arrive.
	upstreamLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "creditline",
		Subsystem: "upstream",
		Name:      "latency_seconds",
		Help:      "Time until the upstream completion API answered",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45},
	}, []string{"stream", "outcome"})

	// tokensTotal counts metered tokens by direction.
	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "metering",
		Name:      "tokens_total",
		Help:      "Metered tokens by direction (prompt, completion)",
	}, []string{"direction"})

	// ledgerOperationsTotal counts ledger mutations by operation and result.
	ledgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by kind (debit, credit, set) and result",
	}, []string{"operation", "result"})

	// creditsMovedTotal sums balance units moved by operation.
	creditsMovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "ledger",
		Name:      "credits_total",
		Help:      "Balance units debited or credited",
	}, []string{"operation"})

	// settlementsTotal counts chat settlements by pricing source.
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "metering",
		Name:      "settlements_total",
		Help:      "Chat settlements by pricing source (priced, flat)",
	}, []string{"source"})

	// usageDroppedTotal counts usage records that never reached storage.
	usageDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "creditline",
		Subsystem: "usage",
		Name:      "dropped_total",
		Help:      "Usage records dropped because the queue was full or the write failed",
	})
)

// RecordHTTPRequest records a handled request.
func RecordHTTPRequest(route, status string) {
	httpRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordUpstreamLatency records how long the upstream took to answer.
func RecordUpstreamLatency(stream bool, outcome string, seconds float64) {
	label := "false"
	if stream {
		label = "true"
	}
	upstreamLatencySeconds.WithLabelValues(label, outcome).Observe(seconds)
}

// RecordTokens records metered prompt and completion tokens.
// Negative counts are ignored; counters cannot decrease.
func RecordTokens(prompt, completion int64) {
	if prompt > 0 {
		tokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		tokensTotal.WithLabelValues("completion").Add(float64(completion))
	}
}

// RecordLedgerOperation records a ledger mutation and the amount it moved.
func RecordLedgerOperation(operation string, err error, amount float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ledgerOperationsTotal.WithLabelValues(operation, result).Inc()
	if err == nil && amount > 0 {
		creditsMovedTotal.WithLabelValues(operation).Add(amount)
	}
}

// RecordSettlement records whether a settlement used table pricing or the flat unit.
func RecordSettlement(priced bool) {
	source := "flat"
	if priced {
		source = "priced"
	}
	settlementsTotal.WithLabelValues(source).Inc()
}

// RecordUsageDropped records a usage record that could not be stored.
func RecordUsageDropped() {
	usageDroppedTotal.Inc()
}
