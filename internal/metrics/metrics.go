// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bilancio"

// Advice outcomes.
const (
	OutcomeOK                = "ok"
	OutcomeMissingCredential = "missing_credential"
	OutcomeTransportError    = "transport_error"
	OutcomeBusy              = "busy"
)

type Metrics struct {
	TransactionsAdded *prometheus.CounterVec
	LedgerResets      prometheus.Counter
	LedgerSize        prometheus.Gauge
	AdviceRequests    *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	MirrorOperations  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransactionsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_added_total",
			Help:      "Transactions added, by type.",
		}, []string{"type"}),
		LedgerResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_resets_total",
			Help:      "Completed ledger resets.",
		}),
		LedgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_transactions",
			Help:      "Transactions currently in the ledger.",
		}),
		AdviceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advice_requests_total",
			Help:      "Advice requests, by outcome.",
		}, []string{"outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_published_total",
			Help:      "Ledger events handed to the broker, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		MirrorOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_operations_total",
			Help:      "Spreadsheet mirror operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.TransactionsAdded,
			m.LedgerResets,
			m.LedgerSize,
			m.AdviceRequests,
			m.EventsPublished,
			m.MirrorOperations,
		)
	}
	return m
}

// Outcome maps an error to the "ok"/"error" label pair used by counters
// that do not need finer detail.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return OutcomeOK
}

// RegisterRateLimiter exports the state of a rate limiter through reg.
// active and rejected are read at scrape time.
func RegisterRateLimiter(reg prometheus.Registerer, active func() int, rejected func() int64) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_clients",
			Help:      "Clients currently tracked by the rate limiter.",
		}, func() float64 { return float64(active()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejected_total",
			Help:      "Requests refused by the rate limiter.",
		}, func() float64 { return float64(rejected()) }),
	)
}
