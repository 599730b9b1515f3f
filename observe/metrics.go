// Package observe provides the logging and metrics sinks the order/stock
// core reports through.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcome labels. The deferred commit runner classifies every
// finished job as exactly one of these.
const (
	OutcomeOK                = "ok"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeUnknownBook       = "unknown_book"
	OutcomeError             = "error"
)

// Metrics holds the Prometheus instruments for the order pipeline.
type Metrics struct {
	OrdersAccepted prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	CommitOutcomes *prometheus.CounterVec
	CommitQueue    prometheus.Gauge
}

// NewMetrics registers the pipeline instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_orders_accepted_total",
			Help: "Orders accepted and scheduled for stock commit.",
		}),
		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_orders_rejected_total",
			Help: "Orders rejected before acceptance, by reason.",
		}, []string{"reason"}),
		CommitOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstore_stock_commits_total",
			Help: "Deferred stock commit outcomes.",
		}, []string{"outcome"}),
		CommitQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bookstore_commit_queue_depth",
			Help: "Commit jobs waiting for a worker.",
		}),
	}
}
