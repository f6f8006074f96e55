package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PurchasesTotal tracks commit outcomes by result kind
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Total number of purchase commit attempts by result",
		},
		[]string{"result"},
	)

	// StockConflictsTotal tracks conditional decrements lost to a
	// concurrent commit (before retry)
	StockConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_conflicts_total",
			Help: "Total number of conditional stock decrements lost to a concurrent commit",
		},
	)

	// CompensationFailuresTotal counts stock re-increments that failed,
	// i.e. commits requiring manual reconciliation
	CompensationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compensation_failures_total",
			Help: "Total number of failed compensating stock increments",
		},
	)

	// StatusUpdatesTotal tracks status update outcomes
	StatusUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_status_updates_total",
			Help: "Total number of purchase status updates by result",
		},
		[]string{"result"},
	)

	// PurchaseAmount tracks committed purchase totals
	PurchaseAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purchase_amount_total_due",
			Help:    "Total due of committed purchases",
			Buckets: []float64{10, 50, 100, 500, 1000, 5000},
		},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)
)
