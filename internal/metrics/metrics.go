package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type StoreMetrics struct {
	CheckoutSessionsCreated prometheus.Counter
	CheckoutFailures        *prometheus.CounterVec
	SettlementsCompleted    prometheus.Counter
	DuplicateSettlements    prometheus.Counter
	UnknownSessionEvents    prometheus.Counter
	GrantsCreated           prometheus.Counter
	GrantFailures           prometheus.Counter
}

func NewStoreMetrics() *StoreMetrics {
	return NewStoreMetricsWith(prometheus.DefaultRegisterer)
}

// NewStoreMetricsWith registers against the given registerer so tests can use
// an isolated registry.
func NewStoreMetricsWith(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		CheckoutSessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "checkout",
			Name:      "sessions_created_total",
			Help:      "Total number of hosted checkout sessions created.",
		}),
		CheckoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "checkout",
			Name:      "failures_total",
			Help:      "Total number of failed checkout attempts.",
		}, []string{"reason"}),
		SettlementsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "settlement",
			Name:      "orders_completed_total",
			Help:      "Total number of orders moved to completed by settlement.",
		}),
		DuplicateSettlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "settlement",
			Name:      "duplicate_deliveries_total",
			Help:      "Total number of settlement notifications that lost the completion race.",
		}),
		UnknownSessionEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "settlement",
			Name:      "unknown_session_events_total",
			Help:      "Total number of settlement notifications referencing no known order.",
		}),
		GrantsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "settlement",
			Name:      "grants_created_total",
			Help:      "Total number of product grants written.",
		}),
		GrantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skoolstore",
			Subsystem: "settlement",
			Name:      "grant_failures_total",
			Help:      "Total number of grant writes that failed and were skipped.",
		}),
	}

	reg.MustRegister(
		m.CheckoutSessionsCreated,
		m.CheckoutFailures,
		m.SettlementsCompleted,
		m.DuplicateSettlements,
		m.UnknownSessionEvents,
		m.GrantsCreated,
		m.GrantFailures,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
