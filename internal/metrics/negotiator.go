package metrics

import (
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	negotiatorAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "negotiator",
		Name:      "attempts_total",
		Help:      "Count of payjoin request attempts by outcome.",
	}, []string{"network", "outcome"})

	negotiatorNegotiationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "negotiator",
		Name:      "negotiations_total",
		Help:      "Count of finished negotiations by outcome.",
	}, []string{"network", "outcome"})

	negotiatorNegotiationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "negotiator",
		Name:      "negotiation_duration_seconds",
		Help:      "Time from send to the terminal outcome of a negotiation.",
		Buckets:   []float64{1, 3, 10, 30, 60, 300, 900, 1800, 3600},
	}, []string{"network", "outcome"})
)

// Negotiator tracks metrics for sender negotiations.
type Negotiator struct {
	network model.Network
}

func NewNegotiator(network model.Network) *Negotiator {
	if network == "" {
		network = unknown
	}
	return &Negotiator{network: network}
}

func (m Negotiator) ObserveAttempt(outcome string) {
	negotiatorAttemptsTotal.WithLabelValues(string(m.network), outcome).Inc()
}

// ObserveNegotiation records a finished negotiation.
func (m Negotiator) ObserveNegotiation(outcome string, started time.Time) {
	negotiatorNegotiationsTotal.WithLabelValues(string(m.network), outcome).Inc()
	negotiatorNegotiationDuration.WithLabelValues(string(m.network), outcome).Observe(time.Since(started).Seconds())
}
