package metrics

import (
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trackerPending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "pending_transactions",
		Help:      "Payjoin transactions waiting for the anti-reorg delay.",
	}, []string{"network"})

	trackerSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "settled_total",
		Help:      "Count of tracked transactions leaving the tracker.",
	}, []string{"network", "kind"})
)

// Tracker tracks metrics for the confirmation tracker.
type Tracker struct {
	network model.Network
}

func NewTracker(network model.Network) *Tracker {
	if network == "" {
		network = unknown
	}
	return &Tracker{network: network}
}

func (m Tracker) ObservePending(n int) {
	trackerPending.WithLabelValues(string(m.network)).Set(float64(n))
}

func (m Tracker) ObserveSettled(kind model.EventKind) {
	trackerSettledTotal.WithLabelValues(string(m.network), string(kind)).Inc()
}
