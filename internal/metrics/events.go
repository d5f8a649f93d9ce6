package metrics

import (
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "emitted_total",
	Help:      "Count of payment events handed to the application.",
}, []string{"network", "kind"})

// Events counts queued payment events. It is an event queue sink.
type Events struct {
	network model.Network
}

func NewEvents(network model.Network) *Events {
	if network == "" {
		network = unknown
	}
	return &Events{network: network}
}

func (m Events) Observe(event model.Event) {
	eventsTotal.WithLabelValues(string(m.network), string(event.Kind)).Inc()
}
