package metrics

import (
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/receive"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	receiverRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "receiver",
		Name:      "requests_total",
		Help:      "Count of payjoin requests by result code and last stage reached.",
	}, []string{"network", "code", "stage"})

	receiverRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "receiver",
		Name:      "request_duration_seconds",
		Help:      "Duration of handling one payjoin request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "code"})
)

// Receiver tracks metrics for incoming payjoin requests.
type Receiver struct {
	network model.Network
}

func NewReceiver(network model.Network) *Receiver {
	if network == "" {
		network = unknown
	}
	return &Receiver{network: network}
}

// ObserveRequest records a handled request. Code is "ok" on success.
func (m Receiver) ObserveRequest(code string, stage receive.Stage, started time.Time) {
	if code == "" {
		code = unknown
	}
	receiverRequestsTotal.WithLabelValues(string(m.network), code, stage.String()).Inc()
	receiverRequestDuration.WithLabelValues(string(m.network), code).Observe(time.Since(started).Seconds())
}
