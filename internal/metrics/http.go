package metrics

import (
	"strconv"
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of payjoin HTTP exchanges by route and status.",
	}, []string{"network", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of payjoin HTTP exchanges.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "route"})
)

// HTTP tracks metrics for inbound and outbound payjoin HTTP traffic.
type HTTP struct {
	network model.Network
}

func NewHTTP(network model.Network) *HTTP {
	if network == "" {
		network = unknown
	}
	return &HTTP{network: network}
}

// ObserveHTTP records one exchange; status 0 means no response arrived.
func (m HTTP) ObserveHTTP(route string, status int, started time.Time) {
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	httpRequestsTotal.WithLabelValues(string(m.network), route, code).Inc()
	httpRequestDuration.WithLabelValues(string(m.network), route).Observe(time.Since(started).Seconds())
}
