package metrics

import (
	"time"

	"github.com/goodnatureofminers/payjoin7000-node/internal/payjoin/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	followerSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chain_follower",
		Name:      "sync_total",
		Help:      "Count of follower sync iterations.",
	}, []string{"network", "status"})

	followerSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "chain_follower",
		Name:      "sync_duration_seconds",
		Help:      "Duration of one follower sync iteration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	followerSyncBlocks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "chain_follower",
		Name:      "sync_blocks",
		Help:      "Number of blocks delivered per sync iteration.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1..512
	}, []string{"network"})

	followerTipHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "chain_follower",
		Name:      "tip_height",
		Help:      "Height of the last block delivered to listeners.",
	}, []string{"network"})
)

// ChainFollower tracks metrics for the chain follower loop.
type ChainFollower struct {
	network model.Network
}

func NewChainFollower(network model.Network) *ChainFollower {
	if network == "" {
		network = unknown
	}
	return &ChainFollower{network: network}
}

// ObserveSync records one iteration and how many blocks it delivered.
func (m ChainFollower) ObserveSync(err error, blocks int, started time.Time) {
	status := statusOf(err)
	followerSyncTotal.WithLabelValues(string(m.network), status).Inc()
	followerSyncDuration.WithLabelValues(string(m.network), status).Observe(time.Since(started).Seconds())
	if blocks > 0 {
		followerSyncBlocks.WithLabelValues(string(m.network)).Observe(float64(blocks))
	}
}

func (m ChainFollower) ObserveTip(height uint32) {
	followerTipHeight.WithLabelValues(string(m.network)).Set(float64(height))
}
