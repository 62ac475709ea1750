package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ackLatency is ambient observability on top of the commit-release
// contract, grounded on cuemby-warren's pkg/metrics histogram idiom.
var ackLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "sysrepo_notify_apply_ack_duration_seconds",
	Help:    "Time from apply fan-out to every subscriber acking (or the release timer firing).",
	Buckets: prometheus.DefBuckets,
})

func init() {
	prometheus.MustRegister(ackLatency)
}
