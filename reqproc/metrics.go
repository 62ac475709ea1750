package reqproc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are ambient observability, registered once per process the
// way cuemby-warren's pkg/metrics registers its gauges/histograms at
// package init.
var (
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sysrepo_reqproc_queue_depth",
		Help: "Number of envelopes currently queued for a worker.",
	})

	commitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sysrepo_reqproc_commit_duration_seconds",
		Help:    "Time taken to run the commit pipeline end to end.",
		Buckets: prometheus.DefBuckets,
	})

	operDataTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sysrepo_reqproc_oper_data_timeouts_total",
		Help: "Operational-data suspensions that hit the timeout rather than resolving from provider responses.",
	})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sysrepo_reqproc_requests_total",
		Help: "Requests dispatched, by kind and whether they errored.",
	}, []string{"kind", "outcome"})
)

func init() {
	prometheus.MustRegister(queueDepth, commitLatency, operDataTimeouts, requestsTotal)
}

func observeRequest(kind Kind, resp *Response) {
	outcome := "ok"
	if resp != nil && resp.Err() != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(kind.String(), outcome).Inc()
}

type commitTimer struct{ start time.Time }

func startCommitTimer() commitTimer { return commitTimer{start: time.Now()} }

func (t commitTimer) observe() { commitLatency.Observe(time.Since(t.start).Seconds()) }
