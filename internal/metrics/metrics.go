// Package metrics implements poolcore.Recorder with Prometheus collectors,
// labeled by pool name so a process running more than one pool still gets
// per-pool series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/polaris-dbpool/dbpool/internal/poolcore"
)

var (
	connectionsLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dbpool_connections_live",
		Help: "Number of live (open) sessions in the pool",
	}, []string{"pool"})

	connectionsIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dbpool_connections_idle",
		Help: "Number of idle sessions currently queued for reuse",
	}, []string{"pool"})

	acquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbpool_acquire_total",
		Help: "Total Acquire calls by outcome",
	}, []string{"pool", "outcome"})

	acquireWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dbpool_acquire_wait_seconds",
		Help:    "Time spent inside Acquire, regardless of outcome",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"pool", "outcome"})

	producerOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbpool_producer_open_total",
		Help: "Total session open attempts made by the background producer",
	}, []string{"pool", "outcome"})

	reapTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbpool_reap_total",
		Help: "Total sessions closed by the idle reaper",
	}, []string{"pool"})

	reapSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbpool_reap_sweeps_total",
		Help: "Total reaper sweeps that closed at least one session",
	}, []string{"pool"})
)

// Recorder implements poolcore.Recorder by feeding the package-level
// Prometheus collectors, labeled with the owning pool's name.
type Recorder struct {
	pool string
}

// NewRecorder returns a Recorder that labels every series with poolName.
func NewRecorder(poolName string) *Recorder {
	return &Recorder{pool: poolName}
}

var _ poolcore.Recorder = (*Recorder)(nil)

func (r *Recorder) SetCounts(live, idle int) {
	connectionsLive.WithLabelValues(r.pool).Set(float64(live))
	connectionsIdle.WithLabelValues(r.pool).Set(float64(idle))
}

func (r *Recorder) ObserveAcquire(outcome string, wait time.Duration) {
	acquireTotal.WithLabelValues(r.pool, outcome).Inc()
	acquireWaitSeconds.WithLabelValues(r.pool, outcome).Observe(wait.Seconds())
}

func (r *Recorder) ObserveProducerOpen(outcome string) {
	producerOpenTotal.WithLabelValues(r.pool, outcome).Inc()
}

func (r *Recorder) ObserveReap(closed int) {
	if closed == 0 {
		return
	}
	reapSweeps.WithLabelValues(r.pool).Inc()
	reapTotal.WithLabelValues(r.pool).Add(float64(closed))
}
