package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raysh454/observer/internal/model"
)

// Metrics are the Prometheus collectors the coordinator updates.
type Metrics struct {
	runs          prometheus.Counter
	stageDuration *prometheus.HistogramVec
	anomalies     *prometheus.CounterVec
	fetchStatus   *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounter(prometheus.CounterOpts{
			Name: "observer_pipeline_runs_total",
			Help: "Completed pipeline runs.",
		}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "observer_pipeline_stage_duration_seconds",
			Help:    "Duration of resolved pipeline stages.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"stage", "status"}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "observer_pipeline_anomalies_total",
			Help: "Anomalies flagged by the diff stage.",
		}, []string{"kind", "severity"}),
		fetchStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "observer_fetch_status_total",
			Help: "Fetched snapshots by HTTP status class.",
		}, []string{"class"}),
	}
}

func (m *Metrics) observeStage(s model.StageResult) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(s.Name), string(s.Status)).Observe(float64(s.DurationMs) / 1000)
}

func (m *Metrics) observeSnapshots(snaps []*model.Snapshot) {
	if m == nil {
		return
	}
	for _, s := range snaps {
		m.fetchStatus.WithLabelValues(statusClass(s)).Inc()
	}
}

func (m *Metrics) observeDiffs(diffs []*model.DiffResult) {
	if m == nil {
		return
	}
	for _, d := range diffs {
		for _, a := range d.Anomalies {
			m.anomalies.WithLabelValues(string(a.Kind), string(a.Severity)).Inc()
		}
	}
}

func (m *Metrics) observeRun() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

func statusClass(s *model.Snapshot) string {
	switch {
	case s.StatusCode == 0:
		return "error"
	case s.StatusCode < 200:
		return "1xx"
	case s.StatusCode < 300:
		return "2xx"
	case s.StatusCode < 400:
		return "3xx"
	case s.StatusCode < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
