package jobmetrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Metrics holds the per-run gauges and counters of the report job. A batch job
// never stays up long enough to be scraped, so every value lives on a private
// registry that is pushed once at the end of the run.
type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	duration      prometheus.Gauge
	lastSuccess   prometheus.Gauge
	subscribers   *prometheus.GaugeVec
	usageRecords  *prometheus.GaugeVec
	rowsWritten   *prometheus.GaugeVec
	rowsPruned    prometheus.Gauge
	pruneFailures prometheus.Counter
}

type Config struct {
	ServiceName string
	Environment string
}

func New(registry *prometheus.Registry, cfg Config) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "auldata-report"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "auldata_job_runs_total",
			Help:        "Report job runs by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "auldata_job_last_duration_seconds",
			Help:        "Wall time of the most recent report job run.",
			ConstLabels: constLabels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "auldata_job_last_success_timestamp_seconds",
			Help:        "Unix time of the most recent successful report job run.",
			ConstLabels: constLabels,
		}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "auldata_job_subscribers",
			Help:        "Subscribers assigned to each usage node in the last run.",
			ConstLabels: constLabels,
		}, []string{"node"}),
		usageRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "auldata_job_usage_records",
			Help:        "Overage usage records fetched from each usage node in the last run.",
			ConstLabels: constLabels,
		}, []string{"node"}),
		rowsWritten: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "auldata_job_rows_written",
			Help:        "Report rows inserted per usage node in the last run.",
			ConstLabels: constLabels,
		}, []string{"node"}),
		rowsPruned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "auldata_job_rows_pruned",
			Help:        "Report rows removed by retention in the last run.",
			ConstLabels: constLabels,
		}),
		pruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "auldata_job_prune_failures_total",
			Help:        "Retention deletes that failed without failing the run.",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		m.runs,
		m.duration,
		m.lastSuccess,
		m.subscribers,
		m.usageRecords,
		m.rowsWritten,
		m.rowsPruned,
		m.pruneFailures,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(result string, startedAt time.Time, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(normalizeResult(result)).Inc()
	m.duration.Set(duration.Seconds())
	if result == ResultSuccess {
		m.lastSuccess.Set(float64(startedAt.Add(duration).Unix()))
	}
}

func (m *Metrics) SetSubscribers(node string, count int) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(node).Set(float64(count))
}

func (m *Metrics) SetUsageRecords(node string, count int) {
	if m == nil {
		return
	}
	m.usageRecords.WithLabelValues(node).Set(float64(count))
}

func (m *Metrics) SetRowsWritten(node string, count int) {
	if m == nil {
		return
	}
	m.rowsWritten.WithLabelValues(node).Set(float64(count))
}

func (m *Metrics) SetRowsPruned(count int64) {
	if m == nil {
		return
	}
	m.rowsPruned.Set(float64(count))
}

func (m *Metrics) IncPruneFailure() {
	if m == nil {
		return
	}
	m.pruneFailures.Inc()
}

func normalizeResult(result string) string {
	switch result {
	case ResultSuccess, ResultFailure, ResultSkipped:
		return result
	default:
		return ResultFailure
	}
}
