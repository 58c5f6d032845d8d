// Package metrics provides Prometheus metrics for grading batches.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for submissions_graded_total.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Toolchain step labels.
const (
	StepCompile = "compile"
	StepRun     = "run"
)

// Manager owns the grading metrics registered on one registry.
type Manager struct {
	namespace       string
	subsystem       string
	durationBuckets []float64
	scoreBuckets    []float64
	customLabels    map[string]string
	registry        prometheus.Registerer
	gatherer        prometheus.Gatherer

	submissionsGraded  *prometheus.CounterVec
	failuresByKind     *prometheus.CounterVec
	resolutionWarnings *prometheus.CounterVec
	toolchainDuration  *prometheus.HistogramVec
	gradingDuration    prometheus.Histogram
	scorePercent       prometheus.Histogram
	rosterSize         prometheus.Gauge
	matchedSubmissions prometheus.Gauge
	batchAverage       prometheus.Gauge
	activeWorkers      prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps Go runtime collectors out of the textfile

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "grader",
		subsystem:       "batch",
		durationBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		scoreBuckets:    []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		customLabels:    make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
		gatherer:        prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	reg := m.registry
	if len(m.customLabels) > 0 {
		reg = prometheus.WrapRegistererWith(prometheus.Labels(m.customLabels), reg)
	}
	auto := promauto.With(reg)

	m.submissionsGraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_graded_total",
		Help:      "Submissions graded, by outcome",
	}, []string{"outcome"})

	m.failuresByKind = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "failures_total",
		Help:      "Failed or degenerate gradings, by error kind",
	}, []string{"kind"})

	m.resolutionWarnings = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resolution_warnings_total",
		Help:      "Submission folders skipped during resolution, by kind",
	}, []string{"kind"})

	m.toolchainDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "toolchain_duration_seconds",
		Help:      "Wall time of external compile and run steps",
		Buckets:   m.durationBuckets,
	}, []string{"step"})

	m.gradingDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grading_duration_seconds",
		Help:      "Wall time of the full per-student pipeline",
		Buckets:   m.durationBuckets,
	})

	m.scorePercent = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_percent",
		Help:      "Distribution of successful scores on the 0-100 scale",
		Buckets:   m.scoreBuckets,
	})

	m.rosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "roster_size",
		Help:      "Number of roster entries loaded for the batch",
	})

	m.matchedSubmissions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matched_submissions",
		Help:      "Number of submissions resolved to a roster identity",
	})

	m.batchAverage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "average_score_percent",
		Help:      "Average score of successful gradings in the last batch",
	})

	m.activeWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_workers",
		Help:      "Workers currently grading a submission",
	})
}

// RecordGraded counts one finished grading.
func (m *Manager) RecordGraded(succeeded bool) {
	outcome := OutcomeFailed
	if succeeded {
		outcome = OutcomeSucceeded
	}
	m.submissionsGraded.WithLabelValues(outcome).Inc()
}

// RecordFailure counts a failure of the given kind.
func (m *Manager) RecordFailure(kind string) {
	m.failuresByKind.WithLabelValues(kind).Inc()
}

// RecordResolutionWarning counts a skipped submission folder.
func (m *Manager) RecordResolutionWarning(kind string) {
	m.resolutionWarnings.WithLabelValues(kind).Inc()
}

// RecordToolchainDuration observes one compile or run step.
func (m *Manager) RecordToolchainDuration(step string, seconds float64) {
	m.toolchainDuration.WithLabelValues(step).Observe(seconds)
}

// RecordGradingDuration observes one full per-student pipeline.
func (m *Manager) RecordGradingDuration(seconds float64) {
	m.gradingDuration.Observe(seconds)
}

// RecordScore observes a successful score.
func (m *Manager) RecordScore(percent float64) {
	m.scorePercent.Observe(percent)
}

// SetRosterSize sets the roster gauge.
func (m *Manager) SetRosterSize(n int) { m.rosterSize.Set(float64(n)) }

// SetMatchedSubmissions sets the matched submissions gauge.
func (m *Manager) SetMatchedSubmissions(n int) { m.matchedSubmissions.Set(float64(n)) }

// SetAverageScore sets the batch average gauge.
func (m *Manager) SetAverageScore(percent float64) { m.batchAverage.Set(percent) }

// AddActiveWorkers moves the busy worker gauge by delta.
func (m *Manager) AddActiveWorkers(delta int) { m.activeWorkers.Add(float64(delta)) }

// WriteTextfile writes every metric gathered by the manager's gatherer to
// path in the Prometheus text format, for the node-exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

// Package-level recorders backed by the global manager.

func RecordGraded(succeeded bool)                    { globalManager.RecordGraded(succeeded) }
func RecordFailure(kind string)                      { globalManager.RecordFailure(kind) }
func RecordResolutionWarning(kind string)            { globalManager.RecordResolutionWarning(kind) }
func RecordToolchainDuration(step string, s float64) { globalManager.RecordToolchainDuration(step, s) }
func RecordGradingDuration(seconds float64)          { globalManager.RecordGradingDuration(seconds) }
func RecordScore(percent float64)                    { globalManager.RecordScore(percent) }
func SetRosterSize(n int)                            { globalManager.SetRosterSize(n) }
func SetMatchedSubmissions(n int)                    { globalManager.SetMatchedSubmissions(n) }
func SetAverageScore(percent float64)                { globalManager.SetAverageScore(percent) }
func AddActiveWorkers(delta int)                     { globalManager.AddActiveWorkers(delta) }

// WriteTextfile exports the global registry to path.
func WriteTextfile(path string) error { return globalManager.WriteTextfile(path) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
