package report

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Metrics collects per-run Prometheus metrics into a private registry and
// writes them in the text exposition format.
type Metrics struct {
	registry     *prometheus.Registry
	testsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	runInfo      *prometheus.GaugeVec
}

// NewMetrics builds an empty collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "harness_tests_total", Help: "Total number of tests"},
			[]string{"group", "project", "status"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harness_test_duration_seconds",
				Help:    "Test duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"group", "status"},
		),
		runInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "harness_run_info", Help: "Run metadata"},
			[]string{"run_id", "environment", "test_type"},
		),
	}
	registry.MustRegister(m.testsTotal, m.testDuration, m.runInfo)
	return m
}

// Observe records one outcome.
func (m *Metrics) Observe(o core.TestOutcome) {
	group, project := GroupAndProject(o.Name)
	m.testsTotal.WithLabelValues(group, project, string(o.Status)).Inc()
	m.testDuration.WithLabelValues(group, string(o.Status)).Observe(o.Duration.Seconds())
}

// ObserveRun records every outcome of run plus its metadata.
func (m *Metrics) ObserveRun(run *core.RunResult) {
	m.runInfo.WithLabelValues(run.RunID, run.Environment, run.TestType).Set(1)
	for _, o := range run.Outcomes {
		m.Observe(o)
	}
}

// Encode renders the registry in Prometheus text format.
func (m *Metrics) Encode() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return nil, errors.Wrap(err, "encode metrics")
		}
	}
	return buf.Bytes(), nil
}

// Write writes the metrics to <dir>/metrics.prom.
func (m *Metrics) Write(dir string) (string, error) {
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, MetricsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
