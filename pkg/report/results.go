package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Artifact file names written under the output directory.
const (
	ResultsFile = "results.json"
	HTMLFile    = "report.html"
	MetricsFile = "metrics.prom"
	AllureDir   = "allure-results"
)

// NewRun starts a RunResult with a fresh run ID.
func NewRun(environment, testType string, start time.Time) *core.RunResult {
	return &core.RunResult{
		RunID:       uuid.NewString(),
		Environment: environment,
		TestType:    testType,
		StartTime:   start,
	}
}

// Finish copies the aggregator's outcomes into run and computes totals.
func Finish(run *core.RunResult, agg *Aggregator, end time.Time) {
	run.Outcomes = agg.Outcomes()
	run.Duration = end.Sub(run.StartTime)
	run.ComputeSummary()
}

// WriteResults writes run as indented JSON to <dir>/results.json.
func WriteResults(dir string, run *core.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal results")
	}
	path := filepath.Join(dir, ResultsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// ReadResults loads a results.json written by WriteResults.
func ReadResults(dir string) (*core.RunResult, error) {
	path := filepath.Join(dir, ResultsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var run core.RunResult
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &run, nil
}
