package core

import (
	"fmt"
	"strings"
	"time"
)

// TestOutcome is the recorded result of one test. It is immutable once
// handed to the aggregator.
type TestOutcome struct {
	// Identity. Name is the report ID: "<package path>::<TestName>".
	Name    string `json:"name"`
	Package string `json:"package"`
	Test    string `json:"test"`

	// Outcome
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Reason   string        `json:"reason,omitempty"` // Full failure output

	// Declared by the test body
	Tag         Tag    `json:"tag,omitempty"`
	Description string `json:"description,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"` // Path to failure screenshot

	StartTime time.Time `json:"startTime"`
}

// OutcomeID builds the report ID for a test in a package.
func OutcomeID(pkg, test string) string {
	return pkg + "::" + test
}

// ShortReason returns the first non-empty line of the failure reason.
func (o TestOutcome) ShortReason() string {
	for _, line := range strings.Split(o.Reason, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// DurationString formats the duration in seconds with two decimals.
func (o TestOutcome) DurationString() string {
	return FormatSeconds(o.Duration)
}

// FormatSeconds renders d as "1.23s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// RunResult captures the complete outcome of one harness run.
type RunResult struct {
	// Identity
	RunID       string `json:"runId"`
	Environment string `json:"environment"`
	TestType    string `json:"testType"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Outcomes []TestOutcome `json:"outcomes"`

	// Summary
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ComputeSummary calculates counts from the Outcomes slice
func (r *RunResult) ComputeSummary() {
	r.Total = len(r.Outcomes)
	r.Passed = 0
	r.Failed = 0
	r.Skipped = 0

	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusPassed:
			r.Passed++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}

// Success returns true if no test failed. A run with no tests succeeds.
func (r *RunResult) Success() bool {
	for _, o := range r.Outcomes {
		if !o.Status.IsSuccess() {
			return false
		}
	}
	return true
}
