package core

import "strings"

// Status is the final outcome of a single test.
type Status string

// Status values.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// IsSuccess returns true if the status does not fail the run (passed or skipped)
func (s Status) IsSuccess() bool {
	return s == StatusPassed || s == StatusSkipped
}

// Tag is a test's declared classification, used for the report breakdown.
// A test declares at most one tag.
type Tag string

// Tag values. TagNone marks an untagged test.
const (
	TagNone     Tag = ""
	TagPositive Tag = "Positive"
	TagNegative Tag = "Negative"
	TagSemantic Tag = "Semantic"
)

// Tags lists the known tags in report order.
var Tags = []Tag{TagNegative, TagPositive, TagSemantic}

// ParseTag matches a tag name case-insensitively. Unknown names yield TagNone.
func ParseTag(name string) Tag {
	for _, t := range Tags {
		if strings.EqualFold(string(t), strings.TrimSpace(name)) {
			return t
		}
	}
	return TagNone
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone        ErrorCategory = iota // No error
	ErrCategoryConfig                           // Unsupported value, missing required option
	ErrCategoryEnvironment                      // Capability file, driver binary, session endpoint
	ErrCategoryTransient                        // Wait timeouts, retryable HTTP failures
	ErrCategoryCleanup                          // Errors while releasing sessions
	ErrCategoryAssertion                        // Element not found, text mismatch
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryEnvironment:
		return "environment"
	case ErrCategoryTransient:
		return "transient"
	case ErrCategoryCleanup:
		return "cleanup"
	case ErrCategoryAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}
