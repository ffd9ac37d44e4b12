package core

import (
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: unsupported_browser, missing_path_param, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError with the same code, so copies made by
// WithCause/WithMessage/WithDetails still match the predefined value.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with fmt.Sprintf formatting.
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Configuration errors: signaled immediately, never defaulted.
	ErrUnsupportedTestType = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_test_type",
		Message:  "unsupported test type",
	}
	ErrUnsupportedBrowser = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_browser",
		Message:  "unsupported browser",
	}
	ErrUnsupportedPlatform = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_platform",
		Message:  "unsupported platform",
	}
	ErrUnsupportedProvider = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_provider",
		Message:  "unsupported cloud provider",
	}
	ErrUnsupportedExecutionMode = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_execution_mode",
		Message:  "unsupported execution mode",
	}
	ErrUnsupportedMethod = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unsupported_method",
		Message:  "unsupported HTTP method",
	}
	ErrMissingCloudProvider = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_cloud_provider",
		Message:  "--cloud-provider must be specified when using --execution-mode=cloud",
	}
	ErrMissingPathParam = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_path_param",
		Message:  "missing path parameter",
	}
	ErrInvalidBrowserVersion = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_browser_version",
		Message:  "invalid browser version",
	}
	ErrNotImplemented = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "not_implemented",
		Message:  "not implemented",
	}

	// Environment errors
	ErrDriverUnavailable = &ExecutionError{
		Category: ErrCategoryEnvironment,
		Code:     "driver_unavailable",
		Message:  "driver binary not available",
	}
	ErrSessionCreate = &ExecutionError{
		Category: ErrCategoryEnvironment,
		Code:     "session_create_failed",
		Message:  "failed to create session",
	}
	ErrNoHTTPSession = &ExecutionError{
		Category: ErrCategoryEnvironment,
		Code:     "no_http_session",
		Message:  "an HTTP session is required for API requests",
	}

	// Transient errors
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTransient,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}
	ErrRequestFailed = &ExecutionError{
		Category: ErrCategoryTransient,
		Code:     "request_failed",
		Message:  "request failed",
	}

	// Cleanup errors
	ErrQuitFailed = &ExecutionError{
		Category: ErrCategoryCleanup,
		Code:     "quit_failed",
		Message:  "error quitting session",
	}

	// Assertion errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf returns the category of the first ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	for err != nil {
		if e, ok := err.(*ExecutionError); ok {
			return e.Category
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			// pkg/errors wrappers expose Cause instead of Unwrap on older paths
			c, ok := err.(interface{ Cause() error })
			if !ok {
				return ErrCategoryNone
			}
			err = c.Cause()
			continue
		}
		err = u.Unwrap()
	}
	return ErrCategoryNone
}
