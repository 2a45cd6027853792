// Package errors provides a lightweight structured error type (ProxyError)
// for category-based classification and retry semantics across the daemon and CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a wolproxy error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategoryNetwork  ErrorCategory = "network"
	CategoryNetconf  ErrorCategory = "netconf"
	CategoryListener ErrorCategory = "listener"
	CategoryWOL      ErrorCategory = "wol"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ProxyError is a structured error with category, retryability, and context
type ProxyError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for ProxyError
type ContextFields map[string]any

// Error implements the error interface
func (e *ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *ProxyError) WithContext(key string, value any) *ProxyError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ProxyError
func New(category ErrorCategory, severity ErrorSeverity, message string) *ProxyError {
	return &ProxyError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new ProxyError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *ProxyError {
	return &ProxyError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable ProxyError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *ProxyError {
	return &ProxyError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable ProxyError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *ProxyError {
	return &ProxyError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// IsFatal checks whether an error should stop execution
func IsFatal(err error) bool {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}
