// Package errors provides a lightweight structured error type (RepoDocError)
// for category-based classification in the job pipeline and HTTP adapters.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a RepoDoc error for classification
type ErrorCategory string

const (
	// User-facing input errors
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryDenied     ErrorCategory = "denied"
	CategoryNotReady   ErrorCategory = "not_ready"

	// External system integration errors
	CategoryGit     ErrorCategory = "git"
	CategoryStorage ErrorCategory = "storage"
	CategoryLLM     ErrorCategory = "llm"
	CategoryQueue   ErrorCategory = "queue"

	// Processing errors
	CategoryStage   ErrorCategory = "stage"
	CategoryTimeout ErrorCategory = "timeout"

	// Runtime and infrastructure errors
	CategoryConfig   ErrorCategory = "config"
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

// RepoDocError is a structured error with category, severity, and context
type RepoDocError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RepoDocError
type ContextFields map[string]any

// Error implements the error interface
func (e *RepoDocError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *RepoDocError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *RepoDocError) WithContext(key string, value any) *RepoDocError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new RepoDocError
func New(category ErrorCategory, severity ErrorSeverity, message string) *RepoDocError {
	return &RepoDocError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RepoDocError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RepoDocError {
	return &RepoDocError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var rde *RepoDocError
	if errors.As(err, &rde) {
		return rde.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if the error chain contains no RepoDocError.
func GetCategory(err error) ErrorCategory {
	var rde *RepoDocError
	if errors.As(err, &rde) {
		return rde.Category
	}
	return CategoryInternal
}
