package domain

import (
	"fmt"
	"time"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidLinkStatus    = NewDomainError(ErrCodeValidation, "invalid link status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrDimensionMismatch    = NewDomainError(ErrCodeValidation, "embedding dimensions differ between provider and store")
)

// Not found errors
var (
	ErrLinkNotFound     = NewDomainError(ErrCodeNotFound, "link not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrProgressNotFound = NewDomainError(ErrCodeNotFound, "no pipeline run in progress")
)

// Operation errors
var (
	ErrPipelineActive = NewDomainError(ErrCodeInvalidOperation, "a pipeline run is already in progress")
)

// Provider errors
var (
	// ErrProviderUnavailable covers network failures, timeouts, non-success
	// responses, and malformed responses (wrong vector count or shape). The
	// tick that hits it must not advance its cursor.
	ErrProviderUnavailable = NewDomainError(ErrCodeProvider, "embedding provider unavailable")
)

// RateLimitError signals that the embedding provider refused the call with a
// rate limit. The tick surfaces it as a structured backoff instruction; the
// caller schedules the same unit of work again instead of blocking.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by embedding provider, retry after %s", e.RetryAfter)
}

// SemanticConflictError reports that an anchor's meaning already points at a
// different URL. The candidate is skipped; the conflicting cluster is kept
// for diagnosability.
type SemanticConflictError struct {
	Anchor         string
	IntendedURL    string
	ClusterAnchor  string
	ClusterURL     string
}

func (e *SemanticConflictError) Error() string {
	return fmt.Sprintf("anchor %q for %s conflicts with cluster %q pointing at %s",
		e.Anchor, e.IntendedURL, e.ClusterAnchor, e.ClusterURL)
}

// ErrNoAnchor means no acceptable anchor phrase was found in the chunk. Not
// a failure: the candidate is skipped and logged at debug level.
var ErrNoAnchor = NewDomainError(ErrCodeNotFound, "no suitable anchor phrase in chunk")
