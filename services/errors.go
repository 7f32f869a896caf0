package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation           ErrorType = "validation"
	ErrorTypeNotFound             ErrorType = "not_found"
	ErrorTypeRetrievalUnavailable ErrorType = "retrieval_unavailable"
	ErrorTypeGenerationFailed     ErrorType = "generation_failed"
	ErrorTypeInternal             ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. Compare with errors.Is; never attach details to these.

var (
	// Validation Errors
	ErrMissingTenant   = NewDomainError(ErrorTypeValidation, "tenant id is missing", nil)
	ErrMissingQuery    = NewDomainError(ErrorTypeValidation, "query is missing", nil)
	ErrInvalidFragment = NewDomainError(ErrorTypeValidation, "invalid fragment", nil)
	ErrInvalidModality = NewDomainError(ErrorTypeValidation, "invalid modality", nil)

	// Not Found Errors
	ErrDocumentNotFound = NewDomainError(ErrorTypeNotFound, "document not found", nil)

	// Retrieval Errors
	ErrEmbeddingUnavailable = NewDomainError(ErrorTypeRetrievalUnavailable, "embedding provider unavailable", nil)
	ErrStoreUnavailable     = NewDomainError(ErrorTypeRetrievalUnavailable, "fragment store unavailable", nil)

	// Generation Errors
	ErrGenerationFailed  = NewDomainError(ErrorTypeGenerationFailed, "text generation failed", nil)
	ErrMalformedResponse = NewDomainError(ErrorTypeGenerationFailed, "malformed generation response", nil)

	// Internal Errors
	ErrInternal = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsRetrievalUnavailableError checks if the store or an embedding provider could not be reached
func IsRetrievalUnavailableError(err error) bool {
	return hasType(err, ErrorTypeRetrievalUnavailable)
}

// IsGenerationFailedError checks if the generation provider failed
func IsGenerationFailedError(err error) bool {
	return hasType(err, ErrorTypeGenerationFailed)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapValidation wraps an error as a validation error
func WrapValidation(message string, err error) error {
	return NewDomainError(ErrorTypeValidation, message, err)
}

// WrapRetrievalUnavailable wraps a store or embedding failure
func WrapRetrievalUnavailable(message string, err error) error {
	return NewDomainError(ErrorTypeRetrievalUnavailable, message, err)
}

// WrapGenerationFailed wraps a generation provider failure
func WrapGenerationFailed(message string, err error) error {
	return NewDomainError(ErrorTypeGenerationFailed, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
