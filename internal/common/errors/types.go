package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeCredentialsMissing means required static provider credentials are absent;
	// the provider is treated as disabled, not retried
	ErrTypeCredentialsMissing ErrorType = "credentials_missing"
	// ErrTypeProviderUnavailable means a provider client failed to initialize;
	// permanent for the process lifetime
	ErrTypeProviderUnavailable ErrorType = "provider_unavailable"
	// ErrTypeAuthProvider means the provider's token endpoint rejected the exchange
	ErrTypeAuthProvider ErrorType = "auth_provider"
	// ErrTypeProviderRequest means a provider create/update/cancel/get call failed
	// or returned an unusable payload
	ErrTypeProviderRequest ErrorType = "provider_request"
)

// Auth failure codes attached to ErrTypeAuthProvider errors. The meeting
// provider's token endpoint distinguishes bad client credentials from a bad
// account id; operators need to see which one it was.
const (
	AuthCodeInvalidClient  = "invalid_client"
	AuthCodeInvalidAccount = "invalid_account"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// CredentialsMissing creates an error for absent static provider credentials
func CredentialsMissing(field string) *AppError {
	return &AppError{
		Type:    ErrTypeCredentialsMissing,
		Message: fmt.Sprintf("required credential %s is not configured", field),
	}
}

// ProviderUnavailable creates an error for a provider client that never initialized
func ProviderUnavailable(provider string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeProviderUnavailable,
		Message: fmt.Sprintf("%s provider client is not available", provider),
		Cause:   cause,
	}
}

// AuthProviderError creates an error for a rejected token exchange
func AuthProviderError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeAuthProvider,
		Message: msg,
		Cause:   cause,
	}
}

// ProviderRequestFailed creates an error for a failed provider API call
// or a nominally successful response missing required fields
func ProviderRequestFailed(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeProviderRequest,
		Message: msg,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// GetCode returns the error code for an AppError, or empty string otherwise
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ""
}
