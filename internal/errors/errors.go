// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrRateLimited              = errors.New("token acquisition rate limited")
	ErrMalformedAuthResponse    = errors.New("malformed auth response")
	ErrCredentialRejected       = errors.New("credential rejected")
	ErrUnsupportedInEnvironment = errors.New("unsupported in environment")
	ErrUnknownInstrumentClass   = errors.New("unknown instrument class")
	ErrTransport                = errors.New("transport failure")
	ErrBusinessFailure          = errors.New("venue rejected request")
	ErrMalformed                = errors.New("malformed venue response")
	ErrHostNotAllowed           = errors.New("host not in allow-list")
	ErrCircuitOpen              = errors.New("circuit breaker is open")
	ErrNotInitialized           = errors.New("client not initialized")
	ErrConfigInvalid            = errors.New("invalid configuration")
	ErrReadOnlyMode             = errors.New("operation blocked: read-only mode enabled")
	ErrInputValidation          = errors.New("input validation failed")
	ErrDatabaseError            = errors.New("database error")
	ErrOrderNotFound            = errors.New("order not found")
)

// AuthErrorKind enumerates token and signing failures.
type AuthErrorKind string

const (
	AuthRateLimited        AuthErrorKind = "rate_limited"
	AuthMalformedResponse  AuthErrorKind = "malformed_response"
	AuthCredentialRejected AuthErrorKind = "credential_rejected"
)

// AuthError is returned by token acquisition and request signing.
type AuthError struct {
	Kind   AuthErrorKind
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("auth error [%s] %s", e.Kind, e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *AuthError) Is(target error) bool {
	switch e.Kind {
	case AuthRateLimited:
		return target == ErrRateLimited
	case AuthMalformedResponse:
		return target == ErrMalformedAuthResponse
	case AuthCredentialRejected:
		return target == ErrCredentialRejected
	}
	return false
}

// NewAuthError creates a new AuthError.
func NewAuthError(kind AuthErrorKind, op, detail string, err error) *AuthError {
	return &AuthError{
		Kind:   kind,
		Op:     op,
		Detail: detail,
		Err:    err,
	}
}

// ConfigErrorKind enumerates routing and configuration failures.
type ConfigErrorKind string

const (
	ConfigUnsupportedInEnvironment ConfigErrorKind = "unsupported_in_environment"
	ConfigUnknownInstrumentClass   ConfigErrorKind = "unknown_instrument_class"
)

// ConfigError reports a lookup that no routing entry can satisfy.
type ConfigError struct {
	Kind ConfigErrorKind
	Key  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %s", e.Kind, e.Key)
}

// Is matches the sentinel for the error's kind.
func (e *ConfigError) Is(target error) bool {
	switch e.Kind {
	case ConfigUnsupportedInEnvironment:
		return target == ErrUnsupportedInEnvironment
	case ConfigUnknownInstrumentClass:
		return target == ErrUnknownInstrumentClass
	}
	return false
}

// NewConfigError creates a new ConfigError.
func NewConfigError(kind ConfigErrorKind, key string) *ConfigError {
	return &ConfigError{Kind: kind, Key: key}
}

// TransportError is a network-level failure from the transport collaborator.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NewTransportError creates a new TransportError.
func NewTransportError(method, url string, err error) *TransportError {
	return &TransportError{
		Method: method,
		URL:    url,
		Err:    err,
	}
}

// BusinessFailure is a request the venue accepted and then rejected.
// Code and Message are the venue's msg_cd and msg1, untouched.
type BusinessFailure struct {
	Code            string
	Message         string
	ResultCode      string
	TransactionCode string
	Status          int
}

func (e *BusinessFailure) Error() string {
	return fmt.Sprintf("venue rejected [%s]: %s", e.Code, e.Message)
}

func (e *BusinessFailure) Is(target error) bool {
	return target == ErrBusinessFailure
}

// NewBusinessFailure creates a new BusinessFailure.
func NewBusinessFailure(code, message string) *BusinessFailure {
	return &BusinessFailure{
		Code:    code,
		Message: message,
	}
}

// MalformedError is a venue response that does not match the envelope contract.
type MalformedError struct {
	Reason string
	Status int
	Err    error
}

func (e *MalformedError) Error() string {
	msg := "malformed response: " + e.Reason
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// NewMalformedError creates a new MalformedError.
func NewMalformedError(reason string, err error) *MalformedError {
	return &MalformedError{
		Reason: reason,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// OrderError wraps any failure of a place, revise or cancel call.
type OrderError struct {
	Op         string
	AssetClass string
	Symbol     string
	OrderID    string
	Err        error
}

func (e *OrderError) Error() string {
	target := e.Symbol
	if e.OrderID != "" {
		target = e.OrderID
	}
	return fmt.Sprintf("order error [%s] %s %s: %v", e.AssetClass, e.Op, target, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(op, assetClass, symbol, orderID string, err error) *OrderError {
	return &OrderError{
		Op:         op,
		AssetClass: assetClass,
		Symbol:     symbol,
		OrderID:    orderID,
		Err:        err,
	}
}

// QueryError wraps any failure of a read-only call.
type QueryError struct {
	Op         string
	AssetClass string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error [%s] %s: %v", e.AssetClass, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new QueryError.
func NewQueryError(op, assetClass string, err error) *QueryError {
	return &QueryError{
		Op:         op,
		AssetClass: assetClass,
		Err:        err,
	}
}

// SecurityError represents a security-related error.
type SecurityError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *SecurityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("security error [%s]: %s: %v", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("security error [%s]: %s", e.Operation, e.Reason)
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// NewSecurityError creates a new SecurityError.
func NewSecurityError(operation, reason string, err error) *SecurityError {
	return &SecurityError{
		Operation: operation,
		Reason:    reason,
		Err:       err,
	}
}

// Kind returns a stable classification string for err, suitable for
// serialized error payloads. It returns "internal" for unclassified errors
// and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthError
	var cfgErr *ConfigError
	var bizErr *BusinessFailure
	var malErr *MalformedError
	var valErr *ValidationError
	var trErr *TransportError

	switch {
	case errors.As(err, &authErr):
		return "auth." + string(authErr.Kind)
	case errors.As(err, &cfgErr):
		return "config." + string(cfgErr.Kind)
	case errors.As(err, &bizErr):
		return "business"
	case errors.As(err, &malErr):
		return "malformed"
	case errors.As(err, &valErr):
		return "validation"
	case errors.Is(err, ErrReadOnlyMode):
		return "read_only"
	case errors.As(err, &trErr), errors.Is(err, ErrHostNotAllowed), errors.Is(err, ErrCircuitOpen):
		return "transport"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	}
	return "internal"
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error wrapping errs, or nil when every err is nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
