// Package errors provides custom error types for the driftsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the driftsync system
var (
	// ErrStoreUnavailable indicates a store could not be read due to
	// connectivity or permission failure
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrApplyFailed indicates a single-record write failed
	ErrApplyFailed = errors.New("apply failed")

	// ErrMalformedRecord indicates a fetched record is missing its
	// identity key or payload
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only store
	ErrReadOnly = errors.New("read only")
)

// StoreUnavailableError represents a failure to read a backing store.
// It is fatal for the resource type being scanned; other resource types
// continue processing.
type StoreUnavailableError struct {
	Store        string
	ResourceType string
	Message      string
	Err          error
}

// Error implements the error interface
func (e *StoreUnavailableError) Error() string {
	if e.ResourceType != "" {
		return fmt.Sprintf("store %s unavailable for %s: %s", e.Store, e.ResourceType, e.Message)
	}
	return fmt.Sprintf("store %s unavailable: %s", e.Store, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreUnavailableError creates a new StoreUnavailableError
func NewStoreUnavailableError(store, resourceType string, err error) *StoreUnavailableError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &StoreUnavailableError{
		Store:        store,
		ResourceType: resourceType,
		Message:      message,
		Err:          err,
	}
}

// ApplyError represents a single-key write failure against a target store.
// Apply errors are counted and logged but never abort the run.
type ApplyError struct {
	Store        string
	ResourceType string
	Key          string
	Err          error
}

// Error implements the error interface
func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply %s/%s to store %s: %v", e.ResourceType, e.Key, e.Store, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ApplyError) Is(target error) bool {
	return target == ErrApplyFailed
}

// NewApplyError creates a new ApplyError
func NewApplyError(store, resourceType, key string, err error) *ApplyError {
	return &ApplyError{
		Store:        store,
		ResourceType: resourceType,
		Key:          key,
		Err:          err,
	}
}

// MalformedRecordError represents a fetched record missing its identity
// key or payload. Malformed records are dropped with a warning and do not
// abort the scan.
type MalformedRecordError struct {
	Store        string
	ResourceType string
	Key          string
	Message      string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("malformed %s record %s from store %s: %s", e.ResourceType, e.Key, e.Store, e.Message)
	}
	return fmt.Sprintf("malformed %s record from store %s: %s", e.ResourceType, e.Store, e.Message)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(store, resourceType, key, message string) *MalformedRecordError {
	return &MalformedRecordError{
		Store:        store,
		ResourceType: resourceType,
		Key:          key,
		Message:      message,
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error from a remote store's HTTP API
type APIError struct {
	Store      string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Store, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Store, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 401 || e.StatusCode == 403 || e.StatusCode >= 500 {
		return target == ErrStoreUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(store string, statusCode int, message string) *APIError {
	return &APIError{
		Store:      store,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsStoreUnavailable checks if an error indicates an unreadable store
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsApplyFailed checks if an error is a single-record write failure
func IsApplyFailed(err error) bool {
	return errors.Is(err, ErrApplyFailed)
}

// IsMalformedRecord checks if an error is a malformed record error
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapStore wraps an error as a StoreUnavailableError
func WrapStore(store, resourceType string, err error) error {
	if err == nil {
		return nil
	}
	return NewStoreUnavailableError(store, resourceType, err)
}

// WrapApply wraps an error as an ApplyError
func WrapApply(store, resourceType, key string, err error) error {
	if err == nil {
		return nil
	}
	return NewApplyError(store, resourceType, key, err)
}
