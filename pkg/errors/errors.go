// Package errors provides custom error types for the genemap system.
// These errors enable programmatic error checking for both fatal
// configuration problems and the non-fatal data issues that the
// reconciliation engine records alongside its output.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As forward to the standard library so callers need one import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the genemap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataConflict indicates that one source reported disagreeing
	// strengths for the same (label, source) group
	ErrDataConflict = errors.New("data conflict")

	// ErrUnresolvedKey indicates that a source label matched no canonical entity
	ErrUnresolvedKey = errors.New("unresolved key")

	// ErrAmbiguousKey indicates that a source label is an alias of several entities
	ErrAmbiguousKey = errors.New("ambiguous key")

	// ErrMissingRankContext indicates that a rank score lacked its rank or total
	ErrMissingRankContext = errors.New("missing rank context")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
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
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
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

// ConflictError records a (label, source) group whose members disagree on strength.
type ConflictError struct {
	Source string
	Entity string
	Label  string
	Values []string
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting %s values for %s/%s: %s",
		e.Source, e.Entity, e.Label, strings.Join(e.Values, ", "))
}

// Is implements errors.Is support
func (e *ConflictError) Is(target error) bool {
	return target == ErrDataConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(source, entity, label string, values []string) *ConflictError {
	return &ConflictError{Source: source, Entity: entity, Label: label, Values: values}
}

// UnresolvedKeyError records a source label that could not be attached to an entity.
// Candidates is non-empty when the label was an ambiguous alias.
type UnresolvedKeyError struct {
	Source     string
	Label      string
	Candidates []string
}

// Error implements the error interface
func (e *UnresolvedKeyError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("%s label %q is ambiguous between %s",
			e.Source, e.Label, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("%s label %q matches no known entity", e.Source, e.Label)
}

// Is implements errors.Is support
func (e *UnresolvedKeyError) Is(target error) bool {
	if target == ErrUnresolvedKey {
		return true
	}
	return target == ErrAmbiguousKey && len(e.Candidates) > 1
}

// NewUnresolvedKeyError creates a new UnresolvedKeyError
func NewUnresolvedKeyError(source, label string, candidates []string) *UnresolvedKeyError {
	return &UnresolvedKeyError{Source: source, Label: label, Candidates: candidates}
}

// RankContextError records a rank-style strength computed without its rank or total.
type RankContextError struct {
	Source  string
	Entity  string
	Label   string
	Missing string // missing input columns, comma separated
}

// Error implements the error interface
func (e *RankContextError) Error() string {
	return fmt.Sprintf("%s rank score for %s/%s defaulted: missing %s",
		e.Source, e.Entity, e.Label, e.Missing)
}

// Is implements errors.Is support
func (e *RankContextError) Is(target error) bool {
	return target == ErrMissingRankContext
}

// NewRankContextError creates a new RankContextError
func NewRankContextError(source, entity, label, missing string) *RankContextError {
	return &RankContextError{Source: source, Entity: entity, Label: label, Missing: missing}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if an error is a data conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrDataConflict)
}

// IsUnresolved checks if an error is an unresolved key
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedKey)
}

// IsMissingRankContext checks if an error is a defaulted rank score
func IsMissingRankContext(err error) bool {
	return errors.Is(err, ErrMissingRankContext)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "tsv", "csv", "xlsx", "yaml", "json"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	}
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
	Operation string // "read", "write", "create", "open", "close"
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

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

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

// WrapCanceled marks a context error as a cancellation of operation.
func WrapCanceled(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, ErrCanceled, err)
}
