/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"reflect"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an item is not found
	ErrNotFound = errors.New("item not found")

	// ErrAlreadyExists is returned when attempting to create an item that already exists
	ErrAlreadyExists = errors.New("item already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrUnsupportedValue is returned when a value has no attribute value representation
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrUnrecognizedAttributeTag is returned when a wire value carries an unknown type tag
	ErrUnrecognizedAttributeTag = errors.New("unrecognized attribute tag")

	// ErrUnparsableStatement is returned when a predicate statement cannot be classified
	ErrUnparsableStatement = errors.New("unparsable statement")

	// ErrEmptyKeyCondition is returned when a query is compiled without a key condition
	ErrEmptyKeyCondition = errors.New("key condition expression is empty")

	// ErrMissingValue is returned when a statement references a value placeholder that was not supplied
	ErrMissingValue = errors.New("missing expression value")
)

// NotFoundError represents an error when an item is not found
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s item with key %s not found", e.Table, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an item already exists
type AlreadyExistsError struct {
	Table string
	Key   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s item with key %s already exists", e.Table, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// UnsupportedValueError carries the value the codec could not encode.
type UnsupportedValueError struct {
	Value  any
	Reason string
}

// Error prints scalars in full and only the type of composites, which may be
// large or refer to themselves.
func (e *UnsupportedValueError) Error() string {
	msg := "unsupported value " + describeValue(e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func describeValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%#v (%T)", v, v)
	}
	return fmt.Sprintf("of type %T", v)
}

func (e *UnsupportedValueError) Is(target error) bool {
	return target == ErrUnsupportedValue
}

// UnrecognizedAttributeTagError names the tag found on a malformed wire value.
type UnrecognizedAttributeTagError struct {
	Tag string
}

func (e *UnrecognizedAttributeTagError) Error() string {
	return fmt.Sprintf("unrecognized attribute tag %q", e.Tag)
}

func (e *UnrecognizedAttributeTagError) Is(target error) bool {
	return target == ErrUnrecognizedAttributeTag
}

// UnparsableStatementError carries the offending predicate statement text.
type UnparsableStatementError struct {
	Statement string
}

func (e *UnparsableStatementError) Error() string {
	return fmt.Sprintf("unparsable statement %q", e.Statement)
}

func (e *UnparsableStatementError) Is(target error) bool {
	return target == ErrUnparsableStatement
}

// MissingValueError names a placeholder referenced by an expression but absent from its values.
type MissingValueError struct {
	Placeholder string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("no value supplied for placeholder %s", e.Placeholder)
}

func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table, key string) error {
	return &NotFoundError{Table: table, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(table, key string) error {
	return &AlreadyExistsError{Table: table, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewUnsupportedValueError creates a new UnsupportedValueError
func NewUnsupportedValueError(value any, reason string) error {
	return &UnsupportedValueError{Value: value, Reason: reason}
}

// NewUnrecognizedAttributeTagError creates a new UnrecognizedAttributeTagError
func NewUnrecognizedAttributeTagError(tag string) error {
	return &UnrecognizedAttributeTagError{Tag: tag}
}

// NewUnparsableStatementError creates a new UnparsableStatementError
func NewUnparsableStatementError(statement string) error {
	return &UnparsableStatementError{Statement: statement}
}

// NewMissingValueError creates a new MissingValueError
func NewMissingValueError(placeholder string) error {
	return &MissingValueError{Placeholder: placeholder}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsUnsupportedValue checks if an error came from encoding an unrepresentable value
func IsUnsupportedValue(err error) bool {
	return errors.Is(err, ErrUnsupportedValue)
}

// IsUnrecognizedAttributeTag checks if an error came from decoding a malformed wire value
func IsUnrecognizedAttributeTag(err error) bool {
	return errors.Is(err, ErrUnrecognizedAttributeTag)
}

// IsUnparsableStatement checks if an error came from an unclassifiable predicate statement
func IsUnparsableStatement(err error) bool {
	return errors.Is(err, ErrUnparsableStatement)
}
