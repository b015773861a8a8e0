package sql

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a select procedure returns no row.
var ErrNotFound = errors.New("dialect/sql: not found")

// CallError is returned when the database rejects a procedure call.
type CallError struct {
	Procedure string
	Err       error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return "dialect/sql: call " + e.Procedure + ": " + e.Err.Error()
}

// Unwrap returns the database error.
func (e *CallError) Unwrap() error { return e.Err }

// NewCallError creates a new CallError.
func NewCallError(procedure string, err error) *CallError {
	return &CallError{Procedure: procedure, Err: err}
}

// IsCallError reports whether err is or wraps a CallError.
func IsCallError(err error) bool {
	var e *CallError
	return errors.As(err, &e)
}

// NotFoundError is returned by generated select methods when no row
// matches the identity.
type NotFoundError struct {
	Table string
	ID    any
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return "dialect/sql: " + e.Table + " not found"
}

// Is reports whether the target matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// errorNumberer is implemented by SQL Server driver errors, e.g. mssql.Error.
type errorNumberer interface {
	SQLErrorNumber() int32
}

// SQL Server error numbers of constraint violations.
const (
	mssqlUniqueConstraint = 2627
	mssqlUniqueIndex      = 2601
	mssqlConstraint       = 547 // Foreign key and check constraints.
)

// IsConstraintError reports whether err resulted from a constraint
// violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether err resulted from a primary key
// or unique index violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorNumberer](err); ok {
		n := e.SQLErrorNumber()
		return n == mssqlUniqueConstraint || n == mssqlUniqueIndex
	}
	return containsAny(err.Error(),
		"Violation of PRIMARY KEY constraint",
		"Violation of UNIQUE KEY constraint",
		"Cannot insert duplicate key",
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a foreign
// key violation, e.g. deleting a principal row that is still referenced.
func IsForeignKeyConstraintError(err error) bool {
	return constraintConflict(err, "FOREIGN KEY", "REFERENCE")
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return constraintConflict(err, "CHECK")
}

// constraintConflict matches error 547, whose message names the kind of
// the violated constraint.
func constraintConflict(err error, kinds ...string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if e, ok := asError[errorNumberer](err); ok && e.SQLErrorNumber() != mssqlConstraint {
		return false
	}
	if !strings.Contains(msg, "conflicted with the") {
		return false
	}
	for _, k := range kinds {
		if strings.Contains(msg, "the "+k+" constraint") {
			return true
		}
	}
	return false
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
