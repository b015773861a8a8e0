package relational

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failures that abort a build.
var (
	// ErrMissingIdentity indicates that a type has no identity attribute
	// where one is structurally required.
	ErrMissingIdentity = errors.New("relgen: missing identity")
	// ErrUnresolvedType indicates that no SQL type name could be derived.
	ErrUnresolvedType = errors.New("relgen: unresolved sql type")
	// ErrCycle indicates a dependency cycle between distinct tables.
	ErrCycle = errors.New("relgen: dependency cycle")
	// ErrInvalidConfig indicates an invalid builder option.
	ErrInvalidConfig = errors.New("relgen: invalid configuration")
)

// IdentityError is returned when a type without identity attribute is used
// as the target of a foreign key or as a principal of a relationship.
type IdentityError struct {
	Type    string // Type lacking the identity.
	Table   string // Table being synthesized, if any.
	Context string // What required the identity.
}

// Error implements the error interface.
func (e *IdentityError) Error() string {
	var b strings.Builder
	b.WriteString("relgen: type ")
	b.WriteString(e.Type)
	b.WriteString(" has no identity attribute")
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Table != "" {
		b.WriteString(" (table ")
		b.WriteString(e.Table)
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether the target matches ErrMissingIdentity.
func (e *IdentityError) Is(target error) bool {
	return target == ErrMissingIdentity
}

// NewIdentityError creates a new IdentityError.
func NewIdentityError(typeName, table, context string) *IdentityError {
	return &IdentityError{Type: typeName, Table: table, Context: context}
}

// TypeError is returned when a column or parameter type cannot be mapped
// to a SQL type name.
type TypeError struct {
	Owner    string
	Property string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	var b strings.Builder
	b.WriteString("relgen: unable to determine sql type")
	if e.Owner != "" || e.Property != "" {
		fmt.Fprintf(&b, " of %s.%s", e.Owner, e.Property)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *TypeError) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrUnresolvedType.
func (e *TypeError) Is(target error) bool {
	return target == ErrUnresolvedType
}

// NewTypeError creates a new TypeError.
func NewTypeError(owner, property, message string, cause error) *TypeError {
	return &TypeError{Owner: owner, Property: property, Message: message, Cause: cause}
}

// CycleError lists the tables that depend on each other so that no
// emission order exists.
type CycleError struct {
	Tables []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "relgen: dependency cycle between tables " + strings.Join(e.Tables, ", ")
}

// Is reports whether the target matches ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// ConfigError represents an invalid builder option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("relgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("relgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsIdentityError reports whether err is or wraps an IdentityError.
func IsIdentityError(err error) bool {
	var e *IdentityError
	return errors.As(err, &e)
}

// IsTypeError reports whether err is or wraps a TypeError.
func IsTypeError(err error) bool {
	var e *TypeError
	return errors.As(err, &e)
}

// IsCycleError reports whether err is or wraps a CycleError.
func IsCycleError(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}
