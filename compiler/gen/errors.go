package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/relgen/relational"
)

// Sentinel errors for common failure cases.
var (
	// ErrGenerationFailed indicates a code generation failure.
	ErrGenerationFailed = errors.New("relgen: code generation failed")
	// ErrValidationFailed indicates that the derived database is invalid.
	ErrValidationFailed = errors.New("relgen: validation failed")
)

// GenerationError represents a code generation error.
type GenerationError struct {
	Phase   string // "load", "derive", "script", "client", etc.
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("relgen: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
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
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError is returned when the derived database has validation
// errors. Warnings alone never fail a generation.
type ValidationError struct {
	Result *relational.ValidationResult
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	n := len(e.Result.Errors)
	switch n {
	case 0:
		return ErrValidationFailed.Error()
	case 1:
		return "relgen: validation failed: " + e.Result.Errors[0].Error()
	}
	return fmt.Sprintf("relgen: validation failed: %d errors, first: %s", n, e.Result.Errors[0])
}

// Is reports whether the target matches the sentinel error for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
