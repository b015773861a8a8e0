package load

import (
	"errors"
	"strings"
)

// ErrInvalidDocument indicates a model document that cannot be turned
// into a model.
var ErrInvalidDocument = errors.New("relgen: invalid model document")

// LoadError is returned for malformed documents and dangling references.
type LoadError struct {
	Path    string // File the document was read from, if any.
	Element string // Qualified name of the offending element.
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("relgen: load")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Element != "" {
		b.WriteString(": ")
		b.WriteString(e.Element)
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

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }

// Is reports whether the target matches ErrInvalidDocument.
func (e *LoadError) Is(target error) bool {
	return target == ErrInvalidDocument
}

// NewLoadError creates a new LoadError.
func NewLoadError(element, message string, cause error) *LoadError {
	return &LoadError{Element: element, Message: message, Cause: cause}
}

// IsLoadError reports whether err is or wraps a LoadError.
func IsLoadError(err error) bool {
	var e *LoadError
	return errors.As(err, &e)
}

// withPath sets the path of a LoadError, or wraps err into one.
func withPath(path string, err error) error {
	var e *LoadError
	if errors.As(err, &e) {
		if e.Path == "" {
			e.Path = path
		}
		return err
	}
	return &LoadError{Path: path, Cause: err}
}
