package sqlserver

import (
	"errors"
	"fmt"
)

// ErrInvalidProcedure indicates a stored procedure that cannot be named
// or written.
var ErrInvalidProcedure = errors.New("relgen: invalid stored procedure")

// ProcedureError is returned when a stored procedure cannot be derived.
type ProcedureError struct {
	Procedure string
	QueryType QueryType
	Message   string
}

// Error implements the error interface.
func (e *ProcedureError) Error() string {
	if e.Procedure != "" {
		return fmt.Sprintf("relgen: procedure %s (%s): %s", e.Procedure, e.QueryType, e.Message)
	}
	return fmt.Sprintf("relgen: %s procedure: %s", e.QueryType, e.Message)
}

// Is reports whether the target matches ErrInvalidProcedure.
func (e *ProcedureError) Is(target error) bool {
	return target == ErrInvalidProcedure
}

// NewProcedureError creates a new ProcedureError.
func NewProcedureError(procedure string, qt QueryType, message string) *ProcedureError {
	return &ProcedureError{Procedure: procedure, QueryType: qt, Message: message}
}

// IsProcedureError reports whether err is or wraps a ProcedureError.
func IsProcedureError(err error) bool {
	var e *ProcedureError
	return errors.As(err, &e)
}
