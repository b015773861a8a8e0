package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/syssam/relgen/dialect"
)

// TableValue converts the rows of a table-valued parameter to the value
// expected by the database driver, e.g. a mssql.TVP of the named type.
type TableValue func(typeName string, rows any) any

type param struct {
	name     string
	value    any
	out      bool
	typeName string // Table type of a table-valued parameter.
}

// Call is a stored procedure invocation.
//
//	var id int
//	call := sql.NewCall("InsertDepartment").
//	    Arg("Name", "Research").
//	    Out("Id", &id)
//	_, err := sql.ExecCall(ctx, drv, call)
type Call struct {
	Procedure string
	params    []param
	tv        TableValue
}

// NewCall returns a call of the named procedure. A schema-qualified name
// like "dbo.InsertDepartment" is quoted part by part.
func NewCall(procedure string) *Call {
	return &Call{Procedure: procedure}
}

// Arg appends an input parameter.
func (c *Call) Arg(name string, v any) *Call {
	c.params = append(c.params, param{name: name, value: v})
	return c
}

// Out appends an output parameter scanned into dest.
func (c *Call) Out(name string, dest any) *Call {
	c.params = append(c.params, param{name: name, value: sql.Out{Dest: dest}, out: true})
	return c
}

// InOut appends an input/output parameter. The current value of dest is
// sent and replaced by the value the procedure sets.
func (c *Call) InOut(name string, dest any) *Call {
	c.params = append(c.params, param{name: name, value: sql.Out{Dest: dest, In: true}, out: true})
	return c
}

// Table appends a table-valued parameter of the named table type. The rows
// are converted with the TableValue set by Convert, if any.
func (c *Call) Table(name, typeName string, rows any) *Call {
	c.params = append(c.params, param{name: name, value: rows, typeName: typeName})
	return c
}

// Convert sets the conversion of table-valued parameters.
func (c *Call) Convert(tv TableValue) *Call {
	c.tv = tv
	return c
}

// Query returns the EXEC statement of the call and its named arguments.
func (c *Call) Query() (string, []any, error) {
	name, err := procedureName(c.Procedure)
	if err != nil {
		return "", nil, err
	}
	var (
		b    strings.Builder
		args = make([]any, 0, len(c.params))
		seen = make(map[string]bool, len(c.params))
	)
	b.WriteString("EXEC ")
	b.WriteString(name)
	for i, p := range c.params {
		if !isValidIdentifier(p.name) {
			return "", nil, fmt.Errorf("dialect/sql: invalid parameter name %q", p.name)
		}
		key := strings.ToLower(p.name)
		if seen[key] {
			return "", nil, fmt.Errorf("dialect/sql: duplicate parameter %q", p.name)
		}
		seen[key] = true
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, " @%s = @%s", p.name, p.name)
		if p.out {
			b.WriteString(" OUTPUT")
		}
		v := p.value
		if p.typeName != "" && c.tv != nil {
			v = c.tv(p.typeName, v)
		}
		args = append(args, sql.Named(p.name, v))
	}
	return b.String(), args, nil
}

func procedureName(s string) (string, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("dialect/sql: invalid procedure name %q", s)
	}
	for i, part := range parts {
		if !isValidIdentifier(part) {
			return "", fmt.Errorf("dialect/sql: invalid procedure name %q", s)
		}
		parts[i] = "[" + part + "]"
	}
	return strings.Join(parts, "."), nil
}

// ExecCall executes a call that returns no rows.
func ExecCall(ctx context.Context, ex dialect.ExecQuerier, c *Call) (Result, error) {
	query, args, err := c.Query()
	if err != nil {
		return nil, err
	}
	var res Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return nil, NewCallError(c.Procedure, err)
	}
	return res, nil
}

// QueryCall executes a call that returns rows. The caller closes rows.
func QueryCall(ctx context.Context, ex dialect.ExecQuerier, c *Call, rows *Rows) error {
	query, args, err := c.Query()
	if err != nil {
		return err
	}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return NewCallError(c.Procedure, err)
	}
	return nil
}
