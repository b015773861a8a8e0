// Package sqlserver layers SQL Server structures on top of a derived
// relational database: primary and foreign key constraints, user-defined
// table types and CRUD stored procedures with their parameters and result
// sets.
package sqlserver

import (
	"fmt"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
)

// Database is a relational database enriched with SQL Server objects.
type Database struct {
	*relational.Database
	// TableTypes are the user-defined table types. The identity table
	// type is always present.
	TableTypes []*relational.Table
	// IdentityTableType is the single-column table type used to pass
	// lists of identities.
	IdentityTableType *relational.Table
	// Procedures in derivation order.
	Procedures []*Procedure
}

// Procedure returns the stored procedure with the given name.
func (db *Database) Procedure(name string) (*Procedure, bool) {
	for _, p := range db.Procedures {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// TableType returns the table type with the given name.
func (db *Database) TableType(name string) (*relational.Table, bool) {
	for _, t := range db.TableTypes {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// QueryType is the statement a stored procedure executes.
type QueryType uint8

// Query types.
const (
	QueryUnknown QueryType = iota
	QueryInsert
	QuerySelectSingle
	QueryUpdate
	QueryDelete
	QueryUpdateRelationship
)

var queryTypeNames = [...]string{
	QueryUnknown:            "Unknown",
	QueryInsert:             "Insert",
	QuerySelectSingle:       "SelectSingle",
	QueryUpdate:             "Update",
	QueryDelete:             "Delete",
	QueryUpdateRelationship: "UpdateRelationship",
}

// String returns the query type name.
func (q QueryType) String() string {
	if int(q) < len(queryTypeNames) {
		return queryTypeNames[q]
	}
	return fmt.Sprintf("QueryType(%d)", q)
}

// Direction is the direction of a stored procedure parameter. The order
// of the constants is the order of parameters in a signature.
type Direction uint8

// Parameter directions.
const (
	Input Direction = iota
	InputOutput
	Output
	ReturnValue
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Input:
		return "Input"
	case InputOutput:
		return "InputOutput"
	case Output:
		return "Output"
	case ReturnValue:
		return "ReturnValue"
	}
	return fmt.Sprintf("Direction(%d)", d)
}

type (
	// Procedure is a stored procedure derived for a table.
	Procedure struct {
		Name      string
		QueryType QueryType
		// ModelType is the type the related table was derived from.
		ModelType *model.Type
		// Table is the related table.
		Table      *relational.Table
		Parameters []*Parameter
		// DependentColumn is the foreign key column updated by an
		// UpdateRelationship procedure.
		DependentColumn *relational.Column
		// ResultSets of SelectSingle procedures.
		ResultSets []*ResultSet
	}

	// Parameter is a stored procedure parameter. Names carry no "@"
	// prefix; writers add it.
	Parameter struct {
		Name  string
		Index int
		// TypeName is the SQL type, or the table type name for
		// table-valued parameters.
		TypeName  string
		Length    string
		Precision *int
		Scale     *int
		// TableName and ColumnName locate the column the parameter maps.
		TableName  string
		ColumnName string
		// ObjectTypeName is the name of the model type of the value.
		ObjectTypeName string
		// Property is the model property of the column, if any.
		Property  *model.Property
		Direction Direction
		// IsIdentity marks the identity value of the related table.
		IsIdentity bool
		// IsFilter marks parameters used in the WHERE clause.
		IsFilter   bool
		IsNullable bool
		IsReadOnly bool
		// IsTableValued parameters pass a set of rows typed by TableType.
		IsTableValued bool
		IsMultiValued bool
		TableType     *relational.Table
	}

	// ResultSet is the shape of the rows returned by a procedure.
	ResultSet struct {
		Columns []*ResultSetColumn
	}

	// ResultSetColumn is a selected column. Joined columns are aliased.
	ResultSetColumn struct {
		Ordinal int
		// Name is the column name or its alias.
		Name         string
		SourceTable  string
		SourceColumn string
		// ParentColumn is the foreign key column joining the source table.
		ParentColumn  string
		IsJoined      bool
		IsForeignKey  bool
		IsNullable    bool
		TypeName      string
		ModelTypeName string
	}
)

// IsOutput reports whether the parameter returns a value to the caller.
func (p *Parameter) IsOutput() bool {
	return p.Direction == Output || p.Direction == InputOutput
}

// Filters returns the filter parameters.
func (p *Procedure) Filters() []*Parameter {
	var out []*Parameter
	for _, param := range p.Parameters {
		if param.IsFilter {
			out = append(out, param)
		}
	}
	return out
}

// Identity returns the identity parameter.
func (p *Procedure) Identity() *Parameter {
	for _, param := range p.Parameters {
		if param.IsIdentity {
			return param
		}
	}
	return nil
}

// TableValued returns the first table-valued parameter.
func (p *Procedure) TableValued() *Parameter {
	for _, param := range p.Parameters {
		if param.IsTableValued {
			return param
		}
	}
	return nil
}
