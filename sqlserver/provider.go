package sqlserver

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
)

// NameProvider extends the relational naming strategy with the names of
// constraints, table types and stored procedures.
type NameProvider interface {
	relational.NameProvider
	// PrimaryKeyName returns the primary key constraint name of a type.
	PrimaryKeyName(t *model.Type) string
	// ForeignKeyName returns the foreign key constraint name for the
	// referencing property fk and the referenced identity pk.
	ForeignKeyName(fk, pk *model.Property) string
	// ComplexTableTypeName returns the name of a multi-column table type.
	ComplexTableTypeName(t *model.Type) string
	// SimpleTableTypeName returns the name of a single-column table type.
	SimpleTableTypeName(t *model.Type, sqlType string) string
	// SimpleTableTypeColumnName returns the column name of a simple
	// table type.
	SimpleTableTypeColumnName(sqlType string) string
	// ProcedureName names a stored procedure from its query type, model
	// type and dependent column.
	ProcedureName(p *Procedure) (string, error)
}

// ColumnSpecProvider extends the relational spec provider.
type ColumnSpecProvider interface {
	relational.ColumnSpecProvider
	// RequiresSimpleTableType reports whether the table type of t has a
	// single column of type t, rather than a column per attribute.
	RequiresSimpleTableType(t *model.Type) bool
}

// DefaultNameProvider is the default SQL Server naming strategy.
type DefaultNameProvider struct {
	relational.DefaultNameProvider
}

// ParameterName returns the column name, suffixed with "Table" for
// table-valued parameters.
func (DefaultNameProvider) ParameterName(column string, multiValued bool) string {
	if multiValued {
		return column + "Table"
	}
	return column
}

// PrimaryKeyName returns "PK_<type>".
func (DefaultNameProvider) PrimaryKeyName(t *model.Type) string { return "PK_" + t.Name }

// ForeignKeyName returns "FK_<principal>_<property>". Unnamed ends use
// the name of their type.
func (DefaultNameProvider) ForeignKeyName(fk, pk *model.Property) string {
	dependent := fk.Name
	if dependent == "" {
		dependent = fk.TypeName()
	}
	var principal string
	if pk.Owner != nil {
		principal = pk.Owner.Name
	}
	return "FK_" + principal + "_" + dependent
}

// ComplexTableTypeName returns "TT_<type>".
func (DefaultNameProvider) ComplexTableTypeName(t *model.Type) string { return "TT_" + t.Name }

// SimpleTableTypeName returns the upper camel case SQL type followed by
// "Table", e.g. "IntTable".
func (DefaultNameProvider) SimpleTableTypeName(_ *model.Type, sqlType string) string {
	return cases.Title(language.English, cases.NoLower).String(sqlType) + "Table"
}

// SimpleTableTypeColumnName returns "Value".
func (DefaultNameProvider) SimpleTableTypeColumnName(string) string { return "Value" }

// ProcedureName implements NameProvider.
func (DefaultNameProvider) ProcedureName(p *Procedure) (string, error) {
	t := p.ModelType
	if t == nil || t.Name == "" {
		return "", NewProcedureError("", p.QueryType, "cannot create a procedure name because the query has no model type")
	}
	switch p.QueryType {
	case QueryInsert:
		return "Insert" + t.Name, nil
	case QueryUpdate:
		return "Update" + t.Name, nil
	case QuerySelectSingle:
		return "Select" + t.Name + "ById", nil
	case QueryDelete:
		return "Delete" + t.Name + "ById", nil
	case QueryUpdateRelationship:
		col := p.DependentColumn
		if col == nil {
			return "", NewProcedureError("", p.QueryType, "missing dependent column")
		}
		relation := col.Role
		if relation == "" && col.Table != nil && col.Table.SourceType != nil {
			relation = col.Table.SourceType.Name
		}
		return "Update" + t.Name + relation, nil
	}
	return "", NewProcedureError("", p.QueryType, "unsupported query type")
}

// PluralNameProvider is the default naming strategy with pluralized
// table names.
type PluralNameProvider struct {
	DefaultNameProvider
}

// TableName returns the pluralized type name.
func (PluralNameProvider) TableName(t *model.Type) string {
	return relational.PluralNameProvider{}.TableName(t)
}

// TypeNameProvider maps model types to SQL Server type names.
type TypeNameProvider struct{}

// TypeName implements relational.TypeNameProvider.
func (p TypeNameProvider) TypeName(t *model.Type) (string, error) {
	return relational.ResolveTypeName(t, p.primitive, "int")
}

func (TypeNameProvider) primitive(k model.PrimitiveKind) string {
	switch k {
	case model.PrimitiveBoolean:
		return "bit"
	case model.PrimitiveInteger:
		return "int"
	case model.PrimitiveReal:
		return "real"
	case model.PrimitiveString:
		return "nvarchar"
	case model.PrimitiveObject:
		return "varbinary"
	}
	return ""
}

// DefaultColumnSpecProvider derives SQL Server lengths, precisions and
// scales.
type DefaultColumnSpecProvider struct{}

// Length returns "1" for single-valued char, nchar and binary columns and
// "max" for the other character and binary types.
func (DefaultColumnSpecProvider) Length(sqlType string, p *model.Property) string {
	switch sqlType {
	case "char", "nchar", "binary":
		if p != nil && !p.IsMultivalued() {
			return "1"
		}
		return "max"
	case "varchar", "nvarchar", "varbinary":
		return "max"
	}
	return ""
}

// Precision returns 18 for decimal.
func (DefaultColumnSpecProvider) Precision(sqlType string, _ *model.Property) *int {
	if sqlType == "decimal" {
		return intp(18)
	}
	return nil
}

// Scale returns 2 for decimal.
func (DefaultColumnSpecProvider) Scale(sqlType string, _ *model.Property) *int {
	if sqlType == "decimal" {
		return intp(2)
	}
	return nil
}

// IsRelationship implements relational.ColumnSpecProvider.
func (DefaultColumnSpecProvider) IsRelationship(p *model.Property) bool {
	return relational.IsRelationship(p)
}

// RequiresSimpleTableType returns true for value types.
func (DefaultColumnSpecProvider) RequiresSimpleTableType(t *model.Type) bool {
	return t.IsDataType()
}

func intp(v int) *int { return &v }
