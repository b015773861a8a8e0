package relational

import (
	"github.com/go-openapi/inflect"

	"github.com/syssam/relgen/model"
)

// NameProvider derives the names of tables, columns and parameters.
type NameProvider interface {
	// TableName returns the table name of a type.
	TableName(t *model.Type) string
	// ColumnName returns the column name of a property. It may be empty
	// for unnamed association ends.
	ColumnName(p *model.Property) string
	// ForeignKeyColumnName returns the name of the foreign key column
	// mapping a single-valued relationship attribute.
	ForeignKeyColumnName(p *model.Property) string
	// ParameterName returns the parameter name for a column.
	ParameterName(column string, multiValued bool) string
	// ColumnAlias returns the alias of a joined column.
	ColumnAlias(table, column string) string
}

// TypeNameProvider maps model types to SQL type names.
type TypeNameProvider interface {
	// TypeName returns the SQL type name for values of t. Classes map to
	// the type of their identity attribute.
	TypeName(t *model.Type) (string, error)
}

// ColumnSpecProvider answers length, precision and scale questions for a
// SQL type, and decides which properties are relationships.
type ColumnSpecProvider interface {
	// Length returns a decimal length or "max", or "" when the type
	// takes no length. p may be nil.
	Length(sqlType string, p *model.Property) string
	Precision(sqlType string, p *model.Property) *int
	Scale(sqlType string, p *model.Property) *int
	// IsRelationship reports whether p references a non-value type.
	IsRelationship(p *model.Property) bool
}

// DefaultNameProvider uses the model names as they are.
type DefaultNameProvider struct{}

// TableName returns the type name.
func (DefaultNameProvider) TableName(t *model.Type) string { return t.Name }

// ColumnName returns the property name.
func (DefaultNameProvider) ColumnName(p *model.Property) string { return p.Name }

// ForeignKeyColumnName returns "<property>Id".
func (DefaultNameProvider) ForeignKeyColumnName(p *model.Property) string { return p.Name + "Id" }

// ParameterName returns "@<column>".
func (DefaultNameProvider) ParameterName(column string, _ bool) string { return "@" + column }

// ColumnAlias returns "<table>_<column>".
func (DefaultNameProvider) ColumnAlias(table, column string) string { return table + "_" + column }

var rules = inflect.NewDefaultRuleset()

// PluralNameProvider pluralizes table names ("Person" becomes "People").
type PluralNameProvider struct {
	DefaultNameProvider
}

// TableName returns the pluralized type name.
func (PluralNameProvider) TableName(t *model.Type) string { return rules.Pluralize(t.Name) }

// AnsiTypeNameProvider maps primitives to ANSI SQL type names.
type AnsiTypeNameProvider struct{}

// TypeName implements TypeNameProvider.
func (p AnsiTypeNameProvider) TypeName(t *model.Type) (string, error) {
	return ResolveTypeName(t, p.primitive, "integer")
}

func (AnsiTypeNameProvider) primitive(k model.PrimitiveKind) string {
	switch k {
	case model.PrimitiveBoolean:
		return "boolean"
	case model.PrimitiveInteger:
		return "integer"
	case model.PrimitiveReal:
		return "real"
	case model.PrimitiveString:
		return "varchar"
	case model.PrimitiveObject:
		return "blob"
	}
	return ""
}

// ResolveTypeName implements the mapping shared by the type name providers:
// primitives go through primitive, enumerations map to their base type or
// enumType, other value types map to their own name, and classes map to
// the type of their identity attribute.
func ResolveTypeName(t *model.Type, primitive func(model.PrimitiveKind) string, enumType string) (string, error) {
	return resolveTypeName(t, primitive, enumType, make(map[*model.Type]bool))
}

// resolveTypeName follows enumeration bases and class identities. seen
// holds the types already on the path and breaks identity or base cycles.
func resolveTypeName(t *model.Type, primitive func(model.PrimitiveKind) string, enumType string, seen map[*model.Type]bool) (string, error) {
	if t == nil {
		return "", NewTypeError("", "", "the element has no type", nil)
	}
	switch {
	case t.Kind == model.KindPrimitive:
		if name := primitive(t.Primitive); name != "" {
			return name, nil
		}
		return t.Name, nil
	case t.IsEnumeration():
		if t.Base == nil {
			return enumType, nil
		}
		if seen[t] {
			return "", NewTypeError(t.String(), "", "enumeration base type cycle", nil)
		}
		seen[t] = true
		return resolveTypeName(t.Base, primitive, enumType, seen)
	case t.IsDataType():
		return t.Name, nil
	}
	id := model.FindIdentity(t)
	if id == nil {
		return "", NewIdentityError(t.String(), "", "cannot derive the sql type of a reference to it")
	}
	if id.Type == t {
		return "", NewTypeError(t.String(), id.Name, "identity attribute references its own type", nil)
	}
	if seen[t] {
		return "", NewTypeError(t.String(), id.Name, "identity type cycle", nil)
	}
	seen[t] = true
	return resolveTypeName(id.Type, primitive, enumType, seen)
}

// DefaultColumnSpecProvider derives no lengths, precisions or scales.
type DefaultColumnSpecProvider struct{}

// Length implements ColumnSpecProvider.
func (DefaultColumnSpecProvider) Length(string, *model.Property) string { return "" }

// Precision implements ColumnSpecProvider.
func (DefaultColumnSpecProvider) Precision(string, *model.Property) *int { return nil }

// Scale implements ColumnSpecProvider.
func (DefaultColumnSpecProvider) Scale(string, *model.Property) *int { return nil }

// IsRelationship implements ColumnSpecProvider.
func (DefaultColumnSpecProvider) IsRelationship(p *model.Property) bool {
	return IsRelationship(p)
}

// IsRelationship reports whether p has a type that is not a value type.
func IsRelationship(p *model.Property) bool {
	return p.Type != nil && !p.Type.IsDataType()
}
