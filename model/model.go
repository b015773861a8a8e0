// Package model holds the object model consumed by the relational builders:
// types, their attributes and the binary associations between them.
//
// The graph is read-only during a build. Lookups that must survive
// serialization (association maps, table lookups) are keyed by the stable
// element ID rather than by pointer identity.
package model

import "fmt"

// Kind classifies a Type.
type Kind uint8

// Type kinds.
const (
	KindClass Kind = iota
	KindDataType
	KindEnumeration
	KindPrimitive
)

var kindNames = [...]string{
	KindClass:       "class",
	KindDataType:    "datatype",
	KindEnumeration: "enum",
	KindPrimitive:   "primitive",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// PrimitiveKind identifies the built-in primitive a Type stands for.
type PrimitiveKind uint8

// Primitive kinds. PrimitiveNone is used by all non-primitive types.
const (
	PrimitiveNone PrimitiveKind = iota
	PrimitiveBoolean
	PrimitiveInteger
	PrimitiveReal
	PrimitiveString
	PrimitiveObject
)

// Unbounded is the upper bound of a multiplicity written as "*".
const Unbounded = -1

// AggregationKind mirrors UML aggregation on a property.
type AggregationKind uint8

// Aggregation kinds.
const (
	AggregationNone AggregationKind = iota
	AggregationShared
	AggregationComposite
)

type (
	// Type is a named element of the model: a class, a data type, an
	// enumeration or a primitive.
	Type struct {
		// ID is the stable identifier of the type.
		ID string
		// Name of the type. Unnamed types never become tables.
		Name string
		// Kind of the type.
		Kind Kind
		// Primitive is set for KindPrimitive types.
		Primitive PrimitiveKind
		// Base is the optional base type. Enumerations use it as
		// their underlying value type.
		Base *Type
		// Attributes are the owned attributes in declaration order.
		Attributes []*Property
		// Literals of an enumeration.
		Literals []string
	}

	// Property is an attribute of a type or a member end of an association.
	Property struct {
		// ID is the stable identifier of the property.
		ID string
		// Name may be empty for unnamed association ends.
		Name string
		// Type is the target type of the property.
		Type *Type
		// Owner is the owning type. It is nil for ends owned by
		// the association itself.
		Owner *Type
		// Association is set when the property is a member end.
		Association *Association
		// Lower and Upper bound of the multiplicity. Upper may be Unbounded.
		Lower, Upper int
		// IsID marks the identity attribute of the owner.
		IsID bool
		// Aggregation of the property.
		Aggregation AggregationKind
	}

	// Association relates types through its member ends. Only binary
	// associations take part in relational derivation.
	Association struct {
		ID         string
		Name       string
		MemberEnds []*Property
	}

	// Model is the root of the object graph.
	Model struct {
		Name         string
		Types        []*Type
		Associations []*Association
	}
)

// IsDataType reports whether the type is a value type: a data type,
// an enumeration or a primitive.
func (t *Type) IsDataType() bool {
	return t.Kind == KindDataType || t.Kind == KindEnumeration || t.Kind == KindPrimitive
}

// IsEnumeration reports whether the type is an enumeration.
func (t *Type) IsEnumeration() bool { return t.Kind == KindEnumeration }

// IsMemberedClassifier reports whether the type can own attributes.
func (t *Type) IsMemberedClassifier() bool { return t.Kind != KindPrimitive }

// Attribute returns the owned attribute with the given name.
func (t *Type) Attribute(name string) (*Property, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// String implements fmt.Stringer.
func (t *Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// IsMultivalued reports whether the property allows more than one value.
func (p *Property) IsMultivalued() bool {
	return p.Upper == Unbounded || p.Upper > 1
}

// IsOptional reports whether the property allows no value.
func (p *Property) IsOptional() bool { return p.Lower == 0 }

// TypeName returns the name of the property type, or an empty string.
func (p *Property) TypeName() string {
	if p.Type == nil {
		return ""
	}
	return p.Type.Name
}

// QualifiedName returns "Owner.Name", falling back to the property ID
// when the property is unnamed.
func (p *Property) QualifiedName() string {
	name := p.Name
	if name == "" {
		name = p.ID
	}
	if p.Owner != nil {
		return p.Owner.String() + "." + name
	}
	return name
}

// AllTypes returns every type of the model in declaration order.
func (m *Model) AllTypes() []*Type { return m.Types }

// TypeByID returns the type with the given ID.
func (m *Model) TypeByID(id string) (*Type, bool) {
	for _, t := range m.Types {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TypeByName returns the first type with the given name.
func (m *Model) TypeByName(name string) (*Type, bool) {
	for _, t := range m.Types {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// FindIdentity returns the first attribute of t marked as identity.
// Types that cannot own attributes never have one.
func FindIdentity(t *Type) *Property {
	if t == nil || !t.IsMemberedClassifier() {
		return nil
	}
	for _, a := range t.Attributes {
		if a.IsID {
			return a
		}
	}
	return nil
}
