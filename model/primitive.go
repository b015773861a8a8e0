package model

// Built-in primitive types. They are shared by every model and are
// resolved by name when loading documents.
var (
	Boolean = NewPrimitive("boolean", PrimitiveBoolean)
	Integer = NewPrimitive("integer", PrimitiveInteger)
	Real    = NewPrimitive("real", PrimitiveReal)
	String  = NewPrimitive("string", PrimitiveString)
	Object  = NewPrimitive("object", PrimitiveObject)
)

// Primitives returns the built-in primitive types.
func Primitives() []*Type {
	return []*Type{Boolean, Integer, Real, String, Object}
}

// NewPrimitive returns a primitive type. The name doubles as its ID.
func NewPrimitive(name string, kind PrimitiveKind) *Type {
	return &Type{ID: "primitive:" + name, Name: name, Kind: KindPrimitive, Primitive: kind}
}

// NewDataType returns a value type without attributes, e.g. "decimal" or
// "datetime". Relational type-name providers map unknown data types to
// their own name.
func NewDataType(id, name string) *Type {
	return &Type{ID: id, Name: name, Kind: KindDataType}
}
