package relational

import "github.com/syssam/relgen/model"

// The following types make up the derived relational model. They are
// created and populated by a single Builder.Build call.
type (
	// Database is the result of a build.
	Database struct {
		// Name of the source model.
		Name string
		// Tables in emission order: every table appears after the
		// tables it references.
		Tables []*Table
		// Associations is the association map the tables were
		// synthesized from.
		Associations *AssociationMap
	}

	// Table is a table derived from a type.
	Table struct {
		// Name of the table.
		Name string
		// SourceType is the type the table was derived from. It is nil for
		// junction tables.
		SourceType *model.Type
		// IsJunction marks tables realizing a many-to-many relationship.
		IsJunction bool
		// OwnColumns are the columns physically defined on this table.
		OwnColumns []*Column
		// DependentColumns are foreign-key columns of other tables (or of
		// this table, for self-references) that reference this table.
		DependentColumns []*Column
		// Keys are the primary and foreign key constraints, when derived.
		Keys []*Key
	}

	// Column is a table column.
	Column struct {
		// Name of the column.
		Name string
		// TypeName is the SQL type name.
		TypeName string
		// Length is a decimal number or "max". Empty when the type has no length.
		Length string
		// Precision and Scale are nil when the type has none.
		Precision, Scale *int
		// IsIdentity marks the auto-increment identity column. Foreign keys
		// are never identities.
		IsIdentity bool
		// IsRequired is false for nullable columns.
		IsRequired bool
		// IsForeignKey marks columns referencing another table.
		IsForeignKey bool
		// IsNavigable is true when the column maps an attribute of the
		// owning type.
		IsNavigable bool
		// IsMany marks foreign keys synthesized for a one-to-many
		// relationship that has no attribute on the owning type.
		IsMany bool
		// Role disambiguates foreign keys referencing the same principal.
		Role string
		// SourceProperty is the property the column was derived from. For
		// foreign keys this is the referencing property.
		SourceProperty *model.Property
		// PrimaryKeyProperty is the identity of the referenced type. It is
		// only set on foreign keys.
		PrimaryKeyProperty *model.Property
		// Table owning the column.
		Table *Table
	}

	// Key is a primary or foreign key constraint on a single column.
	Key struct {
		Type   KeyType
		Name   string
		Column string
		// PrincipalTable and PrincipalColumn are set on foreign keys.
		PrincipalTable  string
		PrincipalColumn string
		CascadeOnDelete bool
	}
)

// KeyType is the kind of a key constraint.
type KeyType uint8

// Key types.
const (
	PrimaryKey KeyType = iota
	ForeignKey
)

// String returns the key type name.
func (k KeyType) String() string {
	if k == ForeignKey {
		return "FOREIGN KEY"
	}
	return "PRIMARY KEY"
}

// IsNullable reports whether the column accepts NULL.
func (c *Column) IsNullable() bool { return !c.IsRequired }

// Identity returns the first identity column of the table.
func (t *Table) Identity() *Column {
	for _, c := range t.OwnColumns {
		if c.IsIdentity {
			return c
		}
	}
	return nil
}

// Column returns the own column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.OwnColumns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Table returns the table with the given name.
func (db *Database) Table(name string) (*Table, bool) {
	for _, t := range db.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TableFor returns the table derived from the given type.
func (db *Database) TableFor(t *model.Type) (*Table, bool) {
	for _, tbl := range db.Tables {
		if tbl.SourceType != nil && tbl.SourceType.ID == t.ID {
			return tbl, true
		}
	}
	return nil, false
}

// Principal returns the table a foreign key column references, looked up
// through its primary key property.
func (db *Database) Principal(c *Column) (*Table, bool) {
	if c.PrimaryKeyProperty == nil || c.PrimaryKeyProperty.Owner == nil {
		return nil, false
	}
	return db.TableFor(c.PrimaryKeyProperty.Owner)
}
