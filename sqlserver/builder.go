package sqlserver

import (
	"fmt"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
)

// Builder derives a SQL Server database from a model.
type Builder struct {
	cfg *Config
	rb  *relational.Builder
}

// NewBuilder returns a builder configured with the given options.
func NewBuilder(opts ...Option) (*Builder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	ropts := []relational.Option{
		relational.WithNameProvider(cfg.Names),
		relational.WithTypeNameProvider(cfg.Types),
		relational.WithColumnSpecProvider(cfg.Specs),
		relational.WithLogger(cfg.Logger),
	}
	rb, err := relational.NewBuilder(append(ropts, cfg.Relational...)...)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, rb: rb}, nil
}

// Config returns the builder configuration.
func (b *Builder) Config() *Config { return b.cfg }

// Build derives the relational database of m and adds keys, table types
// and stored procedures.
func (b *Builder) Build(m *model.Model) (*Database, error) {
	rdb, err := b.rb.Build(m)
	if err != nil {
		return nil, err
	}
	db := &Database{Database: rdb}
	b.createKeys(db)
	if err := b.createTableTypes(m, db); err != nil {
		return nil, err
	}
	if err := b.createProcedures(db); err != nil {
		return nil, err
	}
	return db, nil
}

// createKeys derives a foreign key per foreign key column and a primary
// key per identity column of tables with a source type.
func (b *Builder) createKeys(db *Database) {
	for _, t := range db.Tables {
		var keys []*relational.Key
		for _, c := range t.OwnColumns {
			if c.IsForeignKey {
				if k := b.foreignKey(db, c); k != nil {
					keys = append(keys, k)
				}
			}
			if c.IsIdentity && t.SourceType != nil {
				keys = append(keys, &relational.Key{
					Type:   relational.PrimaryKey,
					Name:   b.cfg.Names.PrimaryKeyName(t.SourceType),
					Column: c.Name,
				})
			}
		}
		t.Keys = keys
	}
}

func (b *Builder) foreignKey(db *Database, c *relational.Column) *relational.Key {
	pk := c.PrimaryKeyProperty
	if pk == nil || pk.Owner == nil || c.SourceProperty == nil {
		b.cfg.Logger.Warn("cannot create a foreign key without primary key property",
			"table", c.Table.Name, "column", c.Name)
		return nil
	}
	if _, ok := db.TableFor(pk.Owner); !ok {
		b.cfg.Logger.Debug("skipping foreign key to a type without table",
			"table", c.Table.Name, "column", c.Name, "principal", pk.Owner.String())
		return nil
	}
	return &relational.Key{
		Type:            relational.ForeignKey,
		Name:            b.cfg.Names.ForeignKeyName(c.SourceProperty, pk),
		Column:          c.Name,
		PrincipalTable:  b.cfg.Names.TableName(pk.Owner),
		PrincipalColumn: b.cfg.Names.ColumnName(pk),
		CascadeOnDelete: b.cfg.CascadeOnComposition && c.SourceProperty.Aggregation == model.AggregationComposite,
	}
}

// createTableTypes derives the table types of the selected types and
// makes sure the identity table type exists.
func (b *Builder) createTableTypes(m *model.Model, db *Database) error {
	identityName, err := b.cfg.Types.TypeName(b.cfg.IdentityType)
	if err != nil {
		return fmt.Errorf("sqlserver: identity type: %w", err)
	}
	for _, t := range m.AllTypes() {
		if !b.cfg.includeTableType(t) {
			continue
		}
		if !b.cfg.Specs.RequiresSimpleTableType(t) {
			tt, err := b.complexTableType(t, db.Associations)
			if err != nil {
				return err
			}
			if tt != nil {
				db.TableTypes = append(db.TableTypes, tt)
			}
			continue
		}
		sqlType, err := b.cfg.Types.TypeName(t)
		if err != nil || sqlType == "" {
			b.cfg.Logger.Warn("cannot create a simple table type, the type cannot be mapped to a sql type",
				"type", t.String(), "error", err)
			continue
		}
		tt := b.simpleTableType(t, sqlType)
		db.TableTypes = append(db.TableTypes, tt)
		if sqlType == identityName && db.IdentityTableType == nil {
			db.IdentityTableType = tt
		}
	}
	if db.IdentityTableType == nil {
		db.IdentityTableType = b.simpleTableType(b.cfg.IdentityType, identityName)
		db.TableTypes = append(db.TableTypes, db.IdentityTableType)
	}
	return nil
}

func (b *Builder) simpleTableType(t *model.Type, sqlType string) *relational.Table {
	tt := &relational.Table{
		Name:       b.cfg.Names.SimpleTableTypeName(t, sqlType),
		SourceType: t,
	}
	tt.OwnColumns = []*relational.Column{{
		Name:       b.cfg.Names.SimpleTableTypeColumnName(sqlType),
		TypeName:   sqlType,
		Length:     b.cfg.Specs.Length(sqlType, nil),
		Precision:  b.cfg.Specs.Precision(sqlType, nil),
		Scale:      b.cfg.Specs.Scale(sqlType, nil),
		IsRequired: true,
		Table:      tt,
	}}
	return tt
}

// complexTableType runs the table synthesis again for t. Relationships
// of the table type are not resolved.
func (b *Builder) complexTableType(t *model.Type, amap *relational.AssociationMap) (*relational.Table, error) {
	tt, _, err := b.rb.SynthesizeTable(t, amap)
	if err != nil || tt == nil {
		return nil, err
	}
	tt.Name = b.cfg.Names.ComplexTableTypeName(t)
	return b.rb.Config().Factory.CreateTable(tt), nil
}

func (b *Builder) createProcedures(db *Database) error {
	pb := newProcedureBuilder(b.cfg, db.IdentityTableType)
	for _, t := range db.Tables {
		if t.SourceType == nil {
			continue
		}
		for _, kind := range b.cfg.ProcedureKinds() {
			if !b.cfg.includeProcedure(kind, t.SourceType, t) {
				continue
			}
			var err error
			switch kind {
			case InsertProcedure:
				err = pb.buildInsert(t)
			case UpdateByIDProcedure:
				err = pb.buildUpdateByID(t)
			case SelectByIDProcedure:
				err = pb.buildSelectByID(t)
			case DeleteByIDProcedure:
				err = pb.buildDeleteByID(t)
			}
			if err != nil {
				return err
			}
		}
	}
	db.Procedures = pb.result
	return nil
}
