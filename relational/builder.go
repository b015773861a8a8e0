package relational

import (
	"github.com/syssam/relgen/model"
)

// PendingRelationship links a foreign key column to the principal type it
// references. Pending relationships are produced by SynthesizeTable and
// consumed by ResolveRelationships once every table exists.
type PendingRelationship struct {
	Column    *Column
	Principal *model.Type
}

// Builder derives a relational Database from a model. A Builder holds no
// state between builds, but it is not meant for concurrent use.
type Builder struct {
	cfg *Config
}

// NewBuilder returns a builder configured with the given options.
func NewBuilder(opts ...Option) (*Builder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// Config returns the builder configuration.
func (b *Builder) Config() *Config { return b.cfg }

// Build runs the derivation pipeline: association analysis, table
// synthesis, relationship resolution and dependency sort.
func (b *Builder) Build(m *model.Model) (*Database, error) {
	amap := b.AnalyzeAssociations(m)
	var (
		tables  []*Table
		pending []PendingRelationship
	)
	for _, t := range m.AllTypes() {
		if !b.cfg.include(t) {
			continue
		}
		table, rels, err := b.SynthesizeTable(t, amap)
		if err != nil {
			return nil, err
		}
		if table == nil {
			continue
		}
		b.cfg.Logger.Debug("created table", "table", table.Name, "type", t.Name)
		tables = append(tables, table)
		pending = append(pending, rels...)
	}
	for _, r := range ResolveRelationships(tables, pending) {
		b.cfg.Logger.Debug("dropping relationship without principal table",
			"table", r.Column.Table.Name, "column", r.Column.Name, "principal", r.Principal.String())
	}
	sorted, err := SortTables(tables)
	if err != nil {
		return nil, err
	}
	for i, t := range sorted {
		sorted[i] = b.cfg.Factory.CreateTable(t)
	}
	db := &Database{Name: m.Name, Tables: sorted, Associations: amap}
	return b.cfg.Factory.CreateDatabase(db), nil
}

// AnalyzeAssociations builds the association map using the configured
// relationship predicate.
func (b *Builder) AnalyzeAssociations(m *model.Model) *AssociationMap {
	return AnalyzeAssociations(m, b.cfg.Specs.IsRelationship)
}

// SynthesizeTable derives the table of a single type. It returns a nil
// table for unnamed types. Foreign key columns are returned as pending
// relationships to be resolved against the principal tables.
func (b *Builder) SynthesizeTable(t *model.Type, amap *AssociationMap) (*Table, []PendingRelationship, error) {
	if t.Name == "" {
		b.cfg.Logger.Warn("cannot build a table from a type without name", "type", t.ID)
		return nil, nil, nil
	}
	table := &Table{Name: b.cfg.Names.TableName(t), SourceType: t}
	var pending []PendingRelationship
	if t.IsMemberedClassifier() {
		for _, p := range t.Attributes {
			isFK := sameType(p.Owner, t) && b.cfg.Specs.IsRelationship(p)
			// Multi-valued relationships live on the other side or in a
			// junction table.
			if isFK && p.IsMultivalued() {
				continue
			}
			col, err := b.attributeColumn(table, t, p, isFK)
			if err != nil {
				return nil, nil, err
			}
			if col == nil {
				continue
			}
			table.OwnColumns = append(table.OwnColumns, col)
			if isFK {
				pending = append(pending, PendingRelationship{Column: col, Principal: p.Type})
			}
		}
	}
	for _, info := range amap.For(t) {
		if info.FromPropertyIsOwnedByType || !info.IsOneToMany {
			continue
		}
		id := model.FindIdentity(info.FromType)
		if id == nil {
			return nil, nil, NewIdentityError(info.FromType.String(), table.Name,
				"cannot create the foreign key of a one-to-many relationship")
		}
		name := b.cfg.Names.ColumnName(id)
		role := b.cfg.Names.ColumnName(info.FromProperty)
		if role != "" {
			name += "_" + role
		} else {
			// An unnamed end would give the column the name of the
			// dependent's own identity.
			name += "_" + b.cfg.Names.TableName(info.FromType)
			b.cfg.Logger.Warn("one-to-many end has no name, using the principal table name",
				"table", table.Name, "column", name, "principal", info.FromType.String())
		}
		b.cfg.Logger.Debug("adding one-to-many foreign key",
			"table", table.Name, "column", name, "principal", info.FromType.String())
		col, err := b.column(table, role, info.FromProperty, id, name, true, false)
		if err != nil {
			return nil, nil, err
		}
		col.IsMany = true
		table.OwnColumns = append(table.OwnColumns, col)
		pending = append(pending, PendingRelationship{Column: col, Principal: info.FromType})
	}
	return table, pending, nil
}

func (b *Builder) attributeColumn(table *Table, t *model.Type, p *model.Property, isFK bool) (*Column, error) {
	if p.Name == "" {
		b.cfg.Logger.Warn("cannot build a column from an attribute without name",
			"type", t.Name, "attribute", p.ID, "table", table.Name)
		return nil, nil
	}
	if !isFK {
		return b.column(table, "", p, nil, b.cfg.Names.ColumnName(p), false, true)
	}
	id := model.FindIdentity(p.Type)
	if id == nil {
		return nil, NewIdentityError(p.Type.String(), table.Name,
			"cannot create the foreign key for attribute "+p.QualifiedName())
	}
	return b.column(table, "", p, id, b.cfg.Names.ForeignKeyColumnName(p), true, true)
}

// column builds a column. The SQL type of a foreign key is the type of the
// referenced identity.
func (b *Builder) column(table *Table, role string, source, pk *model.Property, name string, isFK, navigable bool) (*Column, error) {
	typed := source
	if isFK && pk != nil {
		typed = pk
	}
	if typed.Type == nil {
		return nil, NewTypeError(ownerName(typed), typed.Name, "the attribute has no type", nil)
	}
	sqlType, err := b.cfg.Types.TypeName(typed.Type)
	if err != nil {
		if IsIdentityError(err) || IsTypeError(err) {
			return nil, err
		}
		return nil, NewTypeError(ownerName(typed), typed.Name, "", err)
	}
	if sqlType == "" {
		return nil, NewTypeError(ownerName(typed), typed.Name, "empty type name", nil)
	}
	col := &Column{
		Name:         name,
		TypeName:     sqlType,
		Length:       b.cfg.Specs.Length(sqlType, source),
		Precision:    b.cfg.Specs.Precision(sqlType, source),
		Scale:        b.cfg.Specs.Scale(sqlType, source),
		IsIdentity:   !isFK && source.IsID,
		IsRequired:   !source.IsOptional() || source.IsID,
		IsForeignKey: isFK,
		IsNavigable:  navigable,
		Role:         role,
		Table:        table,
	}
	col.SourceProperty = source
	if isFK {
		col.PrimaryKeyProperty = pk
	}
	return b.cfg.Factory.CreateColumn(col), nil
}

func ownerName(p *model.Property) string {
	if p.Owner != nil {
		return p.Owner.String()
	}
	if p.Association != nil {
		return p.Association.Name
	}
	return ""
}

// ResolveRelationships appends every pending foreign key column to the
// dependent columns of its principal table. Relationships whose principal
// has no table (for example because it was filtered out) are dropped and
// returned.
func ResolveRelationships(tables []*Table, pending []PendingRelationship) []PendingRelationship {
	byType := make(map[string]*Table, len(tables))
	for _, t := range tables {
		if t.SourceType != nil {
			byType[t.SourceType.ID] = t
		}
	}
	var dropped []PendingRelationship
	for _, r := range pending {
		principal, ok := byType[r.Principal.ID]
		if !ok {
			dropped = append(dropped, r)
			continue
		}
		principal.DependentColumns = append(principal.DependentColumns, r.Column)
	}
	return dropped
}
