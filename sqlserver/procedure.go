package sqlserver

import (
	"slices"

	"github.com/syssam/relgen/relational"
)

// paramIncludes selects the own columns mapped to parameters.
type paramIncludes uint8

const (
	includeIdentity paramIncludes = 1 << iota
	includeOther

	includeAll = includeIdentity | includeOther
)

type paramOptions struct {
	includes         paramIncludes
	identityAsOutput bool
	identityAsFilter bool
}

func (o paramOptions) accepts(c *relational.Column) bool {
	if c.IsIdentity {
		return o.includes&includeIdentity != 0
	}
	return o.includes&includeOther != 0
}

// procedureBuilder collects derived procedures by name. The first
// procedure with a given name wins.
type procedureBuilder struct {
	cfg    *Config
	idType *relational.Table
	result []*Procedure
	byName map[string]*Procedure
}

func newProcedureBuilder(cfg *Config, identityTableType *relational.Table) *procedureBuilder {
	return &procedureBuilder{
		cfg:    cfg,
		idType: identityTableType,
		byName: make(map[string]*Procedure),
	}
}

func (b *procedureBuilder) add(p *Procedure) bool {
	if _, ok := b.byName[p.Name]; ok {
		b.cfg.Logger.Warn("not adding stored procedure, a procedure with the same name already exists",
			"procedure", p.Name)
		return false
	}
	b.byName[p.Name] = p
	b.result = append(b.result, p)
	return true
}

func (b *procedureBuilder) newProcedure(t *relational.Table, qt QueryType, params []*Parameter, dependent *relational.Column) (*Procedure, error) {
	p := &Procedure{
		QueryType:       qt,
		ModelType:       t.SourceType,
		Table:           t,
		Parameters:      params,
		DependentColumn: dependent,
	}
	name, err := b.cfg.Names.ProcedureName(p)
	if err != nil {
		return nil, err
	}
	p.Name = name
	return p, nil
}

func (b *procedureBuilder) buildInsert(t *relational.Table) error {
	params := b.parameters(t, paramOptions{includes: includeAll, identityAsOutput: true})
	p, err := b.newProcedure(t, QueryInsert, params, nil)
	if err != nil {
		return err
	}
	if b.add(p) {
		return b.buildRelationships(t)
	}
	return nil
}

func (b *procedureBuilder) buildUpdateByID(t *relational.Table) error {
	params := b.parameters(t, paramOptions{includes: includeAll, identityAsFilter: true})
	p, err := b.newProcedure(t, QueryUpdate, params, nil)
	if err != nil {
		return err
	}
	if b.add(p) {
		return b.buildRelationships(t)
	}
	return nil
}

func (b *procedureBuilder) buildDeleteByID(t *relational.Table) error {
	params := b.parameters(t, paramOptions{includes: includeIdentity, identityAsFilter: true})
	p, err := b.newProcedure(t, QueryDelete, params, nil)
	if err != nil {
		return err
	}
	b.add(p)
	return nil
}

func (b *procedureBuilder) buildSelectByID(t *relational.Table) error {
	params := b.parameters(t, paramOptions{includes: includeIdentity, identityAsFilter: true})
	p, err := b.newProcedure(t, QuerySelectSingle, params, nil)
	if err != nil {
		return err
	}
	p.ResultSets = []*ResultSet{BuildResultSet(t, b.cfg.Names)}
	b.add(p)
	return nil
}

// buildRelationships derives an UpdateRelationship procedure for every
// one-to-many relationship the table is the principal of.
func (b *procedureBuilder) buildRelationships(t *relational.Table) error {
	for _, c := range t.DependentColumns {
		if !c.IsMany {
			continue
		}
		if err := b.buildUpdateRelationship(t, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *procedureBuilder) buildUpdateRelationship(t *relational.Table, dependent *relational.Column) error {
	idParam := b.identityParameter(t, 0)
	if idParam == nil {
		b.cfg.Logger.Error("cannot build relationship procedure, the identity column of the table is unknown",
			"table", t.Name, "column", dependent.Name)
		return nil
	}
	idColumn := dependent.Table.Identity()
	if idColumn == nil {
		b.cfg.Logger.Error("cannot build relationship procedure, the dependent table has no identity column",
			"table", dependent.Table.Name, "column", dependent.Name)
		return nil
	}
	params := []*Parameter{idParam, b.identityListParameter(idColumn, 1)}
	p, err := b.newProcedure(t, QueryUpdateRelationship, params, dependent)
	if err != nil {
		return err
	}
	// Insert and Update both derive the relationship procedures.
	if _, ok := b.byName[p.Name]; !ok {
		b.add(p)
	}
	return nil
}

// identityListParameter is a read-only table-valued parameter carrying
// the identities of the dependent rows.
func (b *procedureBuilder) identityListParameter(idColumn *relational.Column, index int) *Parameter {
	p := &Parameter{
		Name:          b.cfg.Names.ParameterName(idColumn.Name, true),
		Index:         index,
		TypeName:      b.idType.Name,
		ColumnName:    idColumn.Name,
		Direction:     Input,
		IsReadOnly:    true,
		IsTableValued: true,
		IsMultiValued: true,
		TableType:     b.idType,
	}
	if b.idType.SourceType != nil {
		p.ObjectTypeName = b.idType.SourceType.Name
	}
	return p
}

func (b *procedureBuilder) identityParameter(t *relational.Table, index int) *Parameter {
	c := t.Identity()
	if c == nil || c.SourceProperty == nil || c.SourceProperty.Type == nil {
		return nil
	}
	return &Parameter{
		Name:           b.cfg.Names.ParameterName(c.Name, false),
		Index:          index,
		TypeName:       c.TypeName,
		Length:         c.Length,
		Precision:      c.Precision,
		Scale:          c.Scale,
		TableName:      t.Name,
		ColumnName:     c.Name,
		ObjectTypeName: c.SourceProperty.Type.Name,
		Property:       c.SourceProperty,
		Direction:      Input,
		IsIdentity:     true,
	}
}

// parameters maps own columns to parameters, sorted by direction.
// Synthesized one-to-many foreign keys are set through relationship
// procedures and get no parameter.
func (b *procedureBuilder) parameters(t *relational.Table, opts paramOptions) []*Parameter {
	var params []*Parameter
	for _, c := range t.OwnColumns {
		if !opts.accepts(c) {
			continue
		}
		if c.IsMany {
			b.cfg.Logger.Debug("not creating parameter for a one-to-many foreign key", "table", t.Name, "column", c.Name)
			continue
		}
		prop := c.SourceProperty
		if prop == nil || prop.Type == nil {
			b.cfg.Logger.Warn("not creating parameter, the property type is unknown", "table", t.Name, "column", c.Name)
			continue
		}
		dir := Input
		if c.IsIdentity && opts.identityAsOutput {
			dir = Output
		}
		params = append(params, &Parameter{
			Name:           b.cfg.Names.ParameterName(c.Name, false),
			TypeName:       c.TypeName,
			Length:         c.Length,
			Precision:      c.Precision,
			Scale:          c.Scale,
			TableName:      c.Table.Name,
			ColumnName:     c.Name,
			ObjectTypeName: prop.Type.Name,
			Property:       prop,
			Direction:      dir,
			IsIdentity:     c.IsIdentity,
			IsFilter:       c.IsIdentity && opts.identityAsFilter,
			IsNullable:     c.IsNullable(),
		})
	}
	SortParameters(params)
	return params
}

// SortParameters stable sorts parameters by direction and renumbers them.
func SortParameters(params []*Parameter) {
	slices.SortStableFunc(params, func(a, b *Parameter) int {
		return int(a.Direction) - int(b.Direction)
	})
	for i, p := range params {
		p.Index = i
	}
}

// BuildResultSet shapes the rows returned when selecting a row of t: the
// navigable own columns, then the columns of every table joined through
// a one-to-many relationship, aliased by role or table name.
func BuildResultSet(t *relational.Table, names relational.NameProvider) *ResultSet {
	rs := &ResultSet{}
	for _, c := range t.OwnColumns {
		if !c.IsNavigable {
			continue
		}
		rs.Columns = append(rs.Columns, resultSetColumn(names, t.Name, c, nil, len(rs.Columns)))
	}
	for _, dep := range t.DependentColumns {
		if !dep.IsMany {
			continue
		}
		source := dep.Role
		if source == "" {
			source = dep.Table.Name
		}
		for _, c := range dep.Table.OwnColumns {
			if c.IsMany {
				continue
			}
			rs.Columns = append(rs.Columns, resultSetColumn(names, source, c, dep, len(rs.Columns)))
		}
	}
	return rs
}

func resultSetColumn(names relational.NameProvider, table string, c, parent *relational.Column, ordinal int) *ResultSetColumn {
	rc := &ResultSetColumn{
		Ordinal:      ordinal,
		Name:         c.Name,
		SourceTable:  table,
		SourceColumn: c.Name,
		IsForeignKey: c.IsForeignKey,
		IsNullable:   c.IsNullable(),
		TypeName:     c.TypeName,
	}
	if c.SourceProperty != nil {
		rc.ModelTypeName = c.SourceProperty.TypeName()
	}
	if parent != nil {
		rc.Name = names.ColumnAlias(table, c.Name)
		rc.ParentColumn = parent.Name
		rc.IsJoined = true
	}
	return rc
}
