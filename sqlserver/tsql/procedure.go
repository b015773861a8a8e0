package tsql

import (
	"strings"

	"github.com/syssam/relgen/sqlserver"
)

// WriteProcedure writes the CREATE PROCEDURE statement of p. It fails
// with a sqlserver.ProcedureError before writing anything when the
// procedure lacks the objects its body refers to.
func (w *Writer) WriteProcedure(p *sqlserver.Procedure) error {
	if err := checkProcedure(p); err != nil {
		return err
	}
	if !w.cfg.KeepIfExists {
		w.line("IF OBJECT_ID(" + sqlString(p.Name) + ", 'P') IS NOT NULL DROP PROC " + Quote(p.Name) + ";")
		w.line("GO")
		w.line("")
	}
	w.line("CREATE PROCEDURE " + Quote(p.Name))
	w.block(func() {
		for i, param := range p.Parameters {
			w.listItem(parameterDefinition(param), i == len(p.Parameters)-1)
		}
	})
	w.line("AS")
	w.beginEnd(func() {
		w.line("SET NOCOUNT ON")
		switch p.QueryType {
		case sqlserver.QueryInsert:
			w.insertBody(p)
		case sqlserver.QueryUpdate:
			w.updateBody(p)
		case sqlserver.QueryDelete:
			w.deleteBody(p)
		case sqlserver.QuerySelectSingle:
			w.selectBody(p)
		case sqlserver.QueryUpdateRelationship:
			w.updateRelationshipBody(p)
		}
	})
	return w.err
}

func checkProcedure(p *sqlserver.Procedure) error {
	if p.Table == nil {
		return sqlserver.NewProcedureError(p.Name, p.QueryType, "the related table is unknown")
	}
	switch p.QueryType {
	case sqlserver.QueryInsert, sqlserver.QueryUpdate, sqlserver.QueryDelete, sqlserver.QuerySelectSingle:
		return nil
	case sqlserver.QueryUpdateRelationship:
		dep := p.DependentColumn
		switch {
		case dep == nil || dep.Table == nil:
			return sqlserver.NewProcedureError(p.Name, p.QueryType, "the dependent column is unknown")
		case dep.Table.Identity() == nil:
			return sqlserver.NewProcedureError(p.Name, p.QueryType, "cannot determine the identity column of table "+dep.Table.Name)
		case p.Identity() == nil:
			return sqlserver.NewProcedureError(p.Name, p.QueryType, "cannot determine the identity parameter")
		}
		values := p.TableValued()
		if values == nil || values.TableType == nil || len(values.TableType.OwnColumns) == 0 {
			return sqlserver.NewProcedureError(p.Name, p.QueryType, "the values parameter has no valid table type")
		}
		return nil
	}
	return sqlserver.NewProcedureError(p.Name, p.QueryType, "unsupported query type")
}

func parameterDefinition(p *sqlserver.Parameter) string {
	var b strings.Builder
	b.WriteString(Param(p.Name))
	b.WriteString(" ")
	b.WriteString(p.TypeName)
	b.WriteString(typeSize(p.Length, p.Precision, p.Scale))
	if p.IsNullable {
		b.WriteString(" = NULL")
	}
	if p.IsOutput() {
		b.WriteString(" OUTPUT")
	}
	if p.IsReadOnly {
		b.WriteString(" READONLY")
	}
	return b.String()
}

// returnsValue reports whether the parameter only carries a value back.
func returnsValue(p *sqlserver.Parameter) bool {
	return p.Direction == sqlserver.Output || p.Direction == sqlserver.ReturnValue
}

func (w *Writer) insertBody(p *sqlserver.Procedure) {
	var (
		columns, values []string
		id              *sqlserver.Parameter
	)
	for _, param := range p.Parameters {
		if param.ColumnName == "" {
			w.cfg.Logger.Warn("cannot write INSERT clause for parameter, the column name is unknown",
				"procedure", p.Name, "parameter", param.Name)
			continue
		}
		if param.IsIdentity {
			id = param
		}
		if returnsValue(param) {
			continue
		}
		columns = append(columns, Quote(param.ColumnName))
		values = append(values, Param(param.Name))
	}
	w.line("INSERT INTO")
	if len(columns) == 0 {
		w.indented(Quote(p.Table.Name))
		w.line("DEFAULT VALUES")
	} else {
		w.indented(Quote(p.Table.Name) + " (" + strings.Join(columns, ", ") + ")")
		w.line("VALUES")
		w.indented("(" + strings.Join(values, ", ") + ")")
	}
	if id != nil {
		w.line("")
		w.line("SET " + Param(id.Name) + " = SCOPE_IDENTITY();")
	}
}

func (w *Writer) updateBody(p *sqlserver.Procedure) {
	var set, filters []*sqlserver.Parameter
	for _, param := range p.Parameters {
		switch {
		case returnsValue(param):
		case param.IsFilter:
			filters = append(filters, param)
		case param.ColumnName == "":
			w.cfg.Logger.Warn("cannot write UPDATE clause for parameter, the column name is unknown",
				"procedure", p.Name, "parameter", param.Name)
		default:
			set = append(set, param)
		}
	}
	if len(set) > 0 {
		w.line("UPDATE")
		w.indented(Quote(p.Table.Name))
		w.line("SET")
		w.level++
		for i, param := range set {
			w.listItem(Quote(param.ColumnName)+" = "+Param(param.Name), i == len(set)-1)
		}
		w.level--
	}
	w.where(p, filters)
}

func (w *Writer) deleteBody(p *sqlserver.Procedure) {
	var filters []*sqlserver.Parameter
	for _, param := range p.Parameters {
		if param.IsFilter && !returnsValue(param) {
			filters = append(filters, param)
		}
	}
	w.line("DELETE")
	w.indented(Quote(p.Table.Name))
	w.where(p, filters)
}

func (w *Writer) selectBody(p *sqlserver.Procedure) {
	if len(p.ResultSets) == 0 {
		w.cfg.Logger.Warn("skipping the body of stored procedure, there are no result sets", "procedure", p.Name)
		return
	}
	t := p.Table
	columns := p.ResultSets[0].Columns
	w.line("SELECT")
	w.level++
	for i, c := range columns {
		sel := Quote(c.SourceColumn)
		if c.SourceTable != "" {
			sel = Quote(c.SourceTable) + "." + sel
		}
		if c.Name != "" {
			sel += " AS " + Quote(c.Name)
		}
		w.listItem(sel, i == len(columns)-1)
	}
	w.level--
	w.line("FROM")
	w.level++
	w.line(Quote(t.Name))
	if pk := t.Identity(); pk != nil {
		for _, dep := range t.DependentColumns {
			if !dep.IsMany {
				continue
			}
			join := "LEFT JOIN " + Quote(dep.Table.Name)
			alias := dep.Table.Name
			if dep.Role != "" {
				alias = dep.Role
				join += " AS " + Quote(alias)
			}
			w.line(join + " ON " + Quote(alias) + "." + Quote(dep.Name) + " = " + Quote(t.Name) + "." + Quote(pk.Name))
		}
	}
	w.level--
	w.where(p, p.Filters())
}

// updateRelationshipBody deletes the dependent rows no longer listed and
// points the listed rows at the principal.
func (w *Writer) updateRelationshipBody(p *sqlserver.Procedure) {
	dep := p.DependentColumn
	table := Quote(dep.Table.Name)
	fk := Quote(dep.Name)
	depID := Quote(dep.Table.Identity().Name)
	id := Param(p.Identity().Name)
	values := p.TableValued()
	list := "(SELECT " + Quote(values.TableType.OwnColumns[0].Name) + " FROM " + Param(values.Name) + ")"

	w.line("DELETE " + table + " WHERE " + fk + " = " + id + " AND " + depID + " NOT IN " + list)
	w.line("UPDATE " + table + " SET " + fk + " = " + id + " WHERE " + depID + " IN " + list)
}

// where writes the WHERE clause. Nullable filters match any value when
// NULL is passed.
func (w *Writer) where(p *sqlserver.Procedure, filters []*sqlserver.Parameter) {
	var conds []string
	for _, f := range filters {
		if f.TableName == "" {
			w.cfg.Logger.Warn("cannot write WHERE clause for parameter, the table is unknown",
				"procedure", p.Name, "parameter", f.Name)
			continue
		}
		col := Quote(f.TableName) + "." + Quote(f.ColumnName)
		if f.IsNullable {
			conds = append(conds, col+" = ISNULL("+Param(f.Name)+", "+col+")")
		} else {
			conds = append(conds, col+" = "+Param(f.Name))
		}
	}
	if len(conds) == 0 {
		return
	}
	w.line("WHERE")
	w.level++
	for i, c := range conds {
		if i < len(conds)-1 {
			c += " AND"
		}
		w.line(c)
	}
	w.level--
}
