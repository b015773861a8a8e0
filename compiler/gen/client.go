package gen

import (
	"fmt"
	"go/token"
	"slices"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
)

// Identifiers declared by client.go.
var clientNames = []string{"Client", "Option", "TableValue", "NewClient", "Tx"}

// Local names used in generated method bodies.
var localNames = []string{"c", "ctx", "rows", "err", "res"}

type (
	// entity is the Go struct of a table with a source type.
	entity struct {
		table  *relational.Table
		name   string
		plural string // empty when the name is taken
		recv   string // variable name in method bodies
		fields []*entityField
		column map[string]*entityField
	}

	entityField struct {
		column *relational.Column
		name   string
	}

	// row is the Go struct of a multi-column table type.
	row struct {
		table  *relational.Table
		name   string
		fields []*entityField
	}

	// clientGenerator renders the Go client of a database.
	clientGenerator struct {
		cfg      *Config
		db       *sqlserver.Database
		entities []*entity
		byTable  map[*relational.Table]*entity
		rows     []*row
		byType   map[*relational.Table]*row
		methods  map[*sqlserver.Procedure]string
	}
)

func (f *entityField) code() *jen.Statement {
	return goType(f.column.TypeName, f.column.IsNullable())
}

func (f *entityField) tag() map[string]string {
	tag := f.column.Name
	if f.column.IsNullable() {
		tag += ",omitempty"
	}
	return map[string]string{"json": tag}
}

// names tracks the declared identifiers of a scope.
type names map[string]string

func (n names) declare(name, what string) error {
	if prev, ok := n[name]; ok {
		return NewGenerationError("client", "", fmt.Sprintf("%s and %s are both named %s", prev, what, name), nil)
	}
	n[name] = what
	return nil
}

func newClientGenerator(cfg *Config, db *sqlserver.Database) (*clientGenerator, error) {
	g := &clientGenerator{
		cfg:     cfg,
		db:      db,
		byTable: make(map[*relational.Table]*entity),
		byType:  make(map[*relational.Table]*row),
		methods: make(map[*sqlserver.Procedure]string),
	}
	global := make(names)
	for _, n := range clientNames {
		global[n] = "client " + n
	}
	for _, t := range db.Tables {
		if t.SourceType == nil {
			continue
		}
		e := &entity{table: t, name: pascal(t.SourceType.Name)}
		if err := global.declare(e.name, "table "+t.Name); err != nil {
			return nil, err
		}
		fields, err := structFields(t, true)
		if err != nil {
			return nil, err
		}
		e.fields = fields
		e.column = make(map[string]*entityField, len(fields))
		for _, f := range fields {
			e.column[f.column.Name] = f
		}
		e.recv = receiver(e.name)
		if e.recv == "" || token.IsKeyword(e.recv) || slices.Contains(localNames, e.recv) {
			e.recv = "e"
		}
		g.entities = append(g.entities, e)
		g.byTable[t] = e
	}
	for _, e := range g.entities {
		if p := plural(e.name); global.declare(p, "slice of "+e.name) == nil {
			e.plural = p
		}
	}
	for _, t := range db.TableTypes {
		if len(t.OwnColumns) < 2 {
			continue
		}
		r := &row{table: t, name: pascal(t.Name) + "Row"}
		if err := global.declare(r.name, "table type "+t.Name); err != nil {
			return nil, err
		}
		fields, err := structFields(t, false)
		if err != nil {
			return nil, err
		}
		r.fields = fields
		g.rows = append(g.rows, r)
		g.byType[t] = r
	}
	methods := names{"Tx": "method Tx"}
	for _, p := range db.Procedures {
		name := pascal(p.Name)
		if err := methods.declare(name, "procedure "+p.Name); err != nil {
			return nil, err
		}
		g.methods[p] = name
	}
	return g, nil
}

// structFields maps the own columns of t to struct fields.
func structFields(t *relational.Table, navigable bool) ([]*entityField, error) {
	var (
		fields []*entityField
		seen   = make(names)
	)
	for _, c := range t.OwnColumns {
		if navigable && !c.IsNavigable {
			continue
		}
		f := &entityField{column: c, name: pascal(c.Name)}
		if err := seen.declare(f.name, "column "+t.Name+"."+c.Name); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (g *clientGenerator) sqlPkg() string     { return g.cfg.Runtime + "/dialect/sql" }
func (g *clientGenerator) dialectPkg() string { return g.cfg.Runtime + "/dialect" }

// newFile creates a new jennifer file with the standard header comment.
func (g *clientGenerator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	f.ImportName(g.sqlPkg(), "sql")
	f.ImportName(g.dialectPkg(), "dialect")
	f.ImportName("github.com/google/uuid", "uuid")
	return f
}

// files returns the client files: client.go, a file per entity and
// tabletype.go when the database has multi-column table types.
func (g *clientGenerator) files() ([]fileTask, error) {
	files := []fileTask{{name: "client.go", file: g.genClient()}}
	for _, e := range g.entities {
		f, err := g.genEntity(e)
		if err != nil {
			return nil, err
		}
		files = append(files, fileTask{name: strings.ToLower(e.name) + ".go", file: f})
	}
	if len(g.rows) > 0 {
		files = append(files, fileTask{name: "tabletype.go", file: g.genRows()})
	}
	seen := make(names)
	for _, f := range files {
		if err := seen.declare(f.name, "file"); err != nil {
			return nil, NewGenerationError("client", f.name, "duplicate file", nil)
		}
	}
	return files, nil
}

func (g *clientGenerator) genClient() *jen.File {
	f := g.newFile()
	f.PackageComment(fmt.Sprintf("Package %s calls the stored procedures of the %s database.", g.cfg.Package, g.db.Name))

	f.Comment("Client calls the stored procedures of the database.")
	f.Type().Id("Client").Struct(
		jen.Id("drv").Qual(g.dialectPkg(), "ExecQuerier"),
		jen.Id("tv").Qual(g.sqlPkg(), "TableValue"),
	)

	f.Comment("Option configures a Client.")
	f.Type().Id("Option").Func().Params(jen.Op("*").Id("Client"))

	f.Comment("TableValue sets the conversion of table-valued parameters to the")
	f.Comment("values expected by the database driver.")
	f.Func().Id("TableValue").Params(jen.Id("tv").Qual(g.sqlPkg(), "TableValue")).Id("Option").Block(
		jen.Return(jen.Func().Params(jen.Id("c").Op("*").Id("Client")).Block(
			jen.Id("c").Dot("tv").Op("=").Id("tv"),
		)),
	)

	f.Comment("NewClient returns a client executing the calls on drv.")
	f.Func().Id("NewClient").Params(
		jen.Id("drv").Qual(g.dialectPkg(), "ExecQuerier"),
		jen.Id("opts").Op("...").Id("Option"),
	).Op("*").Id("Client").Block(
		jen.Id("c").Op(":=").Op("&").Id("Client").Values(jen.Dict{jen.Id("drv"): jen.Id("drv")}),
		jen.For(jen.List(jen.Id("_"), jen.Id("opt")).Op(":=").Range().Id("opts")).Block(
			jen.Id("opt").Call(jen.Id("c")),
		),
		jen.Return(jen.Id("c")),
	)

	f.Comment("Tx is a client bound to a transaction.")
	f.Type().Id("Tx").Struct(
		jen.Op("*").Id("Client"),
		jen.Id("tx").Qual(g.dialectPkg(), "Tx"),
	)

	f.Comment("Tx starts a transaction. The driver of the client must be a dialect.Driver.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Tx").Params(
		jen.Id("ctx").Qual("context", "Context"),
	).Params(jen.Op("*").Id("Tx"), jen.Error()).Block(
		jen.List(jen.Id("drv"), jen.Id("ok")).Op(":=").Id("c").Dot("drv").Assert(jen.Qual(g.dialectPkg(), "Driver")),
		jen.If(jen.Op("!").Id("ok")).Block(
			jen.Return(jen.Nil(), jen.Qual("errors", "New").Call(jen.Lit(g.cfg.Package+": driver does not support transactions"))),
		),
		jen.List(jen.Id("tx"), jen.Err()).Op(":=").Id("drv").Dot("Tx").Call(jen.Id("ctx")),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Op("&").Id("Tx").Values(jen.Dict{
			jen.Id("Client"): jen.Op("&").Id("Client").Values(jen.Dict{
				jen.Id("drv"): jen.Id("tx"),
				jen.Id("tv"):  jen.Id("c").Dot("tv"),
			}),
			jen.Id("tx"): jen.Id("tx"),
		}), jen.Nil()),
	)

	f.Comment("Commit commits the transaction.")
	f.Func().Params(jen.Id("tx").Op("*").Id("Tx")).Id("Commit").Params().Error().Block(
		jen.Return(jen.Id("tx").Dot("tx").Dot("Commit").Call()),
	)
	f.Comment("Rollback rolls back the transaction.")
	f.Func().Params(jen.Id("tx").Op("*").Id("Tx")).Id("Rollback").Params().Error().Block(
		jen.Return(jen.Id("tx").Dot("tx").Dot("Rollback").Call()),
	)

	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("call").Params(jen.Id("procedure").String()).Op("*").Qual(g.sqlPkg(), "Call").Block(
		jen.Return(jen.Qual(g.sqlPkg(), "NewCall").Call(jen.Id("procedure")).Dot("Convert").Call(jen.Id("c").Dot("tv"))),
	)
	return f
}

func (g *clientGenerator) genEntity(e *entity) (*jen.File, error) {
	f := g.newFile()
	f.Commentf("%s is a row of the %s table.", e.name, e.table.Name)
	f.Type().Id(e.name).StructFunc(func(group *jen.Group) {
		for _, field := range e.fields {
			group.Id(field.name).Add(field.code()).Tag(field.tag())
		}
	})
	if e.plural != "" {
		f.Commentf("%s is a slice of %s.", e.plural, e.name)
		f.Type().Id(e.plural).Index().Op("*").Id(e.name)
	}
	for _, p := range g.db.Procedures {
		if p.Table != e.table {
			continue
		}
		if err := g.genMethod(f, e, p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (g *clientGenerator) genRows() *jen.File {
	f := g.newFile()
	for _, r := range g.rows {
		f.Commentf("%s is a row of the %s table type.", r.name, r.table.Name)
		f.Type().Id(r.name).StructFunc(func(group *jen.Group) {
			for _, field := range r.fields {
				group.Id(field.name).Add(field.code()).Tag(field.tag())
			}
		})
	}
	return f
}

func (g *clientGenerator) genMethod(f *jen.File, e *entity, p *sqlserver.Procedure) error {
	name := g.methods[p]
	switch p.QueryType {
	case sqlserver.QueryInsert, sqlserver.QueryUpdate:
		return g.genEntityMethod(f, e, p, name)
	case sqlserver.QuerySelectSingle:
		return g.genSelect(f, e, p, name)
	case sqlserver.QueryDelete, sqlserver.QueryUpdateRelationship:
		return g.genExec(f, e, p, name)
	}
	return NewGenerationError("client", "", fmt.Sprintf("unsupported query type %s of procedure %s", p.QueryType, p.Name), nil)
}

// genEntityMethod generates a method passing the fields of an entity:
//
//	func (c *Client) InsertDepartment(ctx context.Context, d *Department) error
func (g *clientGenerator) genEntityMethod(f *jen.File, e *entity, p *sqlserver.Procedure, name string) error {
	call := jen.Id("c").Dot("call").Call(jen.Lit(p.Name))
	for _, param := range p.Parameters {
		field, ok := e.column[param.ColumnName]
		if !ok || param.IsTableValued {
			return NewGenerationError("client", "", fmt.Sprintf("parameter %s of %s maps no field of %s", param.Name, p.Name, e.name), nil)
		}
		value := jen.Id(e.recv).Dot(field.name)
		switch param.Direction {
		case sqlserver.Output:
			call.Dot("Out").Call(jen.Lit(param.Name), jen.Op("&").Add(value))
		case sqlserver.InputOutput:
			call.Dot("InOut").Call(jen.Lit(param.Name), jen.Op("&").Add(value))
		default:
			call.Dot("Arg").Call(jen.Lit(param.Name), value)
		}
	}
	if p.QueryType == sqlserver.QueryInsert {
		f.Commentf("%s inserts %s. The identity set by the database is", name, e.recv)
		f.Comment("written back to it.")
	} else {
		f.Commentf("%s updates the row of %s.", name, e.recv)
	}
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id(name).Params(
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id(e.recv).Op("*").Id(e.name),
	).Error().Block(
		jen.List(jen.Id("_"), jen.Err()).Op(":=").Qual(g.sqlPkg(), "ExecCall").Call(jen.Id("ctx"), jen.Id("c").Dot("drv"), call),
		jen.Return(jen.Err()),
	)
	return nil
}

// argument is a method argument mapped to a parameter.
type argument struct {
	param *sqlserver.Parameter
	name  string
	typ   *jen.Statement
}

func (g *clientGenerator) arguments(e *entity, p *sqlserver.Procedure) ([]*argument, error) {
	var (
		args []*argument
		seen = make(names)
	)
	for _, n := range localNames {
		seen[n] = "local " + n
	}
	seen[e.recv] = "receiver " + e.recv
	for _, param := range p.Parameters {
		a := &argument{param: param, name: camel(param.Name)}
		switch {
		case param.IsTableValued:
			if dep := p.DependentColumn; dep != nil && dep.Table != nil && dep.Table.SourceType != nil {
				a.name = camel(plural(pascal(dep.Table.SourceType.Name)))
			}
			elem, err := g.tableValueType(param)
			if err != nil {
				return nil, err
			}
			a.typ = jen.Index().Add(elem)
		case param.IsOutput():
			a.typ = jen.Op("*").Add(goType(param.TypeName, false))
		default:
			a.typ = goType(param.TypeName, param.IsNullable)
		}
		if token.IsKeyword(a.name) || seen[a.name] != "" {
			a.name += "Arg"
		}
		if err := seen.declare(a.name, "parameter "+param.Name); err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, nil
}

// tableValueType returns the Go type of a row of a table-valued
// parameter.
func (g *clientGenerator) tableValueType(param *sqlserver.Parameter) (*jen.Statement, error) {
	tt := param.TableType
	if tt == nil {
		return nil, NewGenerationError("client", "", "table-valued parameter "+param.Name+" has no table type", nil)
	}
	if r, ok := g.byType[tt]; ok {
		return jen.Id(r.name), nil
	}
	if len(tt.OwnColumns) != 1 {
		return nil, NewGenerationError("client", "", "table type "+tt.Name+" has no columns", nil)
	}
	return goType(tt.OwnColumns[0].TypeName, false), nil
}

func (g *clientGenerator) argCall(p *sqlserver.Procedure, args []*argument) *jen.Statement {
	call := jen.Id("c").Dot("call").Call(jen.Lit(p.Name))
	for _, a := range args {
		switch {
		case a.param.IsTableValued:
			call.Dot("Table").Call(jen.Lit(a.param.Name), jen.Lit(a.param.TypeName), jen.Id(a.name))
		case a.param.Direction == sqlserver.Output:
			call.Dot("Out").Call(jen.Lit(a.param.Name), jen.Id(a.name))
		case a.param.Direction == sqlserver.InputOutput:
			call.Dot("InOut").Call(jen.Lit(a.param.Name), jen.Id(a.name))
		default:
			call.Dot("Arg").Call(jen.Lit(a.param.Name), jen.Id(a.name))
		}
	}
	return call
}

func params(args []*argument) []jen.Code {
	out := []jen.Code{jen.Id("ctx").Qual("context", "Context")}
	for _, a := range args {
		out = append(out, jen.Id(a.name).Add(a.typ))
	}
	return out
}

// genExec generates a method that executes a procedure with its
// parameters as arguments.
func (g *clientGenerator) genExec(f *jen.File, e *entity, p *sqlserver.Procedure, name string) error {
	args, err := g.arguments(e, p)
	if err != nil {
		return err
	}
	switch p.QueryType {
	case sqlserver.QueryDelete:
		f.Commentf("%s deletes the %s with the given identity.", name, e.name)
	default:
		f.Commentf("%s calls the %s stored procedure.", name, p.Name)
		if dep := p.DependentColumn; dep != nil && dep.Table != nil {
			f.Commentf("It references the %s from the given %s rows.", e.name, dep.Table.Name)
		}
	}
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id(name).Params(params(args)...).Error().Block(
		jen.List(jen.Id("_"), jen.Err()).Op(":=").Qual(g.sqlPkg(), "ExecCall").Call(jen.Id("ctx"), jen.Id("c").Dot("drv"), g.argCall(p, args)),
		jen.Return(jen.Err()),
	)
	return nil
}

// genSelect generates a method returning the entity of the first row.
// Columns of joined tables are read and discarded.
func (g *clientGenerator) genSelect(f *jen.File, e *entity, p *sqlserver.Procedure, name string) error {
	args, err := g.arguments(e, p)
	if err != nil {
		return err
	}
	if len(p.ResultSets) == 0 {
		return NewGenerationError("client", "", "procedure "+p.Name+" has no result set", nil)
	}
	var dest []jen.Code
	for _, rc := range p.ResultSets[0].Columns {
		if field, ok := e.column[rc.SourceColumn]; ok && !rc.IsJoined {
			dest = append(dest, jen.Op("&").Id(e.recv).Dot(field.name))
			continue
		}
		dest = append(dest, jen.New(jen.Any()))
	}
	var id jen.Code = jen.Nil()
	for _, a := range args {
		if a.param.IsFilter {
			id = jen.Id(a.name)
			break
		}
	}
	f.Commentf("%s returns the %s with the given identity. It returns a", name, e.name)
	f.Comment("*sql.NotFoundError if there is none.")
	f.Func().Params(jen.Id("c").Op("*").Id("Client")).Id(name).Params(params(args)...).Params(
		jen.Op("*").Id(e.name), jen.Error(),
	).Block(
		jen.Id("rows").Op(":=").Op("&").Qual(g.sqlPkg(), "Rows").Values(),
		jen.If(
			jen.Err().Op(":=").Qual(g.sqlPkg(), "QueryCall").Call(jen.Id("ctx"), jen.Id("c").Dot("drv"), g.argCall(p, args), jen.Id("rows")),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return(jen.Nil(), jen.Err())),
		jen.Defer().Id("rows").Dot("Close").Call(),
		jen.If(jen.Op("!").Id("rows").Dot("Next").Call()).Block(
			jen.If(jen.Err().Op(":=").Id("rows").Dot("Err").Call(), jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Nil(), jen.Err()),
			),
			jen.Return(jen.Nil(), jen.Op("&").Qual(g.sqlPkg(), "NotFoundError").Values(jen.Dict{
				jen.Id("Table"): jen.Lit(e.table.Name),
				jen.Id("ID"):    id,
			})),
		),
		jen.Id(e.recv).Op(":=").Op("&").Id(e.name).Values(),
		jen.If(jen.Err().Op(":=").Id("rows").Dot("Scan").Call(dest...), jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Nil(), jen.Err()),
		),
		jen.Return(jen.Id(e.recv), jen.Nil()),
	)
	return nil
}
