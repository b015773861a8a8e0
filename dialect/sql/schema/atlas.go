// Package schema exports derived relational schemas to Atlas, plans their
// CREATE statements for PostgreSQL, MySQL and SQLite and writes them as
// versioned migration directories. Planning needs no database connection.
package schema

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"ariga.io/atlas/sql/sqltool"

	"github.com/syssam/relgen/dialect"
	"github.com/syssam/relgen/relational"
)

// TypeMapper maps a column to an Atlas type. It is consulted before the
// built-in mapping and returns false to fall back to it.
type TypeMapper func(c *relational.Column) (schema.Type, bool)

// target holds the type names and planner of a dialect.
type target struct {
	plan      migrate.PlanApplier
	integer   string
	bigint    string
	boolean   string
	float     string
	decimal   string
	varchar   string // Empty when sized strings map to text.
	text      string
	blob      string
	timestamp string
	uuid      func() schema.Type
	identity  func() schema.Attr
}

var targets = map[string]*target{
	dialect.Postgres: {
		plan:      postgres.DefaultPlan,
		integer:   "integer",
		bigint:    "bigint",
		boolean:   "boolean",
		float:     "real",
		decimal:   "numeric",
		varchar:   "character varying",
		text:      "text",
		blob:      "bytea",
		timestamp: "timestamp",
		uuid:      func() schema.Type { return &schema.UUIDType{T: "uuid"} },
		identity: func() schema.Attr {
			return &postgres.Identity{Generation: "BY DEFAULT", Sequence: &postgres.Sequence{Start: 1, Increment: 1}}
		},
	},
	dialect.MySQL: {
		plan:      mysql.DefaultPlan,
		integer:   "int",
		bigint:    "bigint",
		boolean:   "bool",
		float:     "float",
		decimal:   "decimal",
		varchar:   "varchar",
		text:      "longtext",
		blob:      "longblob",
		timestamp: "datetime",
		uuid:      func() schema.Type { return &schema.StringType{T: "char", Size: 36} },
		identity:  func() schema.Attr { return &mysql.AutoIncrement{} },
	},
	dialect.SQLite: {
		plan:      sqlite.DefaultPlan,
		integer:   "integer",
		bigint:    "integer",
		boolean:   "bool",
		float:     "real",
		decimal:   "decimal",
		text:      "text",
		blob:      "blob",
		timestamp: "datetime",
		uuid:      func() schema.Type { return &schema.StringType{T: "text"} },
		identity:  func() schema.Attr { return &sqlite.AutoIncrement{} },
	},
}

// Dialects returns the dialects an Exporter supports.
func Dialects() []string {
	return []string{dialect.Postgres, dialect.MySQL, dialect.SQLite}
}

// Formats returns the migration directory formats.
func Formats() []string {
	return []string{"atlas", "golang-migrate", "goose", "flyway", "dbmate", "liquibase"}
}

func formatter(name string) (migrate.Formatter, bool) {
	switch name {
	case "", "atlas":
		return migrate.DefaultFormatter, true
	case "golang-migrate":
		return sqltool.GolangMigrateFormatter, true
	case "goose":
		return sqltool.GooseFormatter, true
	case "flyway":
		return sqltool.FlywayFormatter, true
	case "dbmate":
		return sqltool.DBMateFormatter, true
	case "liquibase":
		return sqltool.LiquibaseFormatter, true
	}
	return nil, false
}

// Exporter converts derived databases to Atlas schemas of one dialect.
type Exporter struct {
	dialect string
	target  *target
	schema  string
	mapper  TypeMapper
	format  migrate.Formatter
	version string
	logger  relational.Logger
}

// Option configures an Exporter.
type Option func(*Exporter) error

// WithSchemaName qualifies the exported tables with the named schema.
func WithSchemaName(name string) Option {
	return func(e *Exporter) error {
		e.schema = name
		return nil
	}
}

// WithTypeMapper sets a mapper consulted before the built-in type mapping.
func WithTypeMapper(m TypeMapper) Option {
	return func(e *Exporter) error {
		if m == nil {
			return relational.NewConfigError("TypeMapper", nil, "type mapper cannot be nil")
		}
		e.mapper = m
		return nil
	}
}

// WithFormat sets the format of migration directories, one of Formats.
func WithFormat(name string) Option {
	return func(e *Exporter) error {
		f, ok := formatter(name)
		if !ok {
			return relational.NewConfigError("Format", name, "unsupported migration format")
		}
		e.format = f
		return nil
	}
}

// WithVersion sets the version of written migrations. The default is the
// current UTC time as yyyymmddhhmmss.
func WithVersion(v string) Option {
	return func(e *Exporter) error {
		if v == "" || strings.ContainsAny(v, `/\ `) {
			return relational.NewConfigError("Version", v, "version must be a non-empty file name fragment")
		}
		e.version = v
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l relational.Logger) Option {
	return func(e *Exporter) error {
		if l == nil {
			return relational.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		e.logger = l
		return nil
	}
}

// NewExporter returns an Exporter for the named dialect. "sqlite" is
// accepted for dialect.SQLite.
func NewExporter(name string, opts ...Option) (*Exporter, error) {
	if name == "sqlite" {
		name = dialect.SQLite
	}
	t, ok := targets[name]
	if !ok {
		return nil, relational.NewConfigError("Dialect", name, "unsupported dialect")
	}
	e := &Exporter{
		dialect: name,
		target:  t,
		format:  migrate.DefaultFormatter,
		logger:  relational.NopLogger(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Dialect returns the dialect of the exporter.
func (e *Exporter) Dialect() string { return e.dialect }

// Realm converts db to an Atlas realm with a single schema. Every table
// gets its identity column as primary key and one foreign key per foreign
// key column.
func (e *Exporter) Realm(db *relational.Database) (*schema.Realm, error) {
	s := schema.New(e.schema)
	tables := make(map[*relational.Table]*schema.Table, len(db.Tables))
	columns := make(map[*relational.Column]*schema.Column)
	for _, t := range db.Tables {
		at := schema.NewTable(t.Name)
		for _, c := range t.OwnColumns {
			ac, err := e.column(t, c)
			if err != nil {
				return nil, err
			}
			at.AddColumns(ac)
			columns[c] = ac
		}
		if id := t.Identity(); id != nil {
			pk := schema.NewPrimaryKey(columns[id])
			if k := key(t, relational.PrimaryKey, id.Name); k != nil {
				pk.Name = k.Name
			}
			at.SetPrimaryKey(pk)
		}
		s.AddTables(at)
		tables[t] = at
	}
	for _, t := range db.Tables {
		for _, c := range t.OwnColumns {
			if !c.IsForeignKey {
				continue
			}
			principal, ok := db.Principal(c)
			if !ok {
				e.logger.Warn("skipping foreign key without principal table", "table", t.Name, "column", c.Name)
				continue
			}
			pk := principal.Identity()
			if pk == nil {
				e.logger.Warn("skipping foreign key to a table without identity",
					"table", t.Name, "column", c.Name, "principal", principal.Name)
				continue
			}
			name := "FK_" + t.Name + "_" + c.Name
			var cascade bool
			if k := key(t, relational.ForeignKey, c.Name); k != nil {
				name, cascade = k.Name, k.CascadeOnDelete
			}
			fk := schema.NewForeignKey(name).
				AddColumns(columns[c]).
				SetRefTable(tables[principal]).
				AddRefColumns(columns[pk])
			if cascade {
				fk.SetOnDelete(schema.Cascade)
			}
			tables[t].AddForeignKeys(fk)
		}
	}
	return schema.NewRealm(s), nil
}

func key(t *relational.Table, typ relational.KeyType, column string) *relational.Key {
	for _, k := range t.Keys {
		if k.Type == typ && k.Column == column {
			return k
		}
	}
	return nil
}

func (e *Exporter) column(t *relational.Table, c *relational.Column) (*schema.Column, error) {
	typ, err := e.columnType(c)
	if err != nil {
		return nil, relational.NewTypeError(t.Name, c.Name, err.Error(), nil)
	}
	ac := &schema.Column{
		Name: c.Name,
		Type: &schema.ColumnType{Type: typ, Null: c.IsNullable()},
	}
	if _, ok := typ.(*schema.IntegerType); ok && c.IsIdentity {
		ac.AddAttrs(e.target.identity())
	}
	return ac, nil
}

// columnType maps the SQL Server or ANSI type name of c.
func (e *Exporter) columnType(c *relational.Column) (schema.Type, error) {
	if e.mapper != nil {
		if t, ok := e.mapper(c); ok {
			return t, nil
		}
	}
	d := e.target
	switch strings.ToLower(c.TypeName) {
	case "int", "integer", "smallint", "tinyint":
		return &schema.IntegerType{T: d.integer}, nil
	case "bigint":
		return &schema.IntegerType{T: d.bigint}, nil
	case "bit", "bool", "boolean":
		return &schema.BoolType{T: d.boolean}, nil
	case "real", "float", "double":
		return &schema.FloatType{T: d.float}, nil
	case "decimal", "numeric", "money":
		t := &schema.DecimalType{T: d.decimal, Precision: 18}
		if c.Precision != nil {
			t.Precision = *c.Precision
		}
		if c.Scale != nil {
			t.Scale = *c.Scale
		}
		return t, nil
	case "char", "nchar", "varchar", "nvarchar", "text", "ntext":
		if n, err := strconv.Atoi(c.Length); err == nil && n > 0 && d.varchar != "" {
			return &schema.StringType{T: d.varchar, Size: n}, nil
		}
		return &schema.StringType{T: d.text}, nil
	case "binary", "varbinary", "blob", "image":
		return &schema.BinaryType{T: d.blob}, nil
	case "uniqueidentifier", "uuid":
		return d.uuid(), nil
	case "date":
		return &schema.TimeType{T: "date"}, nil
	case "datetime", "datetime2", "smalldatetime", "timestamp":
		return &schema.TimeType{T: d.timestamp}, nil
	}
	return nil, fmt.Errorf("no %s type for %q", e.dialect, c.TypeName)
}

// Plan plans the statements creating every table of db.
func (e *Exporter) Plan(ctx context.Context, db *relational.Database, name string) (*migrate.Plan, error) {
	realm, err := e.Realm(db)
	if err != nil {
		return nil, err
	}
	changes := make([]schema.Change, 0, len(db.Tables))
	for _, t := range realm.Schemas[0].Tables {
		changes = append(changes, &schema.AddTable{T: t})
	}
	plan, err := e.target.plan.PlanChanges(ctx, name, changes)
	if err != nil {
		return nil, fmt.Errorf("schema: plan %s: %w", e.dialect, err)
	}
	e.logger.Debug("planned schema", "dialect", e.dialect, "tables", len(changes), "statements", len(plan.Changes))
	return plan, nil
}

// WriteDir plans db and writes the migration to the directory at path,
// creating it if needed, and updates the directory checksum file. It
// returns the names of the written migration files.
func (e *Exporter) WriteDir(ctx context.Context, path string, db *relational.Database, name string) ([]string, error) {
	plan, err := e.Plan(ctx, db, name)
	if err != nil {
		return nil, err
	}
	plan.Version = e.version
	if plan.Version == "" {
		plan.Version = time.Now().UTC().Format("20060102150405")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	dir, err := migrate.NewLocalDir(path)
	if err != nil {
		return nil, err
	}
	files, err := e.format.Format(plan)
	if err != nil {
		return nil, fmt.Errorf("schema: format migration: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := dir.WriteFile(f.Name(), f.Bytes()); err != nil {
			return nil, err
		}
		names = append(names, f.Name())
	}
	sum, err := dir.Checksum()
	if err != nil {
		return nil, err
	}
	if err := migrate.WriteSumFile(dir, sum); err != nil {
		return nil, err
	}
	e.logger.Info("wrote migration", "dir", path, "files", len(names))
	return names, nil
}
