package tsql

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgen/model"
	"github.com/syssam/relgen/relational"
	"github.com/syssam/relgen/sqlserver"
)

func companyDB(t *testing.T, opts ...sqlserver.Option) *sqlserver.Database {
	t.Helper()
	m := model.NewModel("Company")
	dept := m.AddClass("Department")
	dept.AddIdentity("Id", model.Integer)
	dept.AddAttribute("Name", model.String, model.ExactlyOne)
	emp := m.AddClass("Employee")
	emp.AddIdentity("Id", model.Integer)
	emp.AddAttribute("Name", model.String, model.ZeroOrOne)
	m.AddAssociation("Staff",
		model.End{Name: "employees", Type: emp, Multiplicity: model.ZeroOrMore, Owner: dept},
		model.End{Name: "department", Type: dept, Multiplicity: model.ExactlyOne},
	)
	b, err := sqlserver.NewBuilder(append([]sqlserver.Option{sqlserver.WithAllProcedures()}, opts...)...)
	require.NoError(t, err)
	db, err := b.Build(m)
	require.NoError(t, err)
	return db
}

func lines(ls ...string) string { return strings.Join(ls, "\n") + "\n" }

func render(t *testing.T, write func(*Writer) error, opts ...Option) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts...)
	require.NoError(t, err)
	require.NoError(t, write(w))
	return buf.String()
}

func procedure(t *testing.T, db *sqlserver.Database, name string) *sqlserver.Procedure {
	t.Helper()
	p, ok := db.Procedure(name)
	require.True(t, ok, name)
	return p
}

func TestWriteDatabase(t *testing.T) {
	got := render(t, func(w *Writer) error { return w.WriteDatabase("Company") })
	assert.Equal(t, lines(
		"USE master",
		"",
		"IF EXISTS(SELECT * from sys.databases WHERE name='Company') DROP DATABASE [Company];",
		"GO",
		"",
		"CREATE DATABASE [Company]",
		"GO",
	), got)

	got = render(t, func(w *Writer) error { return w.WriteDatabase("O'Neil") }, KeepIfExists())
	assert.Equal(t, lines("USE master", "", "CREATE DATABASE [O'Neil]", "GO"), got)
	got = render(t, func(w *Writer) error { return w.WriteDatabase("O'Neil") })
	assert.Contains(t, got, "name='O''Neil'")
}

func TestWriteTable(t *testing.T) {
	db := companyDB(t)
	emp, _ := db.Table("Employee")
	dept, _ := db.Table("Department")

	t.Run("Constraints", func(t *testing.T) {
		got := render(t, func(w *Writer) error { return w.WriteTable(emp) })
		assert.Equal(t, lines(
			"IF OBJECT_ID('Employee', 'U') IS NOT NULL DROP TABLE [Employee];",
			"",
			"CREATE TABLE [Employee]",
			"(",
			"\t[Id] [int] IDENTITY(1,1) NOT NULL,",
			"\t[Name] [nvarchar](max),",
			"\t[Id_employees] [int],",
			"\tCONSTRAINT [PK_Employee] PRIMARY KEY CLUSTERED ([Id]),",
			"\tCONSTRAINT [FK_Department_employees] FOREIGN KEY ([Id_employees]) REFERENCES [Department] ([Id])",
			")",
		), got)
	})

	t.Run("SkipConstraints", func(t *testing.T) {
		got := render(t, func(w *Writer) error { return w.WriteTable(dept) }, SkipConstraints(), KeepIfExists(), WithIndent("  "))
		assert.Equal(t, lines(
			"CREATE TABLE [Department]",
			"(",
			"  [Id] [int] IDENTITY(1,1) NOT NULL,",
			"  [Name] [nvarchar](max) NOT NULL",
			")",
		), got)
	})

	t.Run("Cascade", func(t *testing.T) {
		tbl := &relational.Table{
			Name: "Line",
			OwnColumns: []*relational.Column{
				{Name: "Amount", TypeName: "decimal", Precision: intp(18), Scale: intp(2), IsRequired: true},
				{Name: "Code", TypeName: "char", Length: "1"},
			},
			Keys: []*relational.Key{{
				Type: relational.ForeignKey, Name: "FK_Order_lines", Column: "OrderId",
				PrincipalTable: "Order", PrincipalColumn: "Id", CascadeOnDelete: true,
			}},
		}
		got := render(t, func(w *Writer) error { return w.WriteTable(tbl) }, KeepIfExists())
		assert.Equal(t, lines(
			"CREATE TABLE [Line]",
			"(",
			"\t[Amount] [decimal](18,2) NOT NULL,",
			"\t[Code] [char](1),",
			"\tCONSTRAINT [FK_Order_lines] FOREIGN KEY ([OrderId]) REFERENCES [Order] ([Id]) ON DELETE CASCADE",
			")",
		), got)
		assert.Equal(t, "decimal(18,2)", ColumnType(tbl.OwnColumns[0]))
		assert.Equal(t, "char(1)", ColumnType(tbl.OwnColumns[1]))
	})
}

func TestWriteTableType(t *testing.T) {
	db := companyDB(t)
	got := render(t, func(w *Writer) error { return w.WriteTableType(db.IdentityTableType) })
	assert.Equal(t, lines(
		"IF EXISTS (SELECT * FROM sys.types WHERE is_user_defined = 1 AND name = 'IntTable') DROP TYPE [IntTable];",
		"GO",
		"",
		"CREATE TYPE [IntTable] AS TABLE",
		"(",
		"\t[Value] [int] NOT NULL",
		")",
	), got)
}

func TestWriteProcedure(t *testing.T) {
	db := companyDB(t)
	tests := []struct {
		name string
		want string
	}{
		{
			name: "InsertDepartment",
			want: lines(
				"IF OBJECT_ID('InsertDepartment', 'P') IS NOT NULL DROP PROC [InsertDepartment];",
				"GO",
				"",
				"CREATE PROCEDURE [InsertDepartment]",
				"(",
				"\t@Name nvarchar(max),",
				"\t@Id int OUTPUT",
				")",
				"AS",
				"BEGIN",
				"\tSET NOCOUNT ON",
				"\tINSERT INTO",
				"\t\t[Department] ([Name])",
				"\tVALUES",
				"\t\t(@Name)",
				"",
				"\tSET @Id = SCOPE_IDENTITY();",
				"END",
			),
		},
		{
			name: "UpdateEmployee",
			want: lines(
				"IF OBJECT_ID('UpdateEmployee', 'P') IS NOT NULL DROP PROC [UpdateEmployee];",
				"GO",
				"",
				"CREATE PROCEDURE [UpdateEmployee]",
				"(",
				"\t@Id int,",
				"\t@Name nvarchar(max) = NULL",
				")",
				"AS",
				"BEGIN",
				"\tSET NOCOUNT ON",
				"\tUPDATE",
				"\t\t[Employee]",
				"\tSET",
				"\t\t[Name] = @Name",
				"\tWHERE",
				"\t\t[Employee].[Id] = @Id",
				"END",
			),
		},
		{
			name: "DeleteEmployeeById",
			want: lines(
				"IF OBJECT_ID('DeleteEmployeeById', 'P') IS NOT NULL DROP PROC [DeleteEmployeeById];",
				"GO",
				"",
				"CREATE PROCEDURE [DeleteEmployeeById]",
				"(",
				"\t@Id int",
				")",
				"AS",
				"BEGIN",
				"\tSET NOCOUNT ON",
				"\tDELETE",
				"\t\t[Employee]",
				"\tWHERE",
				"\t\t[Employee].[Id] = @Id",
				"END",
			),
		},
		{
			name: "SelectDepartmentById",
			want: lines(
				"IF OBJECT_ID('SelectDepartmentById', 'P') IS NOT NULL DROP PROC [SelectDepartmentById];",
				"GO",
				"",
				"CREATE PROCEDURE [SelectDepartmentById]",
				"(",
				"\t@Id int",
				")",
				"AS",
				"BEGIN",
				"\tSET NOCOUNT ON",
				"\tSELECT",
				"\t\t[Department].[Id] AS [Id],",
				"\t\t[Department].[Name] AS [Name],",
				"\t\t[employees].[Id] AS [employees_Id],",
				"\t\t[employees].[Name] AS [employees_Name]",
				"\tFROM",
				"\t\t[Department]",
				"\t\tLEFT JOIN [Employee] AS [employees] ON [employees].[Id_employees] = [Department].[Id]",
				"\tWHERE",
				"\t\t[Department].[Id] = @Id",
				"END",
			),
		},
		{
			name: "UpdateDepartmentemployees",
			want: lines(
				"IF OBJECT_ID('UpdateDepartmentemployees', 'P') IS NOT NULL DROP PROC [UpdateDepartmentemployees];",
				"GO",
				"",
				"CREATE PROCEDURE [UpdateDepartmentemployees]",
				"(",
				"\t@Id int,",
				"\t@IdTable IntTable READONLY",
				")",
				"AS",
				"BEGIN",
				"\tSET NOCOUNT ON",
				"\tDELETE [Employee] WHERE [Id_employees] = @Id AND [Id] NOT IN (SELECT [Value] FROM @IdTable)",
				"\tUPDATE [Employee] SET [Id_employees] = @Id WHERE [Id] IN (SELECT [Value] FROM @IdTable)",
				"END",
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := procedure(t, db, tt.name)
			got := render(t, func(w *Writer) error { return w.WriteProcedure(p) })
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteProcedure_Bodies(t *testing.T) {
	tbl := &relational.Table{Name: "Counter", OwnColumns: []*relational.Column{
		{Name: "Id", TypeName: "int", IsIdentity: true, IsRequired: true},
	}}

	t.Run("DefaultValues", func(t *testing.T) {
		p := &sqlserver.Procedure{Name: "InsertCounter", QueryType: sqlserver.QueryInsert, Table: tbl,
			Parameters: []*sqlserver.Parameter{
				{Name: "Id", TypeName: "int", TableName: "Counter", ColumnName: "Id", Direction: sqlserver.Output, IsIdentity: true},
			}}
		got := render(t, func(w *Writer) error { return w.WriteProcedure(p) }, KeepIfExists())
		assert.Contains(t, got, lines(
			"\tINSERT INTO",
			"\t\t[Counter]",
			"\tDEFAULT VALUES",
			"",
			"\tSET @Id = SCOPE_IDENTITY();",
		))
	})

	t.Run("NullableFilter", func(t *testing.T) {
		p := &sqlserver.Procedure{Name: "DeleteCounter", QueryType: sqlserver.QueryDelete, Table: tbl,
			Parameters: []*sqlserver.Parameter{
				{Name: "Id", TypeName: "int", TableName: "Counter", ColumnName: "Id", IsFilter: true},
				{Name: "Tag", TypeName: "nvarchar", Length: "20", TableName: "Counter", ColumnName: "Tag", IsFilter: true, IsNullable: true},
				{Name: "Unknown", TypeName: "int", ColumnName: "Unknown", IsFilter: true},
			}}
		got := render(t, func(w *Writer) error { return w.WriteProcedure(p) }, KeepIfExists())
		assert.Contains(t, got, "\t@Tag nvarchar(20) = NULL,\n")
		assert.Contains(t, got, lines(
			"\tWHERE",
			"\t\t[Counter].[Id] = @Id AND",
			"\t\t[Counter].[Tag] = ISNULL(@Tag, [Counter].[Tag])",
			"END",
		))
	})

	t.Run("Decimal", func(t *testing.T) {
		p := &sqlserver.Procedure{Name: "UpdatePrice", QueryType: sqlserver.QueryUpdate, Table: tbl,
			Parameters: []*sqlserver.Parameter{
				{Name: "Amount", TypeName: "decimal", Precision: intp(18), Scale: intp(2), TableName: "Counter", ColumnName: "Amount", Direction: sqlserver.InputOutput},
			}}
		got := render(t, func(w *Writer) error { return w.WriteProcedure(p) }, KeepIfExists())
		assert.Contains(t, got, "\t@Amount decimal(18,2) OUTPUT\n")
		assert.Contains(t, got, "\t\t[Amount] = @Amount\n")
		assert.NotContains(t, got, "WHERE")
	})

	t.Run("MissingResultSet", func(t *testing.T) {
		p := &sqlserver.Procedure{Name: "SelectCounter", QueryType: sqlserver.QuerySelectSingle, Table: tbl}
		got := render(t, func(w *Writer) error { return w.WriteProcedure(p) }, KeepIfExists())
		assert.Equal(t, lines("CREATE PROCEDURE [SelectCounter]", "(", ")", "AS", "BEGIN", "\tSET NOCOUNT ON", "END"), got)
	})
}

func TestWriteProcedure_Errors(t *testing.T) {
	db := companyDB(t)
	rel := procedure(t, db, "UpdateDepartmentemployees")
	noTableType := *rel
	noTableType.Parameters = []*sqlserver.Parameter{rel.Parameters[0]}

	tests := []struct {
		name string
		proc *sqlserver.Procedure
	}{
		{"NoTable", &sqlserver.Procedure{Name: "InsertX", QueryType: sqlserver.QueryInsert}},
		{"UnknownQuery", &sqlserver.Procedure{Name: "X", QueryType: sqlserver.QueryUnknown, Table: &relational.Table{Name: "X"}}},
		{"NoDependent", &sqlserver.Procedure{Name: "X", QueryType: sqlserver.QueryUpdateRelationship, Table: &relational.Table{Name: "X"}}},
		{"NoValues", &noTableType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf)
			require.NoError(t, err)
			err = w.WriteProcedure(tt.proc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, sqlserver.ErrInvalidProcedure))
			assert.Zero(t, buf.Len())
		})
	}
}

func TestScript(t *testing.T) {
	db := companyDB(t)
	got, err := Script(db)
	require.NoError(t, err)

	order := []string{
		"CREATE DATABASE [Company]",
		"USE [Company]",
		"CREATE TABLE [Department]",
		"CREATE TABLE [Employee]",
		"CREATE TYPE [IntTable] AS TABLE",
		"CREATE PROCEDURE [InsertDepartment]",
		"CREATE PROCEDURE [UpdateDepartmentemployees]",
		"CREATE PROCEDURE [DeleteEmployeeById]",
	}
	last := -1
	for _, s := range order {
		i := strings.Index(got, s)
		require.Greater(t, i, last, s)
		last = i
	}
	// database: 3, table: 1, table type and procedure: 2 each.
	assert.Equal(t, 3+len(db.Tables)+2*len(db.TableTypes)+2*len(db.Procedures), strings.Count(got, "GO\n"))
	assert.True(t, strings.HasSuffix(got, "END\nGO\n"))

	named, err := Script(db, WithDatabaseName("Staging"), KeepIfExists())
	require.NoError(t, err)
	assert.Contains(t, named, "CREATE DATABASE [Staging]\nGO\n\nUSE [Staging]\nGO\n\nCREATE TABLE [Department]")
	assert.NotContains(t, named, "DROP")

	db.Procedures = append(db.Procedures, &sqlserver.Procedure{Name: "Broken", QueryType: sqlserver.QueryInsert})
	_, err = Script(db)
	assert.True(t, sqlserver.IsProcedureError(err))
}

func TestWriteFiles(t *testing.T) {
	db := companyDB(t)
	dir := t.TempDir()
	files, err := WriteFiles(context.Background(), dir, db, WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, files, 1+len(db.Tables)+len(db.TableTypes)+len(db.Procedures))
	assert.Equal(t, filepath.Join(DatabaseDir, "Company.sql"), files[0])
	assert.Equal(t, filepath.Join(TablesDir, "Department.sql"), files[1])
	assert.Contains(t, files, filepath.Join(TypesDir, "IntTable.sql"))
	assert.Contains(t, files, filepath.Join(ProceduresDir, "SelectDepartmentById.sql"))

	emp, _ := db.Table("Employee")
	data, err := os.ReadFile(filepath.Join(dir, TablesDir, "Employee.sql"))
	require.NoError(t, err)
	want := render(t, func(w *Writer) error { return w.WriteTable(emp) })
	assert.Equal(t, want, string(data))

	p := procedure(t, db, "InsertEmployee")
	data, err = os.ReadFile(filepath.Join(dir, ProceduresDir, "InsertEmployee.sql"))
	require.NoError(t, err)
	assert.Equal(t, render(t, func(w *Writer) error { return w.WriteProcedure(p) }), string(data))
}

func TestWriteFiles_Errors(t *testing.T) {
	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WriteFiles(ctx, t.TempDir(), companyDB(t))
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("Duplicate", func(t *testing.T) {
		db := companyDB(t)
		db.Tables = append(db.Tables, db.Tables[0])
		_, err := WriteFiles(context.Background(), t.TempDir(), db)
		assert.ErrorContains(t, err, "duplicate object")
	})
	t.Run("PathName", func(t *testing.T) {
		db := companyDB(t)
		db.Tables[0].Name = "../escape"
		_, err := WriteFiles(context.Background(), t.TempDir(), db)
		assert.ErrorContains(t, err, "cannot derive a file name")
	})
	t.Run("Procedure", func(t *testing.T) {
		db := companyDB(t)
		db.Procedures[0].Table = nil
		dir := t.TempDir()
		_, err := WriteFiles(context.Background(), dir, db)
		assert.True(t, sqlserver.IsProcedureError(err))
		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_Err(t *testing.T) {
	w, err := NewWriter(failingWriter{})
	require.NoError(t, err)
	err = w.WriteDatabase("Company")
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, err, w.Err())
}

func TestOptions(t *testing.T) {
	_, err := NewConfig(WithIndent("--"), WithWorkers(0), WithLogger(nil), WithDatabaseName(""))
	require.Error(t, err)
	assert.True(t, relational.IsConfigError(err))
	for _, option := range []string{"Indent", "Workers", "Logger", "DatabaseName"} {
		assert.Contains(t, err.Error(), option)
	}

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "\t", cfg.Indent)
	assert.Positive(t, cfg.Workers)
	assert.False(t, cfg.KeepIfExists)
}

func intp(v int) *int { return &v }
